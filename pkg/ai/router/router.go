package router

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/llm"
)

// smallTalk phrases never need retrieval.
var smallTalk = map[string]struct{}{
	"hi": {}, "hello": {}, "hey": {}, "yo": {}, "sup": {},
	"thanks": {}, "thank you": {}, "thx": {}, "ty": {},
	"ok": {}, "okay": {}, "cool": {}, "nice": {}, "great": {},
	"good morning": {}, "good afternoon": {}, "good evening": {}, "good night": {},
	"how are you": {}, "who are you": {}, "what can you do": {},
	"bye": {}, "goodbye": {}, "see you": {},
}

// ClassificationError wraps any failure of the classifier round trip.
// It is logged and replaced by the default route, never returned.
type ClassificationError struct {
	Err error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classification failed: %v", e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

// DecisionCache stores classifier verdicts by query fingerprint.
type DecisionCache interface {
	Get(key string) (string, bool)
	Save(key string, route string)
}

type Config struct {
	DefaultRoute      Route
	ShortQueryTokens  int
	ClassifierTimeout time.Duration
	Temperature       float64
}

// Router picks a Route for each query: small talk and very short queries go
// straight to chat, everything else is classified by the LLM backend.
type Router struct {
	llmProvider llm.LLMProvider
	cache       DecisionCache
	cfg         Config
	logger      logger.ILogger
}

// NewRouter creates a router. cache may be nil.
func NewRouter(llmProvider llm.LLMProvider, cache DecisionCache, cfg Config, log logger.ILogger) *Router {
	if _, err := ParseRoute(string(cfg.DefaultRoute)); err != nil {
		cfg.DefaultRoute = RouteLocalSearch
	}
	if cfg.ShortQueryTokens <= 0 {
		cfg.ShortQueryTokens = 2
	}
	if cfg.ClassifierTimeout <= 0 {
		cfg.ClassifierTimeout = 15 * time.Second
	}
	return &Router{
		llmProvider: llmProvider,
		cache:       cache,
		cfg:         cfg,
		logger:      log,
	}
}

// Route always returns a usable Decision.
func (r *Router) Route(ctx context.Context, query string, activeFiles []string) Decision {
	normalized := normalizeQuery(query)

	if _, ok := smallTalk[normalized]; ok {
		return Decision{Route: RouteChat, Source: SourceFastPath, Reason: "small talk"}
	}
	if len(strings.Fields(normalized)) < r.cfg.ShortQueryTokens {
		return Decision{Route: RouteChat, Source: SourceFastPath, Reason: "short query"}
	}

	key := cacheKey(normalized, activeFiles)
	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			if route, err := ParseRoute(cached); err == nil {
				return Decision{Route: route, Source: SourceCache, Reason: "cached classification"}
			}
		}
	}

	route, err := r.classify(ctx, query, activeFiles)
	if err != nil {
		var cerr *ClassificationError
		if !errors.As(err, &cerr) {
			cerr = &ClassificationError{Err: err}
		}
		r.logger.Warn("Router", "Classification failed, using default route", map[string]interface{}{
			"error":         cerr.Error(),
			"default_route": string(r.cfg.DefaultRoute),
		})
		return Decision{Route: r.cfg.DefaultRoute, Source: SourceFallback, Reason: cerr.Error()}
	}

	if r.cache != nil {
		r.cache.Save(key, string(route))
	}

	r.logger.Debug("Router", "Query classified", map[string]interface{}{
		"route": string(route),
	})
	return Decision{Route: route, Source: SourceClassifier, Reason: "classifier"}
}

func (r *Router) classify(ctx context.Context, query string, activeFiles []string) (Route, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ClassifierTimeout)
	defer cancel()

	reply, err := r.llmProvider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: buildClassifierPrompt(activeFiles)},
		{Role: llm.RoleUser, Content: query},
	}, llm.WithTemperature(r.cfg.Temperature), llm.WithJSONFormat())
	if err != nil {
		return "", &ClassificationError{Err: err}
	}

	route, err := parseClassifierReply(reply)
	if err != nil {
		return "", &ClassificationError{Err: err}
	}
	return route, nil
}

func buildClassifierPrompt(activeFiles []string) string {
	var b strings.Builder
	b.WriteString("You are a query router. Decide how the user's message should be answered.\n\n")
	b.WriteString("local_search: the question is about the user's uploaded files, their code or saved notes.\n")
	b.WriteString("web_search: the question needs current or external information from the internet.\n")
	b.WriteString("chat: general conversation or knowledge that needs no lookup.\n\n")

	if len(activeFiles) > 0 {
		b.WriteString("Files currently in the workspace:\n")
		for _, name := range activeFiles {
			b.WriteString("- ")
			b.WriteString(name)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(`Respond with exactly one JSON object and nothing else: {"route": "local_search"} or {"route": "web_search"} or {"route": "chat"}`)
	return b.String()
}

// normalizeQuery lowercases and trims whitespace and surrounding punctuation.
func normalizeQuery(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.TrimFunc(q, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
	})
	return strings.Join(strings.Fields(q), " ")
}

func cacheKey(normalized string, activeFiles []string) string {
	files := append([]string(nil), activeFiles...)
	sort.Strings(files)
	return normalized + "\x00" + strings.Join(files, "\x00")
}
