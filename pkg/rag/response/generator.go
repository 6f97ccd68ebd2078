package response

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"kernel-workspace-be/internal/entity"
	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/llm"
)

// GenerationError reports that the LLM backend could not produce an answer.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Persister records a finished exchange.
type Persister interface {
	Append(ctx context.Context, query, answer string, truncated bool) (*entity.Interaction, error)
}

// PersistFunc is called after an interaction has been stored.
type PersistFunc func(interaction *entity.Interaction)

type Config struct {
	Temperature    float64
	PersistTimeout time.Duration
}

// Request is one generation: the complete message list plus the raw query
// that will be stored alongside the answer.
type Request struct {
	Query    string
	Messages []llm.Message
}

// Generator drives a single streaming chat call per request and persists the
// answer when the stream ends.
type Generator struct {
	llmProvider llm.LLMProvider
	persister   Persister
	onPersist   PersistFunc
	cfg         Config
	logger      logger.ILogger
}

func NewGenerator(llmProvider llm.LLMProvider, persister Persister, cfg Config, log logger.ILogger) *Generator {
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 5 * time.Second
	}
	return &Generator{
		llmProvider: llmProvider,
		persister:   persister,
		cfg:         cfg,
		logger:      log,
	}
}

// OnPersist registers a callback run after each successful append.
func (g *Generator) OnPersist(fn PersistFunc) {
	g.onPersist = fn
}

// Start begins generation and blocks until the first token arrives or the
// stream ends. A backend failure before any token is returned as a
// *GenerationError and no Stream is created.
func (g *Generator) Start(ctx context.Context, req Request) (*Stream, error) {
	genCtx, cancel := context.WithCancel(ctx)
	tokens := make(chan string)
	errc := make(chan error, 1)

	go g.run(genCtx, req, tokens, errc)

	s := &Stream{tokens: tokens, errc: errc, cancel: cancel}

	tok, ok := <-tokens
	if !ok {
		err := s.finish()
		if err != io.EOF {
			return nil, err
		}
		return s, nil
	}
	s.first = tok
	s.hasFirst = true
	return s, nil
}

func (g *Generator) run(ctx context.Context, req Request, tokens chan<- string, errc chan<- error) {
	defer close(tokens)

	var answer strings.Builder
	err := g.llmProvider.ChatStream(ctx, req.Messages, func(token string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case tokens <- token:
			answer.WriteString(token)
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, llm.WithTemperature(g.cfg.Temperature))

	g.persist(ctx, req.Query, answer.String(), err != nil)
	errc <- err
}

// persist stores whatever was delivered. Cancellation of the request must
// not lose the answer, so the write runs on a detached context.
func (g *Generator) persist(ctx context.Context, query, answer string, truncated bool) {
	if strings.TrimSpace(answer) == "" || g.persister == nil {
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.PersistTimeout)
	defer cancel()

	interaction, err := g.persister.Append(pctx, query, answer, truncated)
	if err != nil {
		g.logger.Error("Generator", "Failed to persist interaction", map[string]interface{}{
			"error":     err.Error(),
			"truncated": truncated,
		})
		return
	}

	if truncated {
		g.logger.Warn("Generator", "Persisted partial answer", map[string]interface{}{
			"id":     interaction.Id,
			"length": len(answer),
		})
	}
	if g.onPersist != nil {
		g.onPersist(interaction)
	}
}

// Stream is a finite, non-restartable token sequence. It is not safe for
// concurrent use.
type Stream struct {
	tokens <-chan string
	errc   <-chan error
	cancel context.CancelFunc

	first    string
	hasFirst bool

	done bool
	err  error
	once sync.Once
}

// Recv returns the next token. At the end of the stream it returns io.EOF,
// or a *GenerationError if the backend failed mid-way. By the time Recv
// reports the end, the interaction has been persisted.
func (s *Stream) Recv() (string, error) {
	if s.hasFirst {
		s.hasFirst = false
		return s.first, nil
	}
	if s.done {
		return "", s.err
	}

	tok, ok := <-s.tokens
	if ok {
		return tok, nil
	}
	return "", s.finish()
}

// Close stops generation and waits for the backend call and persistence to
// finish. It is safe to call more than once.
func (s *Stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		if !s.done {
			for range s.tokens {
			}
			s.finish()
		}
	})
	return nil
}

func (s *Stream) finish() error {
	err := <-s.errc
	s.cancel()
	s.done = true
	if err == nil {
		s.err = io.EOF
	} else {
		s.err = &GenerationError{Err: err}
	}
	return s.err
}
