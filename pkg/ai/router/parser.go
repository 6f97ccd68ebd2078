package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Route is the retrieval strategy chosen for a query.
type Route string

const (
	RouteChat        Route = "chat"
	RouteLocalSearch Route = "local_search"
	RouteWebSearch   Route = "web_search"
)

// Source records how a Decision was reached.
type Source string

const (
	SourceFastPath   Source = "fastpath"
	SourceClassifier Source = "classifier"
	SourceCache      Source = "cache"
	SourceFallback   Source = "fallback"
)

// Decision is the outcome of routing one query. Route is always one of the
// three Route constants.
type Decision struct {
	Route  Route
	Source Source
	Reason string
}

// ParseRoute accepts exactly the three lowercase route names.
func ParseRoute(s string) (Route, error) {
	switch Route(s) {
	case RouteChat, RouteLocalSearch, RouteWebSearch:
		return Route(s), nil
	default:
		return "", fmt.Errorf("unknown route %q", s)
	}
}

var errEmptyReply = errors.New("empty classifier reply")

// parseClassifierReply decodes the classifier output. The reply must be one
// JSON object whose only key is "route" (exact case) holding a valid route
// name, optionally wrapped in one markdown code fence.
func parseClassifierReply(raw string) (Route, error) {
	body := stripCodeFence(strings.TrimSpace(raw))
	if body == "" {
		return "", errEmptyReply
	}

	// Walk tokens rather than decoding into a map, which would let a
	// repeated key silently win.
	dec := json.NewDecoder(strings.NewReader(body))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return "", errors.New("reply is not a JSON object")
	}

	var (
		route string
		keys  int
	)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("reply is not a JSON object: %w", err)
		}
		keys++
		if keys > 1 {
			return "", errors.New("reply has more than one key, want exactly 1")
		}
		if key, _ := keyTok.(string); key != "route" {
			return "", errors.New(`reply has no "route" key`)
		}

		valueTok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("reply is not a JSON object: %w", err)
		}
		value, ok := valueTok.(string)
		if !ok {
			return "", fmt.Errorf("route is not a string: %v", valueTok)
		}
		route = value
	}
	if keys == 0 {
		return "", errors.New(`reply has no "route" key`)
	}
	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return "", errors.New("reply is not a JSON object")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", errors.New("trailing data after JSON object")
	}

	return ParseRoute(route)
}

// stripCodeFence removes a single surrounding ``` or ```json fence.
func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	inner := s[3 : len(s)-3]
	if nl := strings.IndexByte(inner, '\n'); nl >= 0 {
		tag := strings.TrimSpace(inner[:nl])
		if tag == "" || strings.EqualFold(tag, "json") {
			inner = inner[nl+1:]
		}
	}
	return strings.TrimSpace(inner)
}
