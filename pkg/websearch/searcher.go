package websearch

import (
	"context"
	"errors"
)

var ErrNoResults = errors.New("web search returned no results")

// Searcher runs a live web lookup and returns a plain-text digest of results.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Result is one organic search hit.
type Result struct {
	Title   string
	URL     string
	Snippet string
}
