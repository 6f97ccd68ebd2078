package ragcontext

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kernel-workspace-be/internal/pkg/logger"
	"kernel-workspace-be/pkg/ai/router"
	"kernel-workspace-be/pkg/rag/workspace"
	"kernel-workspace-be/pkg/vectorstore"
	"kernel-workspace-be/pkg/websearch"
)

// Sentinels placed in the context when a lookup yields nothing usable.
const (
	NoLocalContext    = "No relevant local context found in the indexed files."
	SearchUnavailable = "Web search is unavailable or returned no results."
)

const (
	StatusSearchingFiles = "Searching workspace files..."
	StatusBrowsingWeb    = "Browsing the web..."
	StatusGenerating     = "Generating response..."
)

const hitSeparator = "\n---\n"

// RetrievalError wraps a failed local or web lookup. It never aborts a query.
type RetrievalError struct {
	Route router.Route
	Err   error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s retrieval failed: %v", e.Route, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

// Assembly is the evidence gathered for one query.
type Assembly struct {
	Context  string
	Status   string
	Evidence []string
	Degraded bool
}

type Config struct {
	TopK             int
	RetrievalTimeout time.Duration
}

// Assembler gathers evidence for the chosen route. It never fails: lookup
// errors degrade to a sentinel text.
type Assembler struct {
	index    vectorstore.Store
	searcher websearch.Searcher
	cfg      Config
	logger   logger.ILogger
}

func NewAssembler(index vectorstore.Store, searcher websearch.Searcher, cfg Config, log logger.ILogger) *Assembler {
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}
	if cfg.RetrievalTimeout <= 0 {
		cfg.RetrievalTimeout = 20 * time.Second
	}
	return &Assembler{index: index, searcher: searcher, cfg: cfg, logger: log}
}

// StatusFor returns the progress label shown to the client for route.
func StatusFor(route router.Route) string {
	switch route {
	case router.RouteLocalSearch:
		return StatusSearchingFiles
	case router.RouteWebSearch:
		return StatusBrowsingWeb
	default:
		return StatusGenerating
	}
}

func (a *Assembler) Assemble(ctx context.Context, query string, route router.Route, ws *workspace.Registry) Assembly {
	out := Assembly{Status: StatusFor(route)}

	switch route {
	case router.RouteLocalSearch:
		evidence, err := a.searchLocal(ctx, query)
		if err != nil {
			a.logRetrievalError(err)
			out.Degraded = true
		}
		if len(evidence) == 0 {
			out.Context = NoLocalContext
		} else {
			out.Evidence = evidence
			out.Context = strings.Join(evidence, hitSeparator)
		}

	case router.RouteWebSearch:
		digest, err := a.searchWeb(ctx, query)
		if err != nil {
			a.logRetrievalError(err)
			out.Degraded = true
		}
		if strings.TrimSpace(digest) == "" {
			out.Context = SearchUnavailable
		} else {
			out.Evidence = []string{digest}
			out.Context = digest
		}
	}

	if previews := formatPreviews(ws); previews != "" {
		if out.Context != "" {
			out.Context += "\n\n"
		}
		out.Context += previews
	}
	return out
}

func (a *Assembler) searchLocal(ctx context.Context, query string) ([]string, error) {
	if a.index == nil {
		return nil, &RetrievalError{Route: router.RouteLocalSearch, Err: fmt.Errorf("no vector index configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RetrievalTimeout)
	defer cancel()

	docs, err := a.index.SimilaritySearch(ctx, query, a.cfg.TopK)
	if err != nil {
		return nil, &RetrievalError{Route: router.RouteLocalSearch, Err: err}
	}

	evidence := make([]string, 0, len(docs))
	for _, d := range docs {
		if strings.TrimSpace(d.Content) != "" {
			evidence = append(evidence, d.Content)
		}
	}
	return evidence, nil
}

func (a *Assembler) searchWeb(ctx context.Context, query string) (string, error) {
	if a.searcher == nil {
		return "", &RetrievalError{Route: router.RouteWebSearch, Err: fmt.Errorf("no web searcher configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RetrievalTimeout)
	defer cancel()

	digest, err := a.searcher.Search(ctx, query)
	if err != nil {
		return "", &RetrievalError{Route: router.RouteWebSearch, Err: err}
	}
	return digest, nil
}

func (a *Assembler) logRetrievalError(err error) {
	a.logger.Warn("Assembler", "Retrieval failed, continuing without evidence", map[string]interface{}{
		"error": err.Error(),
	})
}

func formatPreviews(ws *workspace.Registry) string {
	if ws == nil {
		return ""
	}
	docs := ws.Documents()
	if len(docs) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Workspace file previews:")
	for _, d := range docs {
		if !d.Active {
			continue
		}
		fmt.Fprintf(&b, "\n\n=== %s ===\n%s", d.Name, d.Preview)
	}
	return b.String()
}
