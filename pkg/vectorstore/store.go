package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kernel-workspace-be/internal/entity"
	"kernel-workspace-be/internal/repository/contract"
	"kernel-workspace-be/pkg/embedding"

	"golang.org/x/sync/errgroup"
)

const (
	MetadataSource = "source"

	// SourceVerifiedSolution tags documents committed to long-term memory.
	SourceVerifiedSolution = "user_verified_solution"
)

var ErrEmptyQuery = errors.New("empty similarity query")

// Document is a unit of text in the vector index.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
	Score    float64
}

// Store is the vector index collaborator used for retrieval and long-term memory.
type Store interface {
	Add(ctx context.Context, docs []Document) error
	SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error)
}

// EmbeddingStore embeds documents with an EmbeddingProvider and persists them
// through a MemoryEmbeddingRepository (pgvector or sqlite).
type EmbeddingStore struct {
	repo        contract.MemoryEmbeddingRepository
	embedder    embedding.EmbeddingProvider
	dimension   int
	concurrency int
}

// NewEmbeddingStore creates a store. dimension > 0 enforces the vector size
// expected by the backing table.
func NewEmbeddingStore(repo contract.MemoryEmbeddingRepository, embedder embedding.EmbeddingProvider, dimension int) *EmbeddingStore {
	return &EmbeddingStore{
		repo:        repo,
		embedder:    embedder,
		dimension:   dimension,
		concurrency: 4,
	}
}

var _ Store = (*EmbeddingStore)(nil)

// Add embeds docs concurrently and stores them in one batch. Either every
// document is stored or none is.
func (s *EmbeddingStore) Add(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	rows := make([]*entity.MemoryEmbedding, len(docs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)

	for i := range docs {
		eg.Go(func() error {
			vector, err := s.embedder.Embed(egCtx, docs[i].Content)
			if err != nil {
				return fmt.Errorf("embed document %d: %w", i, err)
			}
			if s.dimension > 0 && len(vector) != s.dimension {
				return fmt.Errorf("embed document %d: got %d dimensions, want %d", i, len(vector), s.dimension)
			}
			rows[i] = &entity.MemoryEmbedding{
				Content:        docs[i].Content,
				Source:         docs[i].Metadata[MetadataSource],
				Metadata:       docs[i].Metadata,
				EmbeddingValue: vector,
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	if err := s.repo.CreateBulk(ctx, rows); err != nil {
		return fmt.Errorf("store embeddings: %w", err)
	}
	for i, row := range rows {
		docs[i].ID = row.Id.String()
	}
	return nil
}

// SimilaritySearch returns at most k documents, best match first.
func (s *EmbeddingStore) SimilaritySearch(ctx context.Context, query string, k int) ([]Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scored, err := s.repo.SearchSimilarWithScore(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}

	out := make([]Document, 0, len(scored))
	for _, sc := range scored {
		out = append(out, Document{
			ID:       sc.Embedding.Id.String(),
			Content:  sc.Embedding.Content,
			Metadata: sc.Embedding.Metadata,
			Score:    sc.Similarity,
		})
	}
	return out, nil
}

// CountBySource reports how many documents carry the given source tag.
func (s *EmbeddingStore) CountBySource(ctx context.Context, source string) (int64, error) {
	return s.repo.CountBySource(ctx, source)
}
