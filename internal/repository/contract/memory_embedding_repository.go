package contract

import (
	"context"

	"kernel-workspace-be/internal/entity"
)

// ScoredMemoryEmbedding wraps MemoryEmbedding with its similarity score
type ScoredMemoryEmbedding struct {
	Embedding  *entity.MemoryEmbedding
	Similarity float64 // cosine similarity, 1.0 = identical
}

type MemoryEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.MemoryEmbedding) error
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*ScoredMemoryEmbedding, error)
	CountBySource(ctx context.Context, source string) (int64, error)
}
