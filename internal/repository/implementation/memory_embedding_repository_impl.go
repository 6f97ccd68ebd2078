package implementation

import (
	"context"
	"math"
	"sort"

	"kernel-workspace-be/internal/entity"
	"kernel-workspace-be/internal/mapper"
	"kernel-workspace-be/internal/model"
	"kernel-workspace-be/internal/repository/contract"
	"kernel-workspace-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type MemoryEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.MemoryEmbeddingMapper
}

func NewMemoryEmbeddingRepository(db *gorm.DB) contract.MemoryEmbeddingRepository {
	return &MemoryEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewMemoryEmbeddingMapper(),
	}
}

func (r *MemoryEmbeddingRepositoryImpl) CreateBulk(ctx context.Context, embeddings []*entity.MemoryEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}

	models := r.mapper.ToModels(embeddings)
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	// Update IDs back to entities
	for i, m := range models {
		*embeddings[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

// SearchSimilarWithScore ranks by pgvector cosine distance on postgres, where
// similarity is reported as 1 - distance. Other dialects have no vector
// operator, so rows are ranked by cosine similarity in memory.
func (r *MemoryEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredMemoryEmbedding, error) {
	if limit <= 0 {
		limit = 4
	}
	if r.db.Dialector.Name() != "postgres" {
		return r.rankInMemory(ctx, embedding, limit)
	}

	type result struct {
		model.MemoryEmbedding
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("memory_embeddings").
		Select("memory_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector)
	err := specification.Apply(query, specification.NearestTo(queryVector, limit)).Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredMemoryEmbedding, len(results))
	for i := range results {
		scored[i] = &contract.ScoredMemoryEmbedding{
			Embedding:  r.mapper.ToEntity(&results[i].MemoryEmbedding),
			Similarity: results[i].Similarity,
		}
	}
	return scored, nil
}

func (r *MemoryEmbeddingRepositoryImpl) CountBySource(ctx context.Context, source string) (int64, error) {
	var count int64
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.MemoryEmbedding{}),
		specification.BySource(source),
	)
	err := query.Count(&count).Error
	return count, err
}

func (r *MemoryEmbeddingRepositoryImpl) rankInMemory(ctx context.Context, embedding []float32, limit int) ([]*contract.ScoredMemoryEmbedding, error) {
	var models []*model.MemoryEmbedding
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredMemoryEmbedding, len(models))
	for i, m := range models {
		e := r.mapper.ToEntity(m)
		scored[i] = &contract.ScoredMemoryEmbedding{
			Embedding:  e,
			Similarity: cosineSimilarity(embedding, e.EmbeddingValue),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// cosineSimilarity returns 0 for mismatched or zero-length vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
