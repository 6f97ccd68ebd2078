package mapper

import (
	"fmt"

	"kernel-workspace-be/internal/entity"
	"kernel-workspace-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type MemoryEmbeddingMapper struct{}

func NewMemoryEmbeddingMapper() *MemoryEmbeddingMapper {
	return &MemoryEmbeddingMapper{}
}

func (m *MemoryEmbeddingMapper) ToEntity(e *model.MemoryEmbedding) *entity.MemoryEmbedding {
	if e == nil {
		return nil
	}

	var metadata map[string]string
	if len(e.Metadata) > 0 {
		metadata = make(map[string]string, len(e.Metadata))
		for k, v := range e.Metadata {
			metadata[k] = fmt.Sprint(v)
		}
	}

	return &entity.MemoryEmbedding{
		Id:             e.Id,
		Content:        e.Content,
		Source:         e.Source,
		Metadata:       metadata,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *MemoryEmbeddingMapper) ToModel(e *entity.MemoryEmbedding) *model.MemoryEmbedding {
	if e == nil {
		return nil
	}

	var metadata datatypes.JSONMap
	if len(e.Metadata) > 0 {
		metadata = make(datatypes.JSONMap, len(e.Metadata))
		for k, v := range e.Metadata {
			metadata[k] = v
		}
	}

	return &model.MemoryEmbedding{
		Id:             e.Id,
		Content:        e.Content,
		Source:         e.Source,
		Metadata:       metadata,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
	}
}

func (m *MemoryEmbeddingMapper) ToModels(embeddings []*entity.MemoryEmbedding) []*model.MemoryEmbedding {
	models := make([]*model.MemoryEmbedding, len(embeddings))
	for i, e := range embeddings {
		models[i] = m.ToModel(e)
	}
	return models
}
