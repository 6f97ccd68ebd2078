package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MemoryEmbedding maps to pgvector and jsonb columns on postgres. On sqlite the
// same columns hold the vector and metadata as text.
type MemoryEmbedding struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Content        string            `gorm:"type:text;not null"`
	Source         string            `gorm:"type:varchar(255);not null;index"`
	Metadata       datatypes.JSONMap
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text dimension
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (MemoryEmbedding) TableName() string {
	return "memory_embeddings"
}

func (m *MemoryEmbedding) BeforeCreate(tx *gorm.DB) error {
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	return nil
}
