package entity

import (
	"time"

	"github.com/google/uuid"
)

type MemoryEmbedding struct {
	Id             uuid.UUID
	Content        string
	Source         string
	Metadata       map[string]string
	EmbeddingValue []float32
	CreatedAt      time.Time
}
