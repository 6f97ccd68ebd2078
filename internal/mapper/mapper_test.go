package mapper

import (
	"testing"
	"time"

	"kernel-workspace-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryEmbeddingMapperKeepsMetadata(t *testing.T) {
	m := NewMemoryEmbeddingMapper()
	e := &entity.MemoryEmbedding{
		Id:             uuid.New(),
		Content:        "fix: close the file handle",
		Source:         "user_verified_solution",
		Metadata:       map[string]string{"source": "user_verified_solution"},
		EmbeddingValue: []float32{0.6, 0.8},
		CreatedAt:      time.Now(),
	}

	back := m.ToEntity(m.ToModel(e))
	require.NotNil(t, back)
	assert.Equal(t, e.Metadata, back.Metadata)
	assert.Equal(t, e.EmbeddingValue, back.EmbeddingValue)
	assert.Equal(t, e.Source, back.Source)
}

func TestMappersHandleNil(t *testing.T) {
	assert.Nil(t, NewInteractionMapper().ToEntity(nil))
	assert.Nil(t, NewInteractionMapper().ToModel(nil))
	assert.Nil(t, NewMemoryEmbeddingMapper().ToEntity(nil))
	assert.Nil(t, NewMemoryEmbeddingMapper().ToModel(nil))
}
