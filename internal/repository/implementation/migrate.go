package implementation

import (
	"fmt"

	"kernel-workspace-be/internal/model"

	"gorm.io/gorm"
)

const defaultEmbeddingDim = 768

// Migrate creates both tables. On postgres it also enables pgvector, sizes the
// embedding column and adds a cosine HNSW index. It is idempotent.
func Migrate(db *gorm.DB, embeddingDim int) error {
	if db.Dialector.Name() != "postgres" {
		if err := db.AutoMigrate(&model.Interaction{}, &model.MemoryEmbedding{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error; err != nil {
		return fmt.Errorf("enable pgvector: %w", err)
	}

	if err := db.AutoMigrate(&model.Interaction{}, &model.MemoryEmbedding{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if embeddingDim > 0 && embeddingDim != defaultEmbeddingDim {
		stmt := fmt.Sprintf(`ALTER TABLE memory_embeddings ALTER COLUMN embedding_value TYPE vector(%d);`, embeddingDim)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("resize embedding column: %w", err)
		}
	}

	index := `CREATE INDEX IF NOT EXISTS idx_memory_embeddings_hnsw ON memory_embeddings USING hnsw (embedding_value vector_cosine_ops);`
	if err := db.Exec(index).Error; err != nil {
		return fmt.Errorf("create vector index: %w", err)
	}
	return nil
}
