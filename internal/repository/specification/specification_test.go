package specification

import (
	"testing"

	"kernel-workspace-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// dryRunDB renders SQL without a server.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=kernel dbname=kernel sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestNewestOrdersByIdDescending(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []model.Interaction
		return Apply(tx, Newest(5)).Find(&rows)
	})
	assert.Contains(t, sql, `ORDER BY "id" DESC`)
	assert.Contains(t, sql, "LIMIT 5")
}

func TestBySourceFiltersOnSourceColumn(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var count int64
		return Apply(tx.Model(&model.MemoryEmbedding{}), BySource("notes.txt")).Count(&count)
	})
	assert.Contains(t, sql, `"source" = 'notes.txt'`)
}

func TestNearestToOrdersByBareDistance(t *testing.T) {
	db := dryRunDB(t)

	sql := db.ToSQL(func(tx *gorm.DB) *gorm.DB {
		var rows []model.MemoryEmbedding
		return Apply(tx, NearestTo(pgvector.NewVector([]float32{1, 0}), 3)).Find(&rows)
	})
	assert.Contains(t, sql, "ORDER BY embedding_value <=> '[1,0]'")
	assert.Contains(t, sql, "LIMIT 3")
}
