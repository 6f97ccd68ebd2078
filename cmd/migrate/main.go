package main

import (
	"log"

	"kernel-workspace-be/internal/config"
	"kernel-workspace-be/internal/repository/implementation"
	"kernel-workspace-be/pkg/database"

	"gorm.io/gorm"
)

// Migrates the configured backend. The server also migrates sqlite on
// startup, so this is mainly for postgres.
func main() {
	cfg := config.Load()

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.Storage.Driver {
	case "postgres":
		if cfg.Storage.Connection == "" {
			log.Fatal("Error: DB_CONNECTION_STRING is not set")
		}
		db, err = database.NewPostgresDB(cfg.Storage.Connection, true)
	case "sqlite", "":
		db, err = database.NewSQLiteDB(cfg.Storage.SQLitePath, true)
	default:
		log.Fatalf("Error: unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	log.Printf("Running %s migration (embedding dimension %d)...", db.Dialector.Name(), cfg.Storage.EmbeddingDim)
	if err := implementation.Migrate(db, cfg.Storage.EmbeddingDim); err != nil {
		log.Fatal("Error: Migration failed:", err)
	}

	log.Println("Migration complete.")
}
