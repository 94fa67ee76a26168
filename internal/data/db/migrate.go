package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/recipes-assistant-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Resource{},
		&domain.EmbeddingRecord{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return EnsureEmbeddingIndexes(db)
}

// EnsureEmbeddingIndexes creates the approximate nearest neighbour index over
// embeddings.embedding. sqlite has no vector index, so it is a no-op there.
func EnsureEmbeddingIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != DialectPostgres {
		return nil
	}
	stmt := `CREATE INDEX IF NOT EXISTS "embeddingIndex" ON embeddings USING hnsw (embedding vector_cosine_ops);`
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create embeddingIndex: %w", err)
	}
	return nil
}
