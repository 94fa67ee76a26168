package recipes

import (
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingDimensions is the width of the embedding column.
const EmbeddingDimensions = 1536

// EmbeddingRecord is one chunk of a Resource plus its vector. Rows are
// written once at ingestion and removed only by cascade.
type EmbeddingRecord struct {
	ID         string          `gorm:"type:varchar(191);primaryKey" json:"id"`
	ResourceID string          `gorm:"column:resource_id;type:varchar(191);not null;index" json:"resource_id"`
	Resource   *Resource       `gorm:"constraint:OnDelete:CASCADE;foreignKey:ResourceID;references:ID" json:"-"`
	Content    string          `gorm:"column:content;type:text;not null" json:"content"`
	Embedding  pgvector.Vector `gorm:"column:embedding;type:vector(1536);not null" json:"-"`
}

func (EmbeddingRecord) TableName() string { return "embeddings" }

func (e *EmbeddingRecord) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = NewID()
	}
	return nil
}

// ChunkVector pairs a chunk with the vector computed for it.
type ChunkVector struct {
	Content string
	Vector  []float32
}

// Match is one similarity search hit.
type Match struct {
	Content    string  `gorm:"column:content" json:"content"`
	Similarity float64 `gorm:"column:similarity" json:"similarity"`
}
