package recipes

import (
	"time"

	"github.com/segmentio/ksuid"
	"gorm.io/gorm"
)

// Resource is one stored unit of source content: a recipe document or a
// fact contributed through chat. It owns its EmbeddingRecords.
type Resource struct {
	ID        string    `gorm:"type:varchar(191);primaryKey" json:"id"`
	Content   string    `gorm:"column:content;type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

func (Resource) TableName() string { return "resources" }

func (r *Resource) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	return nil
}

// NewID returns a sortable, collision-resistant short id.
func NewID() string {
	return ksuid.New().String()
}
