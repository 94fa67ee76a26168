package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/recipes-assistant-backend/internal/data/repos/recipes"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

type ResourceRepo = recipes.ResourceRepo

var ErrResourceNotFound = recipes.ErrResourceNotFound

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	return recipes.NewResourceRepo(db, baseLog)
}
