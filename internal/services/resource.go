package services

import (
	"context"
	"errors"

	"github.com/yungbote/recipes-assistant-backend/internal/data/repos"
	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/ctxutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/dbctx"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

// ErrResourceNotFound is returned by Delete when no row matched.
var ErrResourceNotFound = repos.ErrResourceNotFound

type ResourceSummary struct {
	ID         string `json:"id"`
	Preview    string `json:"preview"`
	Embeddings int64  `json:"embeddings"`
	CreatedAt  string `json:"created_at"`
}

// ResourceService covers the administrative operations on stored resources.
type ResourceService interface {
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit int) ([]ResourceSummary, error)
}

type resourceService struct {
	log  *logger.Logger
	repo repos.ResourceRepo
}

func NewResourceService(baseLog *logger.Logger, repo repos.ResourceRepo) ResourceService {
	return &resourceService{
		log:  baseLog.With("service", "ResourceService"),
		repo: repo,
	}
}

func (s *resourceService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return &ValidationError{Reason: "id is required"}
	}
	dbc := dbctx.Context{Ctx: ctxutil.Default(ctx)}
	if err := s.repo.DeleteResource(dbc, id); err != nil {
		if errors.Is(err, repos.ErrResourceNotFound) {
			return ErrResourceNotFound
		}
		return newStoreError("delete resource", err)
	}
	s.log.Info("resource deleted", append([]interface{}{"resource_id", id}, ctxutil.LogFields(ctx)...)...)
	return nil
}

func (s *resourceService) List(ctx context.Context, limit int) ([]ResourceSummary, error) {
	dbc := dbctx.Context{Ctx: ctxutil.Default(ctx)}
	rows, err := s.repo.ListResources(dbc, limit)
	if err != nil {
		return nil, newStoreError("list resources", err)
	}
	out := make([]ResourceSummary, 0, len(rows))
	for _, r := range rows {
		n, err := s.repo.CountEmbeddings(dbc, r.ID)
		if err != nil {
			return nil, newStoreError("count embeddings", err)
		}
		out = append(out, summarize(r, n))
	}
	return out, nil
}

func summarize(r *domain.Resource, embeddings int64) ResourceSummary {
	preview := []rune(r.Content)
	if len(preview) > 80 {
		preview = append(preview[:80], '…')
	}
	return ResourceSummary{
		ID:         r.ID,
		Preview:    string(preview),
		Embeddings: embeddings,
		CreatedAt:  r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
