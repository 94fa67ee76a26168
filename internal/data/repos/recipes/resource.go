package recipes

import (
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/dbctx"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

var ErrResourceNotFound = errors.New("resource not found")

// ResourceRepo persists resources and the embedding rows they own.
type ResourceRepo interface {
	InsertResource(dbc dbctx.Context, content string) (*domain.Resource, error)
	InsertEmbeddings(dbc dbctx.Context, resourceID string, rows []domain.ChunkVector) error
	DeleteResource(dbc dbctx.Context, id string) error
	SearchBySimilarity(dbc dbctx.Context, query []float32, threshold float64, limit int) ([]domain.Match, error)

	GetResource(dbc dbctx.Context, id string) (*domain.Resource, error)
	ListResources(dbc dbctx.Context, limit int) ([]*domain.Resource, error)
	ListEmbeddings(dbc dbctx.Context, resourceID string) ([]*domain.EmbeddingRecord, error)
	CountEmbeddings(dbc dbctx.Context, resourceID string) (int64, error)
}

type resourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResourceRepo(db *gorm.DB, baseLog *logger.Logger) ResourceRepo {
	repoLog := baseLog.With("repo", "ResourceRepo")
	return &resourceRepo{db: db, log: repoLog}
}

func (r *resourceRepo) InsertResource(dbc dbctx.Context, content string) (*domain.Resource, error) {
	res := &domain.Resource{Content: content}
	if err := dbc.DB(r.db).Create(res).Error; err != nil {
		return nil, fmt.Errorf("insert resource: %w", err)
	}
	return res, nil
}

func (r *resourceRepo) InsertEmbeddings(dbc dbctx.Context, resourceID string, rows []domain.ChunkVector) error {
	if len(rows) == 0 {
		return nil
	}
	if resourceID == "" {
		return fmt.Errorf("insert embeddings: missing resource id")
	}
	records := make([]*domain.EmbeddingRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, &domain.EmbeddingRecord{
			ResourceID: resourceID,
			Content:    row.Content,
			Embedding:  pgvector.NewVector(row.Vector),
		})
	}

	// Vectors are wide; keep batches small.
	const batchSize = 100

	if err := dbc.DB(r.db).CreateInBatches(records, batchSize).Error; err != nil {
		return fmt.Errorf("insert embeddings: %w", err)
	}
	return nil
}

func (r *resourceRepo) DeleteResource(dbc dbctx.Context, id string) error {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&domain.Resource{})
	if res.Error != nil {
		return fmt.Errorf("delete resource: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrResourceNotFound
	}
	return nil
}

func (r *resourceRepo) SearchBySimilarity(dbc dbctx.Context, query []float32, threshold float64, limit int) ([]domain.Match, error) {
	if limit <= 0 || len(query) == 0 {
		return []domain.Match{}, nil
	}
	if r.db.Dialector.Name() == "postgres" {
		return r.searchPGVector(dbc, query, threshold, limit)
	}
	return r.searchScan(dbc, query, threshold, limit)
}

// searchPGVector lets the HNSW index do the work; <=> is cosine distance.
func (r *resourceRepo) searchPGVector(dbc dbctx.Context, query []float32, threshold float64, limit int) ([]domain.Match, error) {
	vec := pgvector.NewVector(query)
	out := []domain.Match{}
	err := dbc.DB(r.db).
		Model(&domain.EmbeddingRecord{}).
		Select("content, 1 - (embedding <=> ?) AS similarity", vec).
		Where("1 - (embedding <=> ?) > ?", vec, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return out, nil
}

func (r *resourceRepo) GetResource(dbc dbctx.Context, id string) (*domain.Resource, error) {
	var res domain.Resource
	err := dbc.DB(r.db).Where("id = ?", id).First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get resource: %w", err)
	}
	return &res, nil
}

func (r *resourceRepo) ListResources(dbc dbctx.Context, limit int) ([]*domain.Resource, error) {
	var out []*domain.Resource
	q := dbc.DB(r.db).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}
	return out, nil
}

func (r *resourceRepo) ListEmbeddings(dbc dbctx.Context, resourceID string) ([]*domain.EmbeddingRecord, error) {
	var out []*domain.EmbeddingRecord
	if err := dbc.DB(r.db).Where("resource_id = ?", resourceID).Order("id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list embeddings: %w", err)
	}
	return out, nil
}

func (r *resourceRepo) CountEmbeddings(dbc dbctx.Context, resourceID string) (int64, error) {
	var n int64
	q := dbc.DB(r.db).Model(&domain.EmbeddingRecord{})
	if resourceID != "" {
		q = q.Where("resource_id = ?", resourceID)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return n, nil
}
