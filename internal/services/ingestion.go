package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/recipes-assistant-backend/internal/data/repos"
	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/ingestion/chunker"
	"github.com/yungbote/recipes-assistant-backend/internal/ingestion/embedder"
	"github.com/yungbote/recipes-assistant-backend/internal/observability"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/ctxutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/dbctx"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const SuccessMessage = "Resource successfully created and embedded."

type IngestResult struct {
	ResourceID string `json:"resource_id"`
	Chunks     int    `json:"chunks"`
}

type IngestionService interface {
	// IngestRaw chunks content on sentence boundaries and stores it.
	IngestRaw(ctx context.Context, content string) (string, IngestResult, error)
	// IngestChunks stores pre-chunked text; chunks are never re-split.
	IngestChunks(ctx context.Context, chunks []string) (string, IngestResult, error)
}

// Validation is the outcome of ValidateResourceInput.
type Validation struct {
	Valid   bool
	Content string
	Reason  string
}

func ValidateResourceInput(content string) Validation {
	if strings.TrimSpace(content) == "" {
		return Validation{Reason: "content is required"}
	}
	return Validation{Valid: true, Content: content}
}

type ingestionService struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.ResourceRepo
	embedder embedder.Embedder
}

func NewIngestionService(db *gorm.DB, baseLog *logger.Logger, repo repos.ResourceRepo, emb embedder.Embedder) IngestionService {
	return &ingestionService{
		db:       db,
		log:      baseLog.With("service", "IngestionService"),
		repo:     repo,
		embedder: emb,
	}
}

func (s *ingestionService) IngestRaw(ctx context.Context, content string) (msg string, res IngestResult, err error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "ingest.raw")
	defer func() {
		observability.EndSpan(span, err)
		s.observe(ctx, "raw", res.Chunks, start, err)
	}()

	v := ValidateResourceInput(content)
	if !v.Valid {
		err = &ValidationError{Reason: v.Reason}
		return FailureMessage(err), IngestResult{}, err
	}
	chunks := chunker.ChunkRaw(v.Content)
	if len(chunks) == 0 {
		err = &ValidationError{Reason: "nothing to embed"}
		return FailureMessage(err), IngestResult{}, err
	}
	span.SetAttributes(attribute.Int("ingest.chunks", len(chunks)))

	res, err = s.store(ctx, v.Content, chunks)
	if err != nil {
		return FailureMessage(err), IngestResult{}, err
	}
	return SuccessMessage, res, nil
}

func (s *ingestionService) IngestChunks(ctx context.Context, chunks []string) (msg string, res IngestResult, err error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	ctx, span := observability.StartSpan(ctx, "ingest.chunks", attribute.Int("ingest.chunks", len(chunks)))
	defer func() {
		observability.EndSpan(span, err)
		s.observe(ctx, "chunks", res.Chunks, start, err)
	}()

	if len(chunks) == 0 {
		err = &ValidationError{Reason: "chunks must be a non-empty array"}
		return FailureMessage(err), IngestResult{}, err
	}

	res, err = s.store(ctx, chunker.Preview(chunks), chunker.PassThrough(chunks))
	if err != nil {
		return FailureMessage(err), IngestResult{}, err
	}
	return SuccessMessage, res, nil
}

// store embeds first, then writes the resource and its rows in one
// transaction so a failed batch leaves no resource behind.
func (s *ingestionService) store(ctx context.Context, resourceContent string, chunks []string) (IngestResult, error) {
	vectors, err := s.embedder.EmbedMany(ctx, chunks)
	if err != nil {
		return IngestResult{}, err
	}

	rows := make([]domain.ChunkVector, len(chunks))
	for i := range chunks {
		rows[i] = domain.ChunkVector{Content: chunks[i], Vector: vectors[i]}
	}

	var resourceID string
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		res, err := s.repo.InsertResource(dbc, resourceContent)
		if err != nil {
			return newStoreError("insert resource", err)
		}
		if err := s.repo.InsertEmbeddings(dbc, res.ID, rows); err != nil {
			return newStoreError("insert embeddings", err)
		}
		resourceID = res.ID
		return nil
	})
	if txErr != nil {
		if _, ok := txErr.(*StoreError); !ok {
			txErr = newStoreError("transaction", txErr)
		}
		return IngestResult{}, txErr
	}
	return IngestResult{ResourceID: resourceID, Chunks: len(chunks)}, nil
}

func (s *ingestionService) observe(ctx context.Context, path string, chunks int, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = errorKind(err)
	}
	observability.Current().ObserveIngest(path, status, chunks, time.Since(start))

	fields := append([]interface{}{"path", path, "chunks", chunks, "duration_ms", time.Since(start).Milliseconds()}, ctxutil.LogFields(ctx)...)
	if err != nil {
		s.log.Warn("ingestion failed", append(fields, "kind", status, "error", err)...)
		return
	}
	s.log.Info("ingestion complete", fields...)
}

// errorKind labels an error for metrics.
func errorKind(err error) string {
	switch err.(type) {
	case *ValidationError:
		return "validation"
	case *EmbeddingProviderError:
		return "embedding"
	case *StoreError:
		return "store"
	case *CollaboratorError:
		return "collaborator"
	default:
		return "error"
	}
}
