package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/recipes-assistant-backend/internal/data/repos"
	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/ingestion/embedder"
	"github.com/yungbote/recipes-assistant-backend/internal/observability"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/ctxutil"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/dbctx"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/logger"
)

const (
	DefaultSimilarityThreshold = 0.5
	DefaultTopK                = 4
)

type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.Match, error)
}

type retriever struct {
	log      *logger.Logger
	repo     repos.ResourceRepo
	embedder embedder.Embedder
}

func NewRetriever(baseLog *logger.Logger, repo repos.ResourceRepo, emb embedder.Embedder) Retriever {
	return &retriever{
		log:      baseLog.With("service", "Retriever"),
		repo:     repo,
		embedder: emb,
	}
}

// Retrieve returns at most DefaultTopK chunks whose cosine similarity to
// query exceeds DefaultSimilarityThreshold, best first.
func (r *retriever) Retrieve(ctx context.Context, query string) (matches []domain.Match, err error) {
	ctx = ctxutil.Default(ctx)
	ctx, span := observability.StartSpan(ctx, "retrieve")
	defer func() {
		observability.EndSpan(span, err)
		status := "ok"
		if err != nil {
			status = errorKind(err)
		}
		observability.Current().ObserveRetrieve(status, len(matches))
	}()

	if strings.TrimSpace(query) == "" {
		return nil, &ValidationError{Reason: "query is required"}
	}

	vec, err := r.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, err = r.repo.SearchBySimilarity(dbctx.Context{Ctx: ctx}, vec, DefaultSimilarityThreshold, DefaultTopK)
	if err != nil {
		return nil, newStoreError("similarity search", err)
	}
	span.SetAttributes(attribute.Int("retrieve.matches", len(matches)))
	r.log.Debug("retrieved", append([]interface{}{"matches", len(matches)}, ctxutil.LogFields(ctx)...)...)
	return matches, nil
}
