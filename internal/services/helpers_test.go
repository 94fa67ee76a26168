package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/recipes-assistant-backend/internal/data/repos"
	"github.com/yungbote/recipes-assistant-backend/internal/data/repos/testutil"
	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/dbctx"
)

// conceptEmbedder maps text onto a tiny keyword space so similarity is
// predictable: cook, pasta, time, water, onion, other.
type conceptEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

var concepts = [][]string{
	{"cook"},
	{"pasta"},
	{"long", "minute"},
	{"water", "boil"},
	{"onion", "chop", "saute"},
}

func conceptVector(text string) []float32 {
	text = strings.ToLower(text)
	v := make([]float32, len(concepts)+1)
	var norm float64
	for i, words := range concepts {
		for _, w := range words {
			if strings.Contains(text, w) {
				v[i] = 1
			}
		}
		norm += float64(v[i] * v[i])
	}
	if norm == 0 {
		v[len(concepts)] = 1
		return v
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

func (e *conceptEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (e *conceptEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, &EmbeddingProviderError{Op: "embed", Err: e.err}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = conceptVector(t)
	}
	return out, nil
}

// failingRepo fails InsertEmbeddings after the resource row was written.
type failingRepo struct {
	repos.ResourceRepo
}

func (f failingRepo) InsertEmbeddings(dbc dbctx.Context, resourceID string, rows []domain.ChunkVector) error {
	return errors.New("disk full")
}

type pipeline struct {
	db        *gorm.DB
	repo      repos.ResourceRepo
	embedder  *conceptEmbedder
	ingestion IngestionService
	retriever Retriever
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := repos.NewResourceRepo(db, log)
	emb := &conceptEmbedder{}
	return &pipeline{
		db:        db,
		repo:      repo,
		embedder:  emb,
		ingestion: NewIngestionService(db, log, repo, emb),
		retriever: NewRetriever(log, repo, emb),
	}
}

func (p *pipeline) counts(t *testing.T) (resources int, embeddings int64) {
	t.Helper()
	dbc := dbctx.Context{Ctx: context.Background()}
	list, err := p.repo.ListResources(dbc, 0)
	if err != nil {
		t.Fatalf("list resources: %v", err)
	}
	n, err := p.repo.CountEmbeddings(dbc, "")
	if err != nil {
		t.Fatalf("count embeddings: %v", err)
	}
	return len(list), n
}
