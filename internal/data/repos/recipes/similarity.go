package recipes

import (
	"fmt"
	"math"
	"sort"

	"github.com/pgvector/pgvector-go"

	"github.com/yungbote/recipes-assistant-backend/internal/domain"
	"github.com/yungbote/recipes-assistant-backend/internal/platform/dbctx"
)

type embeddingRow struct {
	Content   string          `gorm:"column:content"`
	Embedding pgvector.Vector `gorm:"column:embedding"`
}

// searchScan is the fallback for backends without a vector operator: it
// reads every stored vector and ranks in process.
func (r *resourceRepo) searchScan(dbc dbctx.Context, query []float32, threshold float64, limit int) ([]domain.Match, error) {
	var rows []embeddingRow
	if err := dbc.DB(r.db).Model(&domain.EmbeddingRecord{}).Select("content, embedding").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("similarity scan: %w", err)
	}
	out := make([]domain.Match, 0, limit)
	for _, row := range rows {
		sim := CosineSimilarity(query, row.Embedding.Slice())
		if math.IsNaN(sim) || sim <= threshold {
			continue
		}
		out = append(out, domain.Match{Content: row.Content, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CosineSimilarity returns 1 - cosine distance. Mismatched lengths and zero
// vectors yield NaN, matching pgvector.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.NaN()
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return math.NaN()
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
