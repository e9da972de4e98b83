package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/hyperjump/tansaku/internal/embedding"
	"github.com/hyperjump/tansaku/internal/models"
)

// topK bounds; caller values outside the range are clamped, not rejected.
const (
	minTopK = 1
	maxTopK = 50
)

// ErrEmptyQuery is returned for missing or blank query text.
var ErrEmptyQuery = errors.New("query must not be empty")

// Search embeds the query and ranks the corpus by cosine similarity.
// The scan is a linear pass over every embedded chunk; at single-repository
// scale no index structure is needed. Ties keep corpus order (stable sort).
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]models.SearchMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if topK < minTopK {
		topK = minTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	queryEmb, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	type scored struct {
		doc   *models.Doc
		score float64
	}
	scores := make([]scored, 0, len(ix.docs))
	for _, d := range ix.docs {
		if d.Embedding == nil {
			// Build-in-progress chunk; never returned.
			continue
		}
		scores = append(scores, scored{doc: d, score: embedding.Cosine(queryEmb, d.Embedding)})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	matches := make([]models.SearchMatch, 0, topK)
	for _, sc := range scores[:topK] {
		matches = append(matches, models.SearchMatch{
			Path:      sc.doc.Path,
			Score:     math.Round(sc.score*10000) / 10000,
			Snippet:   sc.doc.Text,
			LineCount: sc.doc.LineCount,
			FileSize:  sc.doc.FileSize,
		})
	}
	return matches, nil
}
