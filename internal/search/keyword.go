package search

import (
	"sort"
	"strings"

	"github.com/starford/raido/internal/models"
)

// DefaultLimit caps search results when the caller passes no limit.
const DefaultLimit = 10

// Engine scores indexed documents by token overlap against their search blobs.
type Engine struct {
	idx Index
}

// NewEngine creates a keyword search Engine over idx.
func NewEngine(idx Index) *Engine {
	return &Engine{idx: idx}
}

// Search returns items ranked by weighted token overlap. Each query token
// found as a substring of an entry's blob adds the entry's weight once; a
// name containing the full query doubles the score and a title containing it
// multiplies by 1.5. Zero-score entries are discarded.
func (e *Engine) Search(query string, limit int) []models.ScoredItem {
	if limit <= 0 {
		limit = DefaultLimit
	}
	q := normalize(query)
	tokens := strings.Fields(q)
	if len(tokens) == 0 {
		return nil
	}

	var results []models.ScoredItem
	for _, entry := range e.idx.Entries() {
		score := 0.0
		for _, tok := range tokens {
			if strings.Contains(entry.Blob, tok) {
				score += entry.Weight
			}
		}
		if score == 0 {
			continue
		}
		item, ok := e.idx.Item(entry.ID)
		if !ok {
			continue
		}
		if strings.Contains(normalize(item.Name), q) {
			score *= 2
		}
		if strings.Contains(normalize(item.Metadata.Title), q) {
			score *= 1.5
		}
		results = append(results, models.ScoredItem{Item: item, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
