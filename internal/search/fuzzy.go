// Package search implements approximate name resolution and keyword scoring
// over the content index.
package search

import (
	"sort"
	"strings"

	"github.com/starford/raido/internal/models"
)

// Index is the read surface the search components need. The library aggregate
// satisfies it; tests swap in fixtures.
type Index interface {
	Item(id string) (*models.Item, bool)
	All() []*models.Item
	Entries() []models.SearchEntry
}

// minConfidence is the floor below which a fuzzy match is treated as a miss.
const minConfidence = 0.5

// Resolver resolves a free-form name to the single best-matching item.
type Resolver interface {
	Resolve(query string) (*models.Item, float64)
	Nearest(query string, n int) []*models.Item
}

// FuzzyResolver is the tiered-heuristic Resolver over an Index.
type FuzzyResolver struct {
	idx Index
}

// NewFuzzyResolver creates a FuzzyResolver over idx.
func NewFuzzyResolver(idx Index) *FuzzyResolver {
	return &FuzzyResolver{idx: idx}
}

// Resolve returns the best-matching item for query, or nil when no candidate
// scores at least the minimum confidence. Exact identifier matches (with or
// without an .md suffix) short-circuit at score 1.0; otherwise the highest
// score across every item's identifier, name, and aliases wins.
func (r *FuzzyResolver) Resolve(query string) (*models.Item, float64) {
	q := normalize(query)
	if q == "" {
		return nil, 0
	}

	if it, ok := r.idx.Item(q); ok {
		return it, 1.0
	}
	if it, ok := r.idx.Item(strings.TrimSuffix(q, ".md")); ok {
		return it, 1.0
	}

	var best *models.Item
	bestScore := 0.0
	for _, it := range r.idx.All() {
		if s := itemScore(q, it); s > bestScore {
			best, bestScore = it, s
		}
	}
	if bestScore < minConfidence {
		return nil, 0
	}
	return best, bestScore
}

// Nearest returns up to n "did you mean" candidates ranked by fuzzy score,
// ignoring the confidence cutoff.
func (r *FuzzyResolver) Nearest(query string, n int) []*models.Item {
	q := normalize(query)
	if q == "" || n <= 0 {
		return nil
	}

	type scored struct {
		item  *models.Item
		score float64
	}
	var all []scored
	for _, it := range r.idx.All() {
		if s := itemScore(q, it); s > 0 {
			all = append(all, scored{it, s})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })
	if len(all) > n {
		all = all[:n]
	}
	out := make([]*models.Item, len(all))
	for i, s := range all {
		out[i] = s.item
	}
	return out
}

// itemScore is the maximum Score of query against the item's identifier,
// display name, and every alias.
func itemScore(q string, it *models.Item) float64 {
	best := Score(q, it.ID)
	if s := Score(q, it.Name); s > best {
		best = s
	}
	for _, alias := range it.Metadata.Aliases {
		if s := Score(q, alias); s > best {
			best = s
		}
	}
	return best
}

// Score computes the tiered fuzzy score of query against candidate:
// 1.0 for normalized equality, 0.8 for containment in either direction,
// 0.5 × shared-word ratio, else 0.3 × positional character overlap.
// The result is always within [0, 1].
func Score(query, candidate string) float64 {
	q := normalize(query)
	c := normalize(candidate)
	if q == "" || c == "" {
		return 0
	}
	if q == c {
		return 1.0
	}
	if strings.Contains(c, q) || strings.Contains(q, c) {
		return 0.8
	}

	qWords := strings.Fields(q)
	cWords := strings.Fields(c)
	if len(qWords) > 0 {
		cSet := make(map[string]struct{}, len(cWords))
		for _, w := range cWords {
			cSet[w] = struct{}{}
		}
		matched := 0
		for _, w := range qWords {
			if _, ok := cSet[w]; ok {
				matched++
			}
		}
		if matched > 0 {
			return 0.5 * float64(matched) / float64(len(qWords))
		}
	}

	return 0.3 * charOverlap(q, c)
}

// charOverlap is a crude positional overlap ratio: matching bytes at the
// same position, over the longer length.
func charOverlap(a, b string) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	matches := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			matches++
		}
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return float64(matches) / float64(longer)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
