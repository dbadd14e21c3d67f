// Package suggest maps free-text messages onto recommended library items via
// a table of intent patterns.
package suggest

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/models"
)

// DefaultLimit caps suggestions when the caller passes no limit.
const DefaultLimit = 5

// Pattern maps a keyword set to recommended item identifiers.
type Pattern struct {
	Keywords       []string `yaml:"keywords"`
	Intent         string   `yaml:"intent"`
	SuggestedItems []string `yaml:"suggestedItems"`
	Priority       int      `yaml:"priority"`
}

// Validate enforces the external rule schema: keywords and intent required,
// priority within 0-10.
func (p Pattern) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Keywords, validation.Required),
		validation.Field(&p.Intent, validation.Required),
		validation.Field(&p.SuggestedItems, validation.Required),
		validation.Field(&p.Priority, validation.Min(0), validation.Max(10)),
	)
}

// Lookup resolves a recommended identifier to an indexed item.
type Lookup interface {
	Item(id string) (*models.Item, bool)
}

// Engine matches messages against its pattern table.
type Engine struct {
	idx      Lookup
	patterns []Pattern
}

// NewEngine creates an Engine with the built-in pattern table.
func NewEngine(idx Lookup) *Engine {
	return &Engine{idx: idx, patterns: defaultPatterns()}
}

// LoadRules overlays externally supplied patterns from a YAML file onto the
// built-in defaults. A missing, unreadable, or schema-invalid file is logged
// and ignored; the engine keeps its defaults.
func (e *Engine) LoadRules(path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("suggest: rules file unreadable, using defaults",
			slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	var rules struct {
		Patterns []Pattern `yaml:"patterns"`
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		logger.Warn("suggest: rules file malformed, using defaults",
			slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	for i, p := range rules.Patterns {
		if err := p.Validate(); err != nil {
			logger.Warn("suggest: rules file rejected, using defaults",
				slog.String("path", path),
				slog.String("error", fmt.Sprintf("pattern %d: %v", i, err)))
			return
		}
	}
	e.patterns = append(rules.Patterns, defaultPatterns()...)
	logger.Info("suggest: external rules loaded",
		slog.String("path", path), slog.Int("patterns", len(rules.Patterns)))
}

// Suggest matches the message against every pattern and returns a
// deduplicated, confidence-ranked list of recommendations. Confidence is
// min(0.9, 0.3 + 0.2×matchedKeywords + 0.03×priority). The first pattern to
// recommend an identifier wins; later duplicates are dropped.
func (e *Engine) Suggest(message string, limit int) []models.Suggestion {
	if limit <= 0 {
		limit = DefaultLimit
	}
	msg := strings.ToLower(message)

	seen := make(map[string]struct{})
	var out []models.Suggestion
	for _, p := range e.patterns {
		matched := 0
		for _, kw := range p.Keywords {
			if strings.Contains(msg, strings.ToLower(kw)) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		confidence := 0.3 + 0.2*float64(matched) + 0.03*float64(p.Priority)
		if confidence > 0.9 {
			confidence = 0.9
		}
		for _, id := range p.SuggestedItems {
			if _, dup := seen[id]; dup {
				continue
			}
			item, ok := e.idx.Item(id)
			if !ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, models.Suggestion{
				Item:       item,
				Reason:     fmt.Sprintf("message suggests intent: %s", p.Intent),
				Confidence: confidence,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// defaultPatterns is the built-in intent table. External rules are overlaid
// in front of these, so user patterns win identifier dedupe ties.
func defaultPatterns() []Pattern {
	return []Pattern{
		{
			Keywords:       []string{"prd", "requirements", "product spec"},
			Intent:         "writing a product requirements document",
			SuggestedItems: []string{"prompts/prd-generator"},
			Priority:       8,
		},
		{
			Keywords:       []string{"review", "pull request", "diff"},
			Intent:         "reviewing code",
			SuggestedItems: []string{"skills/code-review", "prompts/review-checklist"},
			Priority:       7,
		},
		{
			Keywords:       []string{"bug", "debug", "error", "stack trace"},
			Intent:         "debugging a problem",
			SuggestedItems: []string{"skills/debugging", "chains/bug-triage"},
			Priority:       7,
		},
		{
			Keywords:       []string{"release", "ship", "deploy"},
			Intent:         "shipping a release",
			SuggestedItems: []string{"chains/release"},
			Priority:       6,
		},
		{
			Keywords:       []string{"test", "coverage", "unit test"},
			Intent:         "writing tests",
			SuggestedItems: []string{"prompts/test-writer", "skills/testing"},
			Priority:       5,
		},
		{
			Keywords:       []string{"refactor", "clean up", "tech debt"},
			Intent:         "refactoring code",
			SuggestedItems: []string{"skills/refactoring"},
			Priority:       5,
		},
		{
			Keywords:       []string{"document", "readme", "docs"},
			Intent:         "writing documentation",
			SuggestedItems: []string{"prompts/doc-writer", "templates/readme"},
			Priority:       4,
		},
	}
}
