package suggest

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/testutil"
)

type fixtureLookup map[string]*models.Item

func (f fixtureLookup) Item(id string) (*models.Item, bool) {
	it, ok := f[id]
	return it, ok
}

func fixture(ids ...string) fixtureLookup {
	f := make(fixtureLookup)
	for _, id := range ids {
		f[id] = &models.Item{ID: id, Name: filepath.Base(id)}
	}
	return f
}

func TestSuggest_MatchAndConfidence(t *testing.T) {
	e := NewEngine(fixture("prompts/prd-generator"))
	got := e.Suggest("help me write a prd with requirements", 5)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	s := got[0]
	if s.Item.ID != "prompts/prd-generator" {
		t.Errorf("item = %q", s.Item.ID)
	}
	// Two keywords matched at priority 8: 0.3 + 0.4 + 0.24, capped at 0.9.
	if math.Abs(s.Confidence-0.9) > 1e-9 {
		t.Errorf("confidence = %f, want 0.9", s.Confidence)
	}
	if s.Reason == "" {
		t.Error("reason missing")
	}
}

func TestSuggest_ConfidenceFormula(t *testing.T) {
	e := NewEngine(fixture("chains/release"))
	got := e.Suggest("time to ship", 5)
	if len(got) != 1 {
		t.Fatalf("len = %d", len(got))
	}
	// One keyword at priority 6: 0.3 + 0.2 + 0.18 = 0.68.
	if math.Abs(got[0].Confidence-0.68) > 1e-9 {
		t.Errorf("confidence = %f, want 0.68", got[0].Confidence)
	}
}

func TestSuggest_DeduplicatesAndSorts(t *testing.T) {
	e := NewEngine(fixture("skills/debugging", "chains/bug-triage", "chains/release"))
	got := e.Suggest("debug this bug before we ship the release", 10)

	seen := make(map[string]bool)
	for _, s := range got {
		if seen[s.Item.ID] {
			t.Errorf("duplicate suggestion %q", s.Item.ID)
		}
		seen[s.Item.ID] = true
	}
	for i := 1; i < len(got); i++ {
		if got[i].Confidence > got[i-1].Confidence {
			t.Error("suggestions not sorted by confidence descending")
		}
	}
}

func TestSuggest_UnknownItemsSkipped(t *testing.T) {
	// Index holds none of the recommended identifiers.
	e := NewEngine(fixture())
	if got := e.Suggest("review my pull request", 5); len(got) != 0 {
		t.Errorf("got %d suggestions for unindexed items", len(got))
	}
}

func TestSuggest_NoMatch(t *testing.T) {
	e := NewEngine(fixture("prompts/prd-generator"))
	if got := e.Suggest("completely unrelated gibberish", 5); len(got) != 0 {
		t.Errorf("got %d suggestions, want 0", len(got))
	}
}

func TestSuggest_Limit(t *testing.T) {
	e := NewEngine(fixture("skills/debugging", "chains/bug-triage"))
	if got := e.Suggest("debug error", 1); len(got) != 1 {
		t.Errorf("len = %d, want limit 1", len(got))
	}
}

func TestLoadRules_OverlayWins(t *testing.T) {
	root, _ := testutil.TestRoot(t)
	rules := `
patterns:
  - keywords: [prd]
    intent: custom intent
    suggestedItems: [prompts/custom-prd]
    priority: 9
`
	testutil.Seed(t, root, "rules.yaml", rules)

	e := NewEngine(fixture("prompts/custom-prd", "prompts/prd-generator"))
	e.LoadRules(filepath.Join(root, "rules.yaml"), testutil.QuietLogger())

	got := e.Suggest("write a prd", 5)
	if len(got) < 2 {
		t.Fatalf("len = %d, want both custom and default items", len(got))
	}
	if got[0].Item.ID != "prompts/custom-prd" {
		t.Errorf("first suggestion = %q, want the external rule's item", got[0].Item.ID)
	}
}

func TestLoadRules_MalformedIgnored(t *testing.T) {
	root, _ := testutil.TestRoot(t)
	testutil.Seed(t, root, "rules.yaml", ": not yaml {{{")

	e := NewEngine(fixture("prompts/prd-generator"))
	e.LoadRules(filepath.Join(root, "rules.yaml"), testutil.QuietLogger())

	if got := e.Suggest("write a prd", 5); len(got) != 1 {
		t.Errorf("defaults lost after malformed rules file: %d suggestions", len(got))
	}
}

func TestLoadRules_InvalidPriorityRejected(t *testing.T) {
	root, _ := testutil.TestRoot(t)
	rules := `
patterns:
  - keywords: [x]
    intent: out of range
    suggestedItems: [prompts/x]
    priority: 42
`
	testutil.Seed(t, root, "rules.yaml", rules)

	e := NewEngine(fixture("prompts/prd-generator"))
	e.LoadRules(filepath.Join(root, "rules.yaml"), testutil.QuietLogger())

	// The whole file is rejected; defaults still work.
	if got := e.Suggest("write a prd", 5); len(got) != 1 {
		t.Errorf("defaults lost after invalid rules file: %d suggestions", len(got))
	}
}
