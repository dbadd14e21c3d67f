package workflow

import (
	"strings"
	"testing"

	"github.com/starford/raido/internal/models"
)

const sampleChain = `# Feature Development

> Guide a feature from idea to merged code.

## Overview

` + "```" + `
Take a rough idea, produce a design, implement it step by step.
` + "```" + `

## Prerequisites

- A written problem statement
- Access to the repository

---

## Step 1: Draft the design

**Prompt:**

` + "```" + `
Write a design doc for [Feature Name] covering {{scope}}.
` + "```" + `

**Expected Output:**

- A design document
- A list of open questions

**Decision Point:** proceed only if the design is approved.

## Step 2: Implement

**Prompt:**

` + "```" + `
Implement the approved design.
` + "```" + `

**Expected Output:**

- Working code with tests

## Tips

- Keep steps small
- Re-run the chain when scope changes
`

func chainItem(body string) *models.Item {
	return &models.Item{
		ID:       "chains/feature-development",
		Name:     "feature-development",
		Category: models.CategoryChains,
		Body:     strings.TrimSpace(body),
		Metadata: models.Metadata{Title: "Feature Development", Description: "Guide a feature from idea to merged code."},
	}
}

func TestParse_FullChain(t *testing.T) {
	wf := Parse(chainItem(sampleChain))

	if wf.Name != "Feature Development" {
		t.Errorf("name = %q", wf.Name)
	}
	if wf.Overview != "Take a rough idea, produce a design, implement it step by step." {
		t.Errorf("overview = %q", wf.Overview)
	}
	if len(wf.Prerequisites) != 2 || wf.Prerequisites[0] != "A written problem statement" {
		t.Errorf("prerequisites = %v", wf.Prerequisites)
	}
	if len(wf.Tips) != 2 || wf.Tips[1] != "Re-run the chain when scope changes" {
		t.Errorf("tips = %v", wf.Tips)
	}
	if len(wf.Steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(wf.Steps))
	}

	s1 := wf.Steps[0]
	if s1.Number != 1 || s1.Title != "Draft the design" {
		t.Errorf("step 1 = %+v", s1)
	}
	if !strings.Contains(s1.Instruction, "[Feature Name]") || !strings.Contains(s1.Instruction, "{{scope}}") {
		t.Errorf("step 1 instruction = %q", s1.Instruction)
	}
	if len(s1.ExpectedOutput) != 2 || s1.ExpectedOutput[1] != "A list of open questions" {
		t.Errorf("step 1 expected output = %v", s1.ExpectedOutput)
	}
	if s1.DecisionPoint != "proceed only if the design is approved." {
		t.Errorf("step 1 decision = %q", s1.DecisionPoint)
	}

	s2 := wf.Steps[1]
	if s2.Number != 2 || s2.Title != "Implement" {
		t.Errorf("step 2 = %+v", s2)
	}
	if s2.DecisionPoint != "" {
		t.Errorf("step 2 decision = %q, want empty", s2.DecisionPoint)
	}
}

func TestParse_NonContiguousStepLabels(t *testing.T) {
	body := "## Step 3: First\ntext\n## Step 9: Second\ntext\n"
	wf := Parse(chainItem(body))
	if len(wf.Steps) != 2 {
		t.Fatalf("len(steps) = %d, want 2", len(wf.Steps))
	}
	// Labels 3 and 9 in the source, but traversal order is positional.
	if wf.Steps[0].Number != 1 || wf.Steps[1].Number != 2 {
		t.Errorf("step numbers = %d, %d, want 1, 2", wf.Steps[0].Number, wf.Steps[1].Number)
	}
	if wf.Steps[0].Title != "First" || wf.Steps[1].Title != "Second" {
		t.Errorf("titles = %q, %q", wf.Steps[0].Title, wf.Steps[1].Title)
	}
}

func TestParse_MissingSectionsAreEmpty(t *testing.T) {
	wf := Parse(chainItem("Just some prose with no structure at all."))
	if wf.Overview != "" {
		t.Errorf("overview = %q, want empty", wf.Overview)
	}
	if len(wf.Prerequisites) != 0 || len(wf.Tips) != 0 || len(wf.Steps) != 0 {
		t.Errorf("expected all sections empty: %+v", wf)
	}
}

func TestParse_PrerequisitesStopAtRule(t *testing.T) {
	body := "## Prerequisites\n- one\n- two\n---\n- not a prerequisite\n"
	wf := Parse(chainItem(body))
	if len(wf.Prerequisites) != 2 {
		t.Errorf("prerequisites = %v, want 2 entries", wf.Prerequisites)
	}
}

func TestParse_NameFallsBackToItemName(t *testing.T) {
	item := chainItem("## Step 1: Only\ntext\n")
	item.Metadata.Title = ""
	wf := Parse(item)
	if wf.Name != "feature-development" {
		t.Errorf("name = %q, want item name", wf.Name)
	}
}

func TestSourceStepNumber(t *testing.T) {
	n, ok := SourceStepNumber("### Step 7: Anything")
	if !ok || n != 7 {
		t.Errorf("SourceStepNumber = %d, %v", n, ok)
	}
	if _, ok := SourceStepNumber("## Not a step"); ok {
		t.Error("expected no match")
	}
}
