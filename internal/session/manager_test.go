package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

func threeStepWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:   "chains/release",
		Name: "Release",
		Steps: []models.Step{
			{Number: 1, Title: "Tag", Instruction: "Tag [Release Version] on {{branch}}."},
			{Number: 2, Title: "Build", Instruction: "Build it."},
			{Number: 3, Title: "Ship", Instruction: "Ship it."},
		},
	}
}

func TestStart(t *testing.T) {
	m := NewManager()
	s := m.Start(threeStepWorkflow(), map[string]string{"branch": "main"})

	if s.ID == "" {
		t.Error("missing session id")
	}
	if s.CurrentStep != 1 || s.TotalSteps != 3 {
		t.Errorf("session = %+v", s)
	}
	if len(s.CompletedSteps) != 0 {
		t.Errorf("completed = %v, want empty", s.CompletedSteps)
	}
}

func TestAdvance_ScenarioD(t *testing.T) {
	m := NewManager()
	s := m.Start(threeStepWorkflow(), nil)

	for i := 0; i < 2; i++ {
		var err error
		s, err = m.Advance(s.ID)
		if err != nil {
			t.Fatal(err)
		}
	}
	if s.CurrentStep != 3 {
		t.Errorf("currentStep = %d, want 3", s.CurrentStep)
	}
	if len(s.CompletedSteps) != 2 || s.CompletedSteps[0] != 1 || s.CompletedSteps[1] != 2 {
		t.Errorf("completed = %v, want [1 2]", s.CompletedSteps)
	}
}

func TestAdvance_CeilingIsNoOp(t *testing.T) {
	m := NewManager()
	s := m.Start(threeStepWorkflow(), nil)

	for i := 0; i < 5; i++ {
		var err error
		s, err = m.Advance(s.ID)
		if err != nil {
			t.Fatal(err)
		}
		if s.CurrentStep < 1 || s.CurrentStep > s.TotalSteps {
			t.Fatalf("currentStep = %d escaped [1,%d]", s.CurrentStep, s.TotalSteps)
		}
	}
	if s.CurrentStep != 3 {
		t.Errorf("currentStep = %d, want 3 at ceiling", s.CurrentStep)
	}
	// Final step gets marked completed but never duplicated.
	if len(s.CompletedSteps) != 3 {
		t.Errorf("completed = %v, want [1 2 3]", s.CompletedSteps)
	}
}

func TestJumpTo_Bounds(t *testing.T) {
	m := NewManager()
	s := m.Start(threeStepWorkflow(), nil)

	s, err := m.JumpTo(s.ID, 3)
	if err != nil || s.CurrentStep != 3 {
		t.Fatalf("jump to 3: step = %d, err = %v", s.CurrentStep, err)
	}
	for _, n := range []int{0, -1, 4, 100} {
		s, err = m.JumpTo(s.ID, n)
		if err != nil {
			t.Fatal(err)
		}
		if s.CurrentStep != 3 {
			t.Errorf("jumpTo(%d) moved the pointer to %d", n, s.CurrentStep)
		}
	}
}

func TestEnd(t *testing.T) {
	m := NewManager()
	s := m.Start(threeStepWorkflow(), nil)

	if err := m.End(s.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := m.End(s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("double end err = %v, want ErrNotFound", err)
	}
}

func TestCurrentStep_Substitution(t *testing.T) {
	m := NewManager()
	s := m.Start(threeStepWorkflow(), map[string]string{
		"release_version": "v1.2.0",
		"branch":          "main",
	})

	step, _, err := m.CurrentStep(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if step.Instruction != "Tag v1.2.0 on main." {
		t.Errorf("instruction = %q", step.Instruction)
	}
}

func TestUpdateContext_Merge(t *testing.T) {
	m := NewManager()
	s := m.Start(threeStepWorkflow(), map[string]string{"branch": "main"})

	if _, err := m.UpdateContext(s.ID, map[string]string{"release_version": "v2.0.0"}); err != nil {
		t.Fatal(err)
	}
	step, got, err := m.CurrentStep(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Context["branch"] != "main" {
		t.Error("existing context key lost in merge")
	}
	if !strings.Contains(step.Instruction, "v2.0.0") {
		t.Errorf("instruction = %q", step.Instruction)
	}
}

func TestSubstitute(t *testing.T) {
	ctx := map[string]string{
		"feature_name": "dark mode",
		"RawKey":       "raw value",
	}
	tests := []struct{ in, want string }{
		{"Build [Feature Name] now", "Build dark mode now"},
		{"Build {{feature_name}} now", "Build dark mode now"},
		{"Use [RawKey] here", "Use raw value here"},
		{"Keep [Unknown Thing] verbatim", "Keep [Unknown Thing] verbatim"},
		{"Keep {{unknown}} verbatim", "Keep {{unknown}} verbatim"},
		{"No placeholders", "No placeholders"},
	}
	for _, tt := range tests {
		if got := Substitute(tt.in, ctx); got != tt.want {
			t.Errorf("Substitute(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestProgress(t *testing.T) {
	m := NewManager()
	s := m.Start(threeStepWorkflow(), nil)
	if _, err := m.Advance(s.ID); err != nil {
		t.Fatal(err)
	}

	line, err := m.Progress(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if line != "Release: step 2 of 3 (1 completed)" {
		t.Errorf("progress = %q", line)
	}
}
