// Package session tracks runtime progress through workflow traversals.
//
// Sessions live only in process memory. Two concurrent calls against the same
// session id are last-write-wins; callers needing stronger ordering must
// serialise their own calls.
package session

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

var placeholderRe = regexp.MustCompile(`\[([^\[\]\n]+)\]|\{\{([^{}\n]+)\}\}`)

// Manager owns all live sessions.
type Manager struct {
	mu        sync.Mutex
	sessions  map[string]*models.Session
	workflows map[string]*models.Workflow // by session id, for rendering
}

// NewManager creates an empty session Manager.
func NewManager() *Manager {
	return &Manager{
		sessions:  make(map[string]*models.Session),
		workflows: make(map[string]*models.Workflow),
	}
}

// Start creates a session at step 1 of the workflow with the given context.
func (m *Manager) Start(wf *models.Workflow, ctx map[string]string) *models.Session {
	s := &models.Session{
		ID:           uuid.NewString(),
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		CurrentStep:  1,
		TotalSteps:   len(wf.Steps),
		Context:      make(map[string]string, len(ctx)),
		StartedAt:    time.Now(),
	}
	for k, v := range ctx {
		s.Context[k] = v
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.workflows[s.ID] = wf
	m.mu.Unlock()
	return s
}

// Get returns a copy of the session with the given id.
func (m *Manager) Get(id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return snapshot(s), nil
}

// Advance marks the current step completed and moves to the next step.
// At the final step the pointer stays put; detecting completion and ending
// the session is the caller's responsibility.
func (m *Manager) Advance(id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	s.CompletedSteps = markCompleted(s.CompletedSteps, s.CurrentStep)
	if s.CurrentStep < s.TotalSteps {
		s.CurrentStep++
	}
	return snapshot(s), nil
}

// JumpTo sets the current step to n. Out-of-range values are a no-op.
func (m *Manager) JumpTo(id string, n int) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	if n >= 1 && n <= s.TotalSteps {
		s.CurrentStep = n
	}
	return snapshot(s), nil
}

// UpdateContext shallow-merges patch into the session context.
func (m *Manager) UpdateContext(id string, patch map[string]string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	for k, v := range patch {
		s.Context[k] = v
	}
	return snapshot(s), nil
}

// End removes the session.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return apperr.ErrNotFound
	}
	delete(m.sessions, id)
	delete(m.workflows, id)
	return nil
}

// CurrentStep returns the current step of the session's workflow with
// placeholders in its instruction substituted from the session context.
func (m *Manager) CurrentStep(id string) (*models.Step, *models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil, apperr.ErrNotFound
	}
	wf := m.workflows[id]
	if s.CurrentStep < 1 || s.CurrentStep > len(wf.Steps) {
		return nil, nil, fmt.Errorf("session: step %d out of range", s.CurrentStep)
	}
	step := wf.Steps[s.CurrentStep-1]
	step.Instruction = Substitute(step.Instruction, s.Context)
	return &step, snapshot(s), nil
}

// Progress renders a human-readable progress line for the session.
func (m *Manager) Progress(id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return "", apperr.ErrNotFound
	}
	return fmt.Sprintf("%s: step %d of %d (%d completed)",
		s.WorkflowName, s.CurrentStep, s.TotalSteps, len(s.CompletedSteps)), nil
}

// Substitute replaces [Some Name] and {{some_name}} placeholders with values
// from ctx. The placeholder is normalized to lowercase-with-underscores and
// looked up under the normalized key first, then the raw key. Unresolved
// placeholders stay verbatim.
func Substitute(text string, ctx map[string]string) string {
	if len(ctx) == 0 {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		inner := match
		if strings.HasPrefix(match, "[") {
			inner = match[1 : len(match)-1]
		} else {
			inner = match[2 : len(match)-2]
		}
		norm := strings.ToLower(strings.TrimSpace(inner))
		norm = strings.ReplaceAll(norm, " ", "_")
		if v, ok := ctx[norm]; ok {
			return v
		}
		if v, ok := ctx[strings.TrimSpace(inner)]; ok {
			return v
		}
		return match
	})
}

// markCompleted appends step to completed, keeping entries unique and ordered.
func markCompleted(completed []int, step int) []int {
	for _, n := range completed {
		if n == step {
			return completed
		}
	}
	return append(completed, step)
}

func snapshot(s *models.Session) *models.Session {
	cp := *s
	cp.CompletedSteps = append([]int(nil), s.CompletedSteps...)
	cp.Context = make(map[string]string, len(s.Context))
	for k, v := range s.Context {
		cp.Context[k] = v
	}
	return &cp
}
