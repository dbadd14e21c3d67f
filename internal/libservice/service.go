// Package libservice is the facade consumed by the HTTP and MCP surfaces.
// It wires the index, search, suggestion, and session components together
// and owns the cross-cutting behaviors: lazy initialization, fuzzy fallback
// on lookups, and "did you mean" candidates on misses.
package libservice

import (
	"context"
	"log/slog"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/library"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/search"
	"github.com/starford/raido/internal/session"
	"github.com/starford/raido/internal/suggest"
)

// maxCandidates bounds the "did you mean" list returned on a lookup miss.
const maxCandidates = 3

// ItemResult is a lookup outcome: the item on a hit, or nearest candidates
// on a miss.
type ItemResult struct {
	Item       *models.Item   `json:"item,omitempty"`
	Candidates []*models.Item `json:"candidates,omitempty"`
}

// Service coordinates the content index and its query engines.
type Service struct {
	lib       *library.Library
	resolver  search.Resolver
	engine    *search.Engine
	suggester *suggest.Engine
	sessions  *session.Manager
	logger    *slog.Logger
}

// New creates a Service over the given library.
func New(lib *library.Library, logger *slog.Logger) *Service {
	return &Service{
		lib:       lib,
		resolver:  search.NewFuzzyResolver(lib),
		engine:    search.NewEngine(lib),
		suggester: suggest.NewEngine(lib),
		sessions:  session.NewManager(),
		logger:    logger,
	}
}

// LoadSuggestionRules overlays external intent patterns from a YAML file.
func (s *Service) LoadSuggestionRules(path string) {
	s.suggester.LoadRules(path, s.logger)
}

// Initialize runs the initial scan. Idempotent and single-flight.
func (s *Service) Initialize(ctx context.Context) error {
	return s.lib.EnsureReady(ctx)
}

// GetItem resolves name exactly or fuzzily. On a miss the result carries up
// to three nearest candidates instead of an item.
func (s *Service) GetItem(ctx context.Context, name string) (*ItemResult, error) {
	if err := s.lib.EnsureReady(ctx); err != nil {
		return nil, err
	}
	if item, _ := s.resolver.Resolve(name); item != nil {
		return &ItemResult{Item: item}, nil
	}
	return &ItemResult{Candidates: s.resolver.Nearest(name, maxCandidates)}, nil
}

// Search returns items ranked by keyword relevance.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.ScoredItem, error) {
	if err := s.lib.EnsureReady(ctx); err != nil {
		return nil, err
	}
	return s.engine.Search(query, limit), nil
}

// Suggest matches a free-form message against the intent pattern table.
func (s *Service) Suggest(ctx context.Context, message string, limit int) ([]models.Suggestion, error) {
	if err := s.lib.EnsureReady(ctx); err != nil {
		return nil, err
	}
	return s.suggester.Suggest(message, limit), nil
}

// ByCategory lists every item in a category.
func (s *Service) ByCategory(ctx context.Context, cat string) ([]*models.Item, error) {
	if err := s.lib.EnsureReady(ctx); err != nil {
		return nil, err
	}
	c, err := models.ParseCategory(cat)
	if err != nil {
		return nil, apperr.ErrInvalidCategory
	}
	return s.lib.ByCategory(c), nil
}

// AllItems lists every indexed item.
func (s *Service) AllItems(ctx context.Context) ([]*models.Item, error) {
	if err := s.lib.EnsureReady(ctx); err != nil {
		return nil, err
	}
	return s.lib.All(), nil
}

// Stats summarises the index.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	if err := s.lib.EnsureReady(ctx); err != nil {
		return models.Stats{}, err
	}
	return s.lib.Stats(), nil
}

// GetChain resolves a workflow by identifier or fuzzy name. An optional
// "chains/" prefix is accepted on the name.
func (s *Service) GetChain(ctx context.Context, name string) (*models.Workflow, error) {
	if err := s.lib.EnsureReady(ctx); err != nil {
		return nil, err
	}
	if wf, ok := s.lib.Workflow(name); ok {
		return wf, nil
	}
	if wf, ok := s.lib.Workflow(string(models.CategoryChains) + "/" + strings.TrimPrefix(name, "chains/")); ok {
		return wf, nil
	}
	// Fuzzy fall-back through the item resolver.
	if item, _ := s.resolver.Resolve(name); item != nil {
		if wf, ok := s.lib.Workflow(item.ID); ok {
			return wf, nil
		}
	}
	return nil, apperr.ErrNotFound
}

// AllChains lists every parsed workflow.
func (s *Service) AllChains(ctx context.Context) ([]*models.Workflow, error) {
	if err := s.lib.EnsureReady(ctx); err != nil {
		return nil, err
	}
	return s.lib.Workflows(), nil
}

// Save persists a new item into the library and indexes it.
func (s *Service) Save(ctx context.Context, req models.SaveRequest) (*models.Item, error) {
	if err := s.lib.EnsureReady(ctx); err != nil {
		return nil, err
	}
	return s.lib.Save(req)
}

// StartSession begins a workflow traversal.
func (s *Service) StartSession(ctx context.Context, chainName string, sessCtx map[string]string) (*models.Session, error) {
	wf, err := s.GetChain(ctx, chainName)
	if err != nil {
		return nil, err
	}
	return s.sessions.Start(wf, sessCtx), nil
}

// Advance moves a session to its next step.
func (s *Service) Advance(sessionID string) (*models.Session, error) {
	return s.sessions.Advance(sessionID)
}

// JumpTo moves a session to step n when in range.
func (s *Service) JumpTo(sessionID string, n int) (*models.Session, error) {
	return s.sessions.JumpTo(sessionID, n)
}

// UpdateSessionContext shallow-merges patch into a session's context map.
func (s *Service) UpdateSessionContext(sessionID string, patch map[string]string) (*models.Session, error) {
	return s.sessions.UpdateContext(sessionID, patch)
}

// SessionStep returns the session's current step with substituted
// instruction text, plus a progress line.
func (s *Service) SessionStep(sessionID string) (*models.Step, *models.Session, string, error) {
	step, sess, err := s.sessions.CurrentStep(sessionID)
	if err != nil {
		return nil, nil, "", err
	}
	progress, err := s.sessions.Progress(sessionID)
	if err != nil {
		return nil, nil, "", err
	}
	return step, sess, progress, nil
}

// EndSession removes a session.
func (s *Service) EndSession(sessionID string) error {
	return s.sessions.End(sessionID)
}
