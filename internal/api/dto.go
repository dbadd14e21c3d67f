package api

import (
	"github.com/starford/raido/internal/libservice"
	"github.com/starford/raido/internal/models"
)

// SaveItemRequest is the request body for creating a library item.
type SaveItemRequest = models.SaveRequest

// StartSessionRequest is the request body for starting a chain session.
type StartSessionRequest struct {
	Chain   string            `json:"chain"`
	Context map[string]string `json:"context,omitempty"`
}

// JumpRequest is the request body for moving a session to a specific step.
type JumpRequest struct {
	Step int `json:"step"`
}

// ContextPatchRequest is the request body for merging session context keys.
type ContextPatchRequest struct {
	Context map[string]string `json:"context"`
}

// ItemResponse wraps a lookup outcome (aliased from the service layer).
type ItemResponse = libservice.ItemResult

// ItemListResponse wraps item listings.
type ItemListResponse struct {
	Items []*models.Item `json:"items"`
	Total int            `json:"total"`
}

// SearchResponse wraps ranked search results.
type SearchResponse struct {
	Results []models.ScoredItem `json:"results"`
}

// SuggestResponse wraps intent-based recommendations.
type SuggestResponse struct {
	Suggestions []models.Suggestion `json:"suggestions"`
}

// ChainListResponse wraps workflow listings.
type ChainListResponse struct {
	Chains []*models.Workflow `json:"chains"`
	Total  int                `json:"total"`
}

// SessionStepResponse carries a session plus its rendered current step.
type SessionStepResponse struct {
	Session  *models.Session `json:"session"`
	Step     *models.Step    `json:"step"`
	Progress string          `json:"progress"`
}
