package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/libservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *libservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Items.
	r.Get("/items", h.ListItems)
	r.Post("/items", h.SaveItem)
	r.Get("/items/*", h.GetItem)

	// Search and suggestions.
	r.Get("/search", h.Search)
	r.Get("/suggest", h.Suggest)
	r.Get("/stats", h.Stats)

	// Chains.
	r.Get("/chains", h.ListChains)
	r.Get("/chains/*", h.GetChain)

	// Sessions.
	r.Post("/sessions", h.StartSession)
	r.Get("/sessions/{id}", h.SessionStep)
	r.Post("/sessions/{id}/advance", h.Advance)
	r.Post("/sessions/{id}/jump", h.Jump)
	r.Patch("/sessions/{id}/context", h.PatchContext)
	r.Delete("/sessions/{id}", h.EndSession)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
