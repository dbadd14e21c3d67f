package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/libservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *libservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *libservice.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardName extracts the item or chain name from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. prompts%2Fprd-generator).
func wildcardName(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListItems handles GET /api/items.
//
//	@Summary		List indexed items, optionally filtered by category
//	@Tags			items
//	@Produce		json
//	@Param			category	query		string	false	"Category filter"	Enums(prompts, templates, skills, chains)
//	@Success		200			{object}	ItemListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items [get]
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	cat := r.URL.Query().Get("category")

	if cat != "" {
		list, err := h.svc.ByCategory(r.Context(), cat)
		if err != nil {
			if errors.Is(err, apperr.ErrInvalidCategory) {
				writeJSON(w, http.StatusBadRequest, errorBody("unknown category"))
				return
			}
			slog.Error("list items failed", slog.String("category", cat), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		writeJSON(w, http.StatusOK, ItemListResponse{Items: list, Total: len(list)})
		return
	}

	list, err := h.svc.AllItems(r.Context())
	if err != nil {
		slog.Error("list items failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ItemListResponse{Items: list, Total: len(list)})
}

// GetItem handles GET /api/items/*.
//
//	@Summary		Get a single item by name, id, or alias (fuzzy)
//	@Tags			items
//	@Produce		json
//	@Param			name	path		string	true	"Item name or id"
//	@Success		200		{object}	ItemResponse
//	@Failure		404		{object}	ItemResponse
//	@Security		BearerAuth
//	@Router			/items/{name} [get]
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	name := wildcardName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	res, err := h.svc.GetItem(r.Context(), name)
	if err != nil {
		slog.Error("get item failed", slog.String("name", name), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if res.Item == nil {
		// Miss: 404 but the body still carries nearest candidates.
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SaveItem handles POST /api/items.
//
//	@Summary		Create a new library item
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SaveItemRequest	true	"Item to create"
//	@Success		201		{object}	models.Item
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/items [post]
func (h *Handler) SaveItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req SaveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	item, err := h.svc.Save(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidRequest), errors.Is(err, apperr.ErrInvalidCategory):
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		case errors.Is(err, apperr.ErrAlreadyExists):
			writeJSON(w, http.StatusConflict, errorBody("item already exists"))
		default:
			slog.Error("save item failed", slog.String("name", req.Name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// Search handles GET /api/search.
//
//	@Summary		Keyword search across the library
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// Suggest handles GET /api/suggest.
//
//	@Summary		Suggest items for a free-form task description
//	@Tags			search
//	@Produce		json
//	@Param			message	query		string	true	"Task description"
//	@Param			limit	query		int		false	"Max suggestions"
//	@Success		200		{object}	SuggestResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/suggest [get]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("message")
	if msg == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'message' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	suggestions, err := h.svc.Suggest(r.Context(), msg, limit)
	if err != nil {
		slog.Error("suggest failed", slog.String("message", msg), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SuggestResponse{Suggestions: suggestions})
}

// Stats handles GET /api/stats.
//
//	@Summary		Library index statistics
//	@Tags			items
//	@Produce		json
//	@Success		200	{object}	models.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		slog.Error("stats failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ListChains handles GET /api/chains.
//
//	@Summary		List parsed workflow chains
//	@Tags			chains
//	@Produce		json
//	@Success		200	{object}	ChainListResponse
//	@Security		BearerAuth
//	@Router			/chains [get]
func (h *Handler) ListChains(w http.ResponseWriter, r *http.Request) {
	chains, err := h.svc.AllChains(r.Context())
	if err != nil {
		slog.Error("list chains failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, ChainListResponse{Chains: chains, Total: len(chains)})
}

// GetChain handles GET /api/chains/*.
//
//	@Summary		Get a single workflow chain by name (fuzzy)
//	@Tags			chains
//	@Produce		json
//	@Param			name	path		string	true	"Chain name or id"
//	@Success		200		{object}	models.Workflow
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/chains/{name} [get]
func (h *Handler) GetChain(w http.ResponseWriter, r *http.Request) {
	name := wildcardName(r)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	wf, err := h.svc.GetChain(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get chain failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// StartSession handles POST /api/sessions.
//
//	@Summary		Start a workflow chain session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StartSessionRequest	true	"Chain to start"
//	@Success		201		{object}	SessionStepResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Chain == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("chain is required"))
		return
	}
	sess, err := h.svc.StartSession(r.Context(), req.Chain, req.Context)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("chain not found"))
		} else {
			slog.Error("start session failed", slog.String("chain", req.Chain), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	h.writeSessionStep(w, http.StatusCreated, sess.ID)
}

// Advance handles POST /api/sessions/{id}/advance.
//
//	@Summary		Advance a session to its next step
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionStepResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/advance [post]
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.svc.Advance(id); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return
	}
	h.writeSessionStep(w, http.StatusOK, id)
}

// Jump handles POST /api/sessions/{id}/jump.
//
//	@Summary		Move a session to a specific step
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session id"
//	@Param			body	body		JumpRequest	true	"Target step"
//	@Success		200		{object}	SessionStepResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/jump [post]
func (h *Handler) Jump(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req JumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if _, err := h.svc.JumpTo(id, req.Step); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return
	}
	h.writeSessionStep(w, http.StatusOK, id)
}

// PatchContext handles PATCH /api/sessions/{id}/context.
//
//	@Summary		Merge keys into a session's context map
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session id"
//	@Param			body	body		ContextPatchRequest	true	"Keys to merge"
//	@Success		200		{object}	SessionStepResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/context [patch]
func (h *Handler) PatchContext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req ContextPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if _, err := h.svc.UpdateSessionContext(id, req.Context); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return
	}
	h.writeSessionStep(w, http.StatusOK, id)
}

// SessionStep handles GET /api/sessions/{id}.
//
//	@Summary		Get a session's current step with substituted variables
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SessionStepResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) SessionStep(w http.ResponseWriter, r *http.Request) {
	h.writeSessionStep(w, http.StatusOK, chi.URLParam(r, "id"))
}

// EndSession handles DELETE /api/sessions/{id}.
//
//	@Summary		End a session
//	@Tags			sessions
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Session ended"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.EndSession(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeSessionStep(w http.ResponseWriter, status int, id string) {
	step, sess, progress, err := h.svc.SessionStep(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		return
	}
	writeJSON(w, status, SessionStepResponse{Session: sess, Step: step, Progress: progress})
}
