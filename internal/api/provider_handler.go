package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/star64ccs/CardStrategy-sub008/internal/api/shared"
	"github.com/star64ccs/CardStrategy-sub008/internal/provider"
)

// ProviderRegistry lists providers and toggles their availability.
type ProviderRegistry interface {
	Statuses() []provider.Status
	SetActive(name string, active bool) error
}

// SetProviderRequest is the body of PUT /api/ai/providers/{name}.
type SetProviderRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// ProviderHandler serves provider status and administrative toggles.
type ProviderHandler struct {
	registry ProviderRegistry
}

// NewProviderHandler creates a ProviderHandler.
func NewProviderHandler(registry ProviderRegistry) *ProviderHandler {
	return &ProviderHandler{registry: registry}
}

// Mount registers the provider routes on r.
func (h *ProviderHandler) Mount(r chi.Router) {
	r.Get("/providers", h.ListProviders)
	r.Put("/providers/{name}", h.SetProvider)
}

// ListProviders handles GET /api/ai/providers.
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, nonNil(h.registry.Statuses()))
}

// SetProvider handles PUT /api/ai/providers/{name}. A disabled provider
// rejects calls and reports offline at the next health refresh.
func (h *ProviderHandler) SetProvider(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req SetProviderRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	if err := h.registry.SetActive(name, *req.Active); err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	for _, s := range h.registry.Statuses() {
		if s.Name == name {
			shared.RespondWithJSON(w, r, http.StatusOK, s)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
