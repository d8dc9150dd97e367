package backend

import (
	"context"
	"encoding/json"
	"net/http"
)

const welcomeMessage = "Welcome to Undhyu.com API - Authentic Indian Fashion"

func (h *Handler) Root(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": welcomeMessage})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type StatusCheckCreateDTO struct {
	ClientName string `json:"client_name"`
}

func (h *Handler) CreateStatusCheck(w http.ResponseWriter, r *http.Request) {
	if h.deps.Status == nil {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "status checks are not configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StatusCheckCreateDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ClientName == "" {
		respondError(w, http.StatusUnprocessableEntity, "invalid_request", "client_name is required")
		return
	}

	check, err := h.deps.Status.Create(ctx, req.ClientName)
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, check)
}

func (h *Handler) ListStatusChecks(w http.ResponseWriter, r *http.Request) {
	if h.deps.Status == nil {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "status checks are not configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks, err := h.deps.Status.List(ctx)
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, checks)
}
