package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/undhyu/internal/catalog"
	"github.com/go-chi/chi/v5"
)

type CatalogHandler struct {
	source  catalog.Source
	timeout time.Duration
}

func NewCatalogHandler(source catalog.Source, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{
		source:  source,
		timeout: timeout,
	}
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	q, err := catalog.ParseQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	page, err := h.source.ListProducts(ctx, q.Filter, q.Sort, q.After)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	product, err := h.source.GetProduct(ctx, chi.URLParam(r, "handle"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (h *CatalogHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	collections, err := h.source.ListCollections(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"collections": collections})
}

func (h *CatalogHandler) FeaturedCollections(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	collections, err := h.source.FeaturedCollections(ctx)
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"collections": collections})
}

func (h *CatalogHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	collection, err := h.source.GetCollection(ctx, chi.URLParam(r, "handle"))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, collection)
}
