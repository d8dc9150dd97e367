package backend

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/fjod/undhyu/internal/cache"
	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/shopify"
	"github.com/go-chi/chi/v5"
)

// cached serves key from the cache when present and fills it after a load.
// Cache failures only cost a reload.
func cached[T any](ctx context.Context, c cache.Cache, key string, load func() (T, error)) (T, error) {
	if c != nil {
		var v T
		err := c.Get(ctx, key, &v)
		if err == nil {
			return v, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.WithContext(ctx).WithError(err).Warn("Catalog cache read failed")
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if c != nil {
		if err := c.Set(ctx, key, v); err != nil {
			logger.WithContext(ctx).WithError(err).Warn("Catalog cache write failed")
		}
	}
	return v, nil
}

func cacheKey(r *http.Request) string {
	return r.URL.Path + "?" + r.URL.Query().Encode()
}

func parseFirst(r *http.Request) (int, bool) {
	s := r.URL.Query().Get("first")
	if s == "" {
		return catalog.DefaultPageSize, true
	}
	first, err := strconv.Atoi(s)
	if err != nil || first < 1 || first > shopify.MaxPageSize {
		return 0, false
	}
	return first, true
}

func (h *Handler) catalogAvailable(w http.ResponseWriter) bool {
	if h.deps.Catalog == nil {
		respondError(w, http.StatusServiceUnavailable, "not_configured", "catalog is not configured")
		return false
	}
	return true
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	if !h.catalogAvailable(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	first, ok := parseFirst(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_query", "first must be between 1 and 250")
		return
	}
	q, err := catalog.ParseQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	page, err := cached(ctx, h.deps.Cache, cacheKey(r), func() (shopify.ProductPage, error) {
		return h.deps.Catalog.Products(ctx, shopify.ProductQuery{
			First:  first,
			After:  q.After,
			Filter: q.Filter,
			Sort:   q.Sort,
		})
	})
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	if !h.catalogAvailable(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	handle := chi.URLParam(r, "handle")
	product, err := cached(ctx, h.deps.Cache, cacheKey(r), func() (domain.Product, error) {
		return h.deps.Catalog.ProductByHandle(ctx, handle)
	})
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) ListCollections(w http.ResponseWriter, r *http.Request) {
	if !h.catalogAvailable(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	first, ok := parseFirst(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_query", "first must be between 1 and 250")
		return
	}
	query := r.URL.Query()

	page, err := cached(ctx, h.deps.Cache, cacheKey(r), func() (shopify.CollectionPage, error) {
		return h.deps.Catalog.Collections(ctx, first, query.Get("after"), query.Get("search_query"))
	})
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	if !h.catalogAvailable(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	handle := chi.URLParam(r, "handle")
	collection, err := cached(ctx, h.deps.Cache, cacheKey(r), func() (domain.Collection, error) {
		return h.deps.Catalog.CollectionByHandle(ctx, handle)
	})
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, collection)
}

type collectionsResponse struct {
	Collections []domain.Collection `json:"collections"`
}

func (h *Handler) FeaturedCollections(w http.ResponseWriter, r *http.Request) {
	if !h.catalogAvailable(w) {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp, err := cached(ctx, h.deps.Cache, cacheKey(r), func() (collectionsResponse, error) {
		collections, err := h.deps.Catalog.Featured(ctx)
		return collectionsResponse{Collections: collections}, err
	})
	if err != nil {
		handleUpstreamError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}
