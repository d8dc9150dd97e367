package catalog

import (
	"context"
	"errors"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
)

// Fallback serves from secondary whenever primary fails with a NetworkError.
type Fallback struct {
	primary   Source
	secondary Source
}

func NewFallback(primary, secondary Source) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func useFallback(op string, err error) bool {
	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		return false
	}
	logger.Warn("Catalog backend unavailable, serving demo catalog", map[string]interface{}{
		"op":    op,
		"error": err.Error(),
	})
	return true
}

func (f *Fallback) ListProducts(ctx context.Context, filter Filter, sort Sort, cursor string) (Page, error) {
	page, err := f.primary.ListProducts(ctx, filter, sort, cursor)
	if useFallback("list products", err) {
		// cursors are not portable between sources
		return f.secondary.ListProducts(ctx, filter, sort, "")
	}
	return page, err
}

func (f *Fallback) GetProduct(ctx context.Context, handle string) (domain.Product, error) {
	p, err := f.primary.GetProduct(ctx, handle)
	if useFallback("get product", err) {
		return f.secondary.GetProduct(ctx, handle)
	}
	return p, err
}

func (f *Fallback) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	c, err := f.primary.ListCollections(ctx)
	if useFallback("list collections", err) {
		return f.secondary.ListCollections(ctx)
	}
	return c, err
}

func (f *Fallback) GetCollection(ctx context.Context, handle string) (domain.Collection, error) {
	c, err := f.primary.GetCollection(ctx, handle)
	if useFallback("get collection", err) {
		return f.secondary.GetCollection(ctx, handle)
	}
	return c, err
}

func (f *Fallback) FeaturedCollections(ctx context.Context) ([]domain.Collection, error) {
	c, err := f.primary.FeaturedCollections(ctx)
	if useFallback("featured collections", err) {
		return f.secondary.FeaturedCollections(ctx)
	}
	return c, err
}
