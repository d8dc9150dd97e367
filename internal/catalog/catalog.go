package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/shopspring/decimal"
)

const DefaultPageSize = 20

type SortKey string

const (
	SortCreatedAt   SortKey = "CREATED_AT"
	SortUpdatedAt   SortKey = "UPDATED_AT"
	SortTitle       SortKey = "TITLE"
	SortPrice       SortKey = "PRICE"
	SortBestSelling SortKey = "BEST_SELLING"
	SortRelevance   SortKey = "RELEVANCE"
)

// ParseSortKey accepts the six keys the product API understands. Empty means CREATED_AT.
func ParseSortKey(s string) (SortKey, error) {
	if s == "" {
		return SortCreatedAt, nil
	}
	switch k := SortKey(strings.ToUpper(s)); k {
	case SortCreatedAt, SortUpdatedAt, SortTitle, SortPrice, SortBestSelling, SortRelevance:
		return k, nil
	}
	return "", fmt.Errorf("invalid sort key %q", s)
}

type Sort struct {
	Key     SortKey
	Reverse bool
}

// Filter narrows a product listing. Zero values mean "any".
type Filter struct {
	CollectionHandle string
	SearchQuery      string
	MinPrice         *decimal.Decimal
	MaxPrice         *decimal.Decimal
	Color            string
	Fabric           string
	Size             string
	Occasion         string
	Region           string
}

type Page struct {
	Items       []domain.Product `json:"products"`
	HasNextPage bool             `json:"hasNextPage"`
	EndCursor   string           `json:"endCursor,omitempty"`
}

// Source loads products and collections.
type Source interface {
	ListProducts(ctx context.Context, filter Filter, sort Sort, cursor string) (Page, error)
	GetProduct(ctx context.Context, handle string) (domain.Product, error)
	ListCollections(ctx context.Context) ([]domain.Collection, error)
	GetCollection(ctx context.Context, handle string) (domain.Collection, error)
	FeaturedCollections(ctx context.Context) ([]domain.Collection, error)
}

// FeaturedHandles are the collections shown on the home page, in order.
var FeaturedHandles = []string{"sarees", "lehengas", "suits", "jewelry", "salwar-kameez", "ethnic-wear"}

var ErrCollectionNotFound = errors.New("collection not found")
