package shopify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/domain"
)

const MaxPageSize = 250

// FeaturedHandles are tried in order; stores that lack one simply skip it.
var FeaturedHandles = []string{"sarees", "lehengas", "suits", "jewelry", "salwar-kameez", "ethnic-wear"}

type connection[T any] struct {
	Edges []struct {
		Node   T      `json:"node"`
		Cursor string `json:"cursor"`
	} `json:"edges"`
	PageInfo domain.PageInfo `json:"pageInfo"`
}

func (c connection[T]) nodes() []T {
	out := make([]T, 0, len(c.Edges))
	for _, e := range c.Edges {
		out = append(out, e.Node)
	}
	return out
}

type productNode struct {
	ID          string                           `json:"id"`
	Title       string                           `json:"title"`
	Handle      string                           `json:"handle"`
	Description string                           `json:"description"`
	Vendor      string                           `json:"vendor"`
	ProductType string                           `json:"productType"`
	Tags        []string                         `json:"tags"`
	CreatedAt   time.Time                        `json:"createdAt"`
	UpdatedAt   time.Time                        `json:"updatedAt"`
	Images      connection[domain.Image]         `json:"images"`
	Variants    connection[domain.Variant]       `json:"variants"`
	Collections connection[domain.CollectionRef] `json:"collections"`
}

func (n productNode) product() domain.Product {
	return domain.Product{
		ID:          n.ID,
		Title:       n.Title,
		Handle:      n.Handle,
		Description: n.Description,
		Vendor:      n.Vendor,
		ProductType: n.ProductType,
		Tags:        n.Tags,
		Images:      n.Images.nodes(),
		Variants:    n.Variants.nodes(),
		Collections: n.Collections.nodes(),
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

type collectionNode struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Handle      string                  `json:"handle"`
	Description string                  `json:"description"`
	Image       *domain.Image           `json:"image"`
	Products    connection[productNode] `json:"products"`
	UpdatedAt   time.Time               `json:"updatedAt"`
}

// collection flattens the node. ProductCount is the number of product edges
// fetched with it, not the size of the whole collection.
func (n collectionNode) collection(withProducts bool) domain.Collection {
	c := domain.Collection{
		ID:           n.ID,
		Title:        n.Title,
		Handle:       n.Handle,
		Description:  n.Description,
		Image:        n.Image,
		ProductCount: len(n.Products.Edges),
		UpdatedAt:    n.UpdatedAt,
	}
	if withProducts {
		for _, p := range n.Products.nodes() {
			c.Products = append(c.Products, p.product())
		}
	}
	return c
}

// ProductQuery is one page request against the products connection.
type ProductQuery struct {
	First  int
	After  string
	Filter catalog.Filter
	Sort   catalog.Sort
}

type ProductPage struct {
	Products   []domain.Product `json:"products"`
	PageInfo   domain.PageInfo  `json:"pageInfo"`
	TotalCount int              `json:"totalCount"`
}

type CollectionPage struct {
	Collections []domain.Collection `json:"collections"`
	PageInfo    domain.PageInfo     `json:"pageInfo"`
}

// SearchString renders a filter in Shopify's product search syntax.
func SearchString(f catalog.Filter) string {
	var parts []string
	if f.CollectionHandle != "" {
		parts = append(parts, fmt.Sprintf("collection:%q", f.CollectionHandle))
	}
	if f.SearchQuery != "" {
		parts = append(parts, fmt.Sprintf("title:*%s* OR tag:*%s*", f.SearchQuery, f.SearchQuery))
	}
	if f.MinPrice != nil {
		parts = append(parts, "variants.price:>="+f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		parts = append(parts, "variants.price:<="+f.MaxPrice.String())
	}
	return strings.Join(parts, " AND ")
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func clampFirst(first int) int {
	if first <= 0 {
		return catalog.DefaultPageSize
	}
	if first > MaxPageSize {
		return MaxPageSize
	}
	return first
}

func (c *Client) Products(ctx context.Context, q ProductQuery) (ProductPage, error) {
	sortKey := q.Sort.Key
	if sortKey == "" {
		sortKey = catalog.SortCreatedAt
	}

	var data struct {
		Products connection[productNode] `json:"products"`
	}
	err := c.execute(ctx, productsQuery, map[string]interface{}{
		"first":   clampFirst(q.First),
		"after":   nullable(q.After),
		"query":   nullable(SearchString(q.Filter)),
		"sortKey": string(sortKey),
		"reverse": q.Sort.Reverse,
	}, &data)
	if err != nil {
		return ProductPage{}, err
	}

	page := ProductPage{
		Products:   make([]domain.Product, 0, len(data.Products.Edges)),
		PageInfo:   data.Products.PageInfo,
		TotalCount: len(data.Products.Edges),
	}
	for _, n := range data.Products.nodes() {
		page.Products = append(page.Products, n.product())
	}
	return page, nil
}

func (c *Client) ProductByHandle(ctx context.Context, handle string) (domain.Product, error) {
	var data struct {
		Product *productNode `json:"productByHandle"`
	}
	if err := c.execute(ctx, productByHandleQuery, map[string]interface{}{"handle": handle}, &data); err != nil {
		return domain.Product{}, err
	}
	if data.Product == nil {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return data.Product.product(), nil
}

func (c *Client) Collections(ctx context.Context, first int, after, search string) (CollectionPage, error) {
	var query interface{}
	if search != "" {
		query = fmt.Sprintf("title:*%s*", search)
	}

	var data struct {
		Collections connection[collectionNode] `json:"collections"`
	}
	err := c.execute(ctx, collectionsQuery, map[string]interface{}{
		"first": clampFirst(first),
		"after": nullable(after),
		"query": query,
	}, &data)
	if err != nil {
		return CollectionPage{}, err
	}

	page := CollectionPage{
		Collections: make([]domain.Collection, 0, len(data.Collections.Edges)),
		PageInfo:    data.Collections.PageInfo,
	}
	for _, n := range data.Collections.nodes() {
		page.Collections = append(page.Collections, n.collection(false))
	}
	return page, nil
}

func (c *Client) CollectionByHandle(ctx context.Context, handle string) (domain.Collection, error) {
	var data struct {
		Collection *collectionNode `json:"collectionByHandle"`
	}
	if err := c.execute(ctx, collectionByHandleQuery, map[string]interface{}{"handle": handle}, &data); err != nil {
		return domain.Collection{}, err
	}
	if data.Collection == nil {
		return domain.Collection{}, catalog.ErrCollectionNotFound
	}
	return data.Collection.collection(true), nil
}

// Featured returns the featured collections that exist in the store.
func (c *Client) Featured(ctx context.Context) ([]domain.Collection, error) {
	out := make([]domain.Collection, 0, len(FeaturedHandles))
	for _, handle := range FeaturedHandles {
		col, err := c.CollectionByHandle(ctx, handle)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			continue
		}
		out = append(out, col)
	}
	return out, nil
}
