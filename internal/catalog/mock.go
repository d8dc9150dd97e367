package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/shopspring/decimal"
)

//go:embed data/mock_products.json
var mockProductsJSON []byte

type mockProduct struct {
	ID             string           `json:"id"`
	Title          string           `json:"title"`
	Handle         string           `json:"handle"`
	Vendor         string           `json:"vendor"`
	Price          decimal.Decimal  `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	Image          string           `json:"image"`
	Description    string           `json:"description"`
	InStock        bool             `json:"inStock"`
	Category       string           `json:"category"`
	Color          string           `json:"color"`
	Fabric         string           `json:"fabric"`
	Occasion       string           `json:"occasion"`
	Region         string           `json:"region"`
	Size           string           `json:"size"`
	Rating         float64          `json:"rating"`
	IsNewArrival   bool             `json:"isNewArrival"`
}

var mockCollectionTitles = map[string]string{
	"sarees":       "Sarees",
	"lehengas":     "Lehengas",
	"kurtis":       "Kurtis",
	"jewelry":      "Jewelry",
	"new-arrivals": "New Arrivals",
}

// MockSource serves the bundled demo catalog with in-process filtering,
// sorting and offset pagination.
type MockSource struct {
	products []domain.Product
	pageSize int
}

func NewMockSource(pageSize int) (*MockSource, error) {
	var raw []mockProduct
	if err := json.Unmarshal(mockProductsJSON, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode mock catalog: %w", err)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	products := make([]domain.Product, 0, len(raw))
	for i, m := range raw {
		variant := domain.Variant{
			ID:               m.ID + "-default",
			Title:            "Default Title",
			Price:            domain.Money{Amount: m.Price, CurrencyCode: domain.CurrencyINR},
			AvailableForSale: m.InStock,
			SelectedOptions:  []domain.SelectedOption{{Name: "Size", Value: m.Size}},
		}
		if m.CompareAtPrice != nil {
			variant.CompareAtPrice = &domain.Money{Amount: *m.CompareAtPrice, CurrencyCode: domain.CurrencyINR}
		}

		products = append(products, domain.Product{
			ID:          m.ID,
			Title:       m.Title,
			Handle:      m.Handle,
			Description: m.Description,
			Vendor:      m.Vendor,
			ProductType: m.Category,
			Tags:        []string{m.Category, m.Color, m.Fabric, m.Occasion, m.Region},
			Images:      []domain.Image{{URL: m.Image, AltText: m.Title}},
			Variants:    []domain.Variant{variant},
			Collections: []domain.CollectionRef{{ID: "collection-" + m.Category, Title: mockCollectionTitles[m.Category], Handle: m.Category}},
			Attributes: domain.Attributes{
				Category:     m.Category,
				Color:        m.Color,
				Fabric:       m.Fabric,
				Occasion:     m.Occasion,
				Region:       m.Region,
				Size:         m.Size,
				Rating:       m.Rating,
				IsNewArrival: m.IsNewArrival,
			},
			CreatedAt: created.Add(time.Duration(i) * 24 * time.Hour),
			UpdatedAt: created.Add(time.Duration(i) * 24 * time.Hour),
		})
	}
	return &MockSource{products: products, pageSize: pageSize}, nil
}

func (m *MockSource) ListProducts(_ context.Context, filter Filter, s Sort, cursor string) (Page, error) {
	offset := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return Page{}, fmt.Errorf("invalid cursor %q", cursor)
		}
		offset = n
	}

	matched := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		if matches(p, filter) {
			matched = append(matched, p)
		}
	}
	sortProducts(matched, s)

	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + m.pageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := Page{Items: matched[offset:end], HasNextPage: end < len(matched)}
	if end > offset {
		page.EndCursor = strconv.Itoa(end)
	}
	return page, nil
}

func matches(p domain.Product, f Filter) bool {
	a := p.Attributes
	switch {
	case f.CollectionHandle == "new-arrivals" && !a.IsNewArrival:
		return false
	case f.CollectionHandle != "" && f.CollectionHandle != "new-arrivals" && a.Category != f.CollectionHandle:
		return false
	case f.MinPrice != nil && p.Price().LessThan(*f.MinPrice):
		return false
	case f.MaxPrice != nil && p.Price().GreaterThan(*f.MaxPrice):
		return false
	case f.Color != "" && a.Color != f.Color:
		return false
	case f.Fabric != "" && a.Fabric != f.Fabric:
		return false
	case f.Size != "" && a.Size != f.Size:
		return false
	case f.Occasion != "" && a.Occasion != f.Occasion:
		return false
	case f.Region != "" && a.Region != f.Region:
		return false
	}

	if q := strings.ToLower(strings.TrimSpace(f.SearchQuery)); q != "" {
		if strings.Contains(strings.ToLower(p.Title), q) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				return true
			}
		}
		return false
	}
	return true
}

// sortProducts keeps catalog order for keys the demo data cannot rank by.
func sortProducts(products []domain.Product, s Sort) {
	var less func(a, b domain.Product) bool
	switch s.Key {
	case SortPrice:
		less = func(a, b domain.Product) bool { return a.Price().LessThan(b.Price()) }
	case SortTitle:
		less = func(a, b domain.Product) bool { return a.Title < b.Title }
	case SortBestSelling:
		less = func(a, b domain.Product) bool { return a.Attributes.Rating > b.Attributes.Rating }
	case SortCreatedAt, SortUpdatedAt:
		less = func(a, b domain.Product) bool { return a.CreatedAt.Before(b.CreatedAt) }
	default:
		if s.Reverse {
			reverse(products)
		}
		return
	}

	sort.SliceStable(products, func(i, j int) bool {
		if s.Reverse {
			return less(products[j], products[i])
		}
		return less(products[i], products[j])
	})
}

func reverse(products []domain.Product) {
	for i, j := 0, len(products)-1; i < j; i, j = i+1, j-1 {
		products[i], products[j] = products[j], products[i]
	}
}

func (m *MockSource) GetProduct(_ context.Context, handle string) (domain.Product, error) {
	for _, p := range m.products {
		if p.Handle == handle || p.ID == handle {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (m *MockSource) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	handles := make([]string, 0, len(mockCollectionTitles))
	for handle := range mockCollectionTitles {
		handles = append(handles, handle)
	}
	sort.Strings(handles)

	out := make([]domain.Collection, 0, len(handles))
	for _, handle := range handles {
		c, err := m.GetCollection(ctx, handle)
		if err != nil {
			return nil, err
		}
		c.Products = nil
		out = append(out, c)
	}
	return out, nil
}

func (m *MockSource) GetCollection(_ context.Context, handle string) (domain.Collection, error) {
	title, ok := mockCollectionTitles[handle]
	if !ok {
		return domain.Collection{}, ErrCollectionNotFound
	}

	var products []domain.Product
	for _, p := range m.products {
		if matches(p, Filter{CollectionHandle: handle}) {
			products = append(products, p)
		}
	}

	c := domain.Collection{
		ID:           "collection-" + handle,
		Title:        title,
		Handle:       handle,
		ProductCount: len(products),
		Products:     products,
	}
	if len(products) > 0 {
		c.Image = &products[0].Images[0]
	}
	return c, nil
}

func (m *MockSource) FeaturedCollections(ctx context.Context) ([]domain.Collection, error) {
	var out []domain.Collection
	for _, handle := range FeaturedHandles {
		c, err := m.GetCollection(ctx, handle)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
