package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/undhyu/internal/circuitbreaker"
	"github.com/fjod/undhyu/internal/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"
)

var errNotFound = errors.New("not found")

// HTTPSource reads the catalog from the /api backend. Identical requests in
// flight at the same time share one upstream call.
type HTTPSource struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
	breaker    *circuitbreaker.Breaker
	sfg        singleflight.Group
}

func NewHTTPSource(baseURL string, pageSize int, timeout time.Duration, breaker *circuitbreaker.Breaker) *HTTPSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &HTTPSource{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
	}
}

// IsNotFound lets a breaker skip 404s, which say nothing about the backend's health.
func IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

func (s *HTTPSource) ListProducts(ctx context.Context, filter Filter, sort Sort, cursor string) (Page, error) {
	q := url.Values{}
	q.Set("first", strconv.Itoa(s.pageSize))
	if cursor != "" {
		q.Set("after", cursor)
	}
	if filter.CollectionHandle != "" {
		q.Set("collection_handle", filter.CollectionHandle)
	}
	if filter.SearchQuery != "" {
		q.Set("search_query", filter.SearchQuery)
	}
	if sort.Key != "" {
		q.Set("sort_key", string(sort.Key))
	}
	if sort.Reverse {
		q.Set("reverse", "true")
	}
	if filter.MinPrice != nil {
		q.Set("min_price", filter.MinPrice.String())
	}
	if filter.MaxPrice != nil {
		q.Set("max_price", filter.MaxPrice.String())
	}

	var resp struct {
		Products []domain.Product `json:"products"`
		PageInfo domain.PageInfo  `json:"pageInfo"`
	}
	if err := s.get(ctx, "/api/products?"+q.Encode(), &resp); err != nil {
		return Page{}, err
	}

	return Page{
		Items:       facetFilter(resp.Products, filter),
		HasNextPage: resp.PageInfo.HasNextPage,
		EndCursor:   resp.PageInfo.EndCursor,
	}, nil
}

// facetFilter applies the facets the product API has no query syntax for.
// It narrows the current page only.
func facetFilter(products []domain.Product, f Filter) []domain.Product {
	if f.Color == "" && f.Fabric == "" && f.Size == "" && f.Occasion == "" && f.Region == "" {
		return products
	}
	facets := Filter{Color: f.Color, Fabric: f.Fabric, Size: f.Size, Occasion: f.Occasion, Region: f.Region}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if matches(p, facets) {
			out = append(out, p)
		}
	}
	return out
}

func (s *HTTPSource) GetProduct(ctx context.Context, handle string) (domain.Product, error) {
	var p domain.Product
	err := s.get(ctx, "/api/products/"+url.PathEscape(handle), &p)
	if IsNotFound(err) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func (s *HTTPSource) ListCollections(ctx context.Context) ([]domain.Collection, error) {
	var resp struct {
		Collections []domain.Collection `json:"collections"`
	}
	if err := s.get(ctx, "/api/collections", &resp); err != nil {
		return nil, err
	}
	return resp.Collections, nil
}

func (s *HTTPSource) GetCollection(ctx context.Context, handle string) (domain.Collection, error) {
	var c domain.Collection
	err := s.get(ctx, "/api/collections/"+url.PathEscape(handle), &c)
	if IsNotFound(err) {
		return domain.Collection{}, ErrCollectionNotFound
	}
	return c, err
}

func (s *HTTPSource) FeaturedCollections(ctx context.Context) ([]domain.Collection, error) {
	var resp struct {
		Collections []domain.Collection `json:"collections"`
	}
	if err := s.get(ctx, "/api/collections/featured", &resp); err != nil {
		return nil, err
	}
	return resp.Collections, nil
}

// get fetches path and decodes it into out. Failures other than 404 come
// back as *domain.NetworkError.
func (s *HTTPSource) get(ctx context.Context, path string, out interface{}) error {
	body, err, _ := s.sfg.Do(path, func() (interface{}, error) {
		return circuitbreaker.Execute(s.breaker, func() ([]byte, error) {
			return s.fetch(ctx, path)
		})
	})
	if IsNotFound(err) {
		return err
	}
	if err != nil {
		return &domain.NetworkError{Op: "GET " + path, Err: err}
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return &domain.NetworkError{Op: "GET " + path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (s *HTTPSource) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return raw, nil
}
