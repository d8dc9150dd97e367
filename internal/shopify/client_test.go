package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/circuitbreaker"
	"github.com/fjod/undhyu/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsResponse = `{
  "data": {
    "products": {
      "edges": [{
        "cursor": "c1",
        "node": {
          "id": "gid://shopify/Product/1",
          "title": "Banarasi Saree",
          "handle": "banarasi-saree",
          "tags": ["silk"],
          "createdAt": "2024-03-01T10:00:00Z",
          "updatedAt": "2024-03-02T10:00:00Z",
          "images": {"edges": [{"node": {"id": "img1", "url": "https://cdn.example/1.jpg", "altText": "saree"}}]},
          "variants": {"edges": [{"node": {
            "id": "gid://shopify/ProductVariant/11",
            "title": "Default Title",
            "price": {"amount": "2499.0", "currencyCode": "INR"},
            "compareAtPrice": null,
            "availableForSale": true,
            "quantityAvailable": 3,
            "selectedOptions": [{"name": "Size", "value": "Free"}]
          }}]},
          "collections": {"edges": [{"node": {"id": "gid://shopify/Collection/5", "title": "Sarees", "handle": "sarees"}}]}
        }
      }],
      "pageInfo": {"hasNextPage": true, "hasPreviousPage": false, "startCursor": "c1", "endCursor": "c1"}
    }
  }
}`

type recorded struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables"`
}

func newServer(t *testing.T, handler func(req recorded) (int, string)) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "token", r.Header.Get("X-Shopify-Storefront-Access-Token"))

		var req recorded
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		status, body := handler(req)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient("undhyu.myshopify.com", "token", "", WithEndpoint(srv.URL))
	require.NoError(t, err)
	return c, &calls
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient("", "token", "")
	assert.Error(t, err)

	c, err := NewClient("shop.myshopify.com", "token", "")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.myshopify.com/api/2024-01/graphql.json", c.endpoint)
}

func TestSearchString(t *testing.T) {
	lo := decimal.NewFromInt(1000)
	hi := decimal.RequireFromString("5000.5")

	tests := []struct {
		name   string
		filter catalog.Filter
		want   string
	}{
		{"empty", catalog.Filter{}, ""},
		{"collection", catalog.Filter{CollectionHandle: "sarees"}, `collection:"sarees"`},
		{"search", catalog.Filter{SearchQuery: "silk"}, "title:*silk* OR tag:*silk*"},
		{
			"everything",
			catalog.Filter{CollectionHandle: "sarees", SearchQuery: "silk", MinPrice: &lo, MaxPrice: &hi},
			`collection:"sarees" AND title:*silk* OR tag:*silk* AND variants.price:>=1000 AND variants.price:<=5000.5`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchString(tt.filter))
		})
	}
}

func TestProductsFlattensEdges(t *testing.T) {
	var got recorded
	c, _ := newServer(t, func(req recorded) (int, string) {
		got = req
		return http.StatusOK, productsResponse
	})

	page, err := c.Products(context.Background(), ProductQuery{
		First:  500,
		Filter: catalog.Filter{CollectionHandle: "sarees"},
		Sort:   catalog.Sort{Key: catalog.SortPrice, Reverse: true},
	})
	require.NoError(t, err)

	assert.EqualValues(t, MaxPageSize, got.Variables["first"])
	assert.Equal(t, "PRICE", got.Variables["sortKey"])
	assert.Equal(t, true, got.Variables["reverse"])
	assert.Equal(t, `collection:"sarees"`, got.Variables["query"])
	assert.Nil(t, got.Variables["after"])

	require.Len(t, page.Products, 1)
	p := page.Products[0]
	assert.Equal(t, "banarasi-saree", p.Handle)
	assert.Equal(t, "https://cdn.example/1.jpg", p.FirstImageURL())
	require.Len(t, p.Variants, 1)
	assert.True(t, p.Price().Equal(decimal.NewFromInt(2499)))
	require.NotNil(t, p.Variants[0].QuantityAvailable)
	assert.Equal(t, 3, *p.Variants[0].QuantityAvailable)
	assert.Equal(t, "sarees", p.Collections[0].Handle)
	assert.True(t, page.PageInfo.HasNextPage)
	assert.Equal(t, "c1", page.PageInfo.EndCursor)
	assert.Equal(t, 1, page.TotalCount)
}

func TestProductByHandleNotFound(t *testing.T) {
	c, _ := newServer(t, func(recorded) (int, string) {
		return http.StatusOK, `{"data": {"productByHandle": null}}`
	})

	_, err := c.ProductByHandle(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestGraphQLErrors(t *testing.T) {
	c, _ := newServer(t, func(recorded) (int, string) {
		return http.StatusOK, `{"errors": [{"message": "Field 'foo' doesn't exist"}]}`
	})

	_, err := c.Products(context.Background(), ProductQuery{})

	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"Field 'foo' doesn't exist"}, gqlErr.Messages)
}

func TestStatusError(t *testing.T) {
	c, _ := newServer(t, func(recorded) (int, string) {
		return http.StatusUnauthorized, `{"errors":"Unauthorized"}`
	})

	_, err := c.Collections(context.Background(), 0, "", "")

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestCollectionsCountsFetchedEdges(t *testing.T) {
	var got recorded
	c, _ := newServer(t, func(req recorded) (int, string) {
		got = req
		return http.StatusOK, `{"data": {"collections": {
			"edges": [
				{"node": {"id": "c1", "title": "Sarees", "handle": "sarees", "products": {"edges": [{"node": {"id": "p1"}}]}}},
				{"node": {"id": "c2", "title": "Suits", "handle": "suits", "products": {"edges": []}}}
			],
			"pageInfo": {"hasNextPage": false}
		}}}`
	})

	page, err := c.Collections(context.Background(), 10, "", "silk")
	require.NoError(t, err)

	assert.Equal(t, "title:*silk*", got.Variables["query"])
	require.Len(t, page.Collections, 2)
	assert.Equal(t, 1, page.Collections[0].ProductCount)
	assert.Equal(t, 0, page.Collections[1].ProductCount)
	assert.Empty(t, page.Collections[0].Products)
}

func TestFeaturedSkipsMissingCollections(t *testing.T) {
	c, calls := newServer(t, func(req recorded) (int, string) {
		switch req.Variables["handle"] {
		case "sarees", "jewelry":
			return http.StatusOK, `{"data": {"collectionByHandle": {"id": "x", "title": "T", "handle": "` +
				req.Variables["handle"].(string) + `", "products": {"edges": []}}}}`
		default:
			return http.StatusOK, `{"data": {"collectionByHandle": null}}`
		}
	})

	featured, err := c.Featured(context.Background())
	require.NoError(t, err)

	require.Len(t, featured, 2)
	assert.Equal(t, "sarees", featured[0].Handle)
	assert.Equal(t, "jewelry", featured[1].Handle)
	assert.EqualValues(t, len(FeaturedHandles), atomic.LoadInt32(calls))
}

func TestBreakerStopsCalls(t *testing.T) {
	c, calls := newServer(t, func(recorded) (int, string) {
		return http.StatusBadGateway, "upstream down"
	})
	c.breaker = circuitbreaker.New(circuitbreaker.Settings{Name: "shopify", MaxFailures: 2})

	for i := 0; i < 4; i++ {
		_, _ = c.ProductByHandle(context.Background(), "x")
	}

	_, err := c.ProductByHandle(context.Background(), "x")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}
