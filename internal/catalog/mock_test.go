package catalog

import (
	"context"
	"testing"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T, pageSize int) *MockSource {
	t.Helper()
	m, err := NewMockSource(pageSize)
	require.NoError(t, err)
	return m
}

func ids(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestMockSource_AllProducts(t *testing.T) {
	page, err := newMock(t, 0).ListProducts(context.Background(), Filter{}, Sort{}, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.False(t, page.HasNextPage)

	first := page.Items[0]
	assert.Equal(t, "elegant-silk-saree-royal-blue", first.Handle)
	v, ok := first.PurchasableVariant()
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(2499).Equal(v.Price.Amount))
	require.NotNil(t, v.CompareAtPrice)
	assert.True(t, decimal.NewFromInt(3199).Equal(v.CompareAtPrice.Amount))
}

func TestMockSource_Filters(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"category", Filter{CollectionHandle: "sarees"}, []string{"product-1", "product-4", "product-6"}},
		{"new arrivals", Filter{CollectionHandle: "new-arrivals"}, []string{"product-1", "product-3", "product-5", "product-8", "product-9"}},
		{"colour", Filter{Color: "pink"}, []string{"product-5", "product-6"}},
		{"fabric in category", Filter{CollectionHandle: "sarees", Fabric: "silk"}, []string{"product-1", "product-4"}},
		{"size", Filter{Size: "s"}, []string{"product-2", "product-8"}},
		{"occasion", Filter{Occasion: "festival"}, []string{"product-4"}},
		{"region", Filter{Region: "banarasi"}, []string{"product-1", "product-4"}},
		{"price range", Filter{MinPrice: dec("2000"), MaxPrice: dec("2499")}, []string{"product-1", "product-5", "product-10"}},
		{"search title", Filter{SearchQuery: "lehenga"}, []string{"product-2", "product-7"}},
		{"search tag", Filter{SearchQuery: "GEORGETTE"}, []string{"product-2", "product-5", "product-6"}},
		{"nothing", Filter{CollectionHandle: "kurtis", Color: "gold"}, []string{}},
	}

	m := newMock(t, 50)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := m.ListProducts(context.Background(), tt.filter, Sort{}, "")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(page.Items))
		})
	}
}

func TestMockSource_Sorting(t *testing.T) {
	m := newMock(t, 50)
	ctx := context.Background()
	kurtis := Filter{CollectionHandle: "kurtis"}

	page, err := m.ListProducts(ctx, kurtis, Sort{Key: SortPrice}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"product-8", "product-3", "product-5"}, ids(page.Items))

	page, err = m.ListProducts(ctx, kurtis, Sort{Key: SortPrice, Reverse: true}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"product-5", "product-3", "product-8"}, ids(page.Items))

	page, err = m.ListProducts(ctx, Filter{CollectionHandle: "lehengas"}, Sort{Key: SortBestSelling}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"product-7", "product-2"}, ids(page.Items))

	page, err = m.ListProducts(ctx, Filter{CollectionHandle: "jewelry"}, Sort{Key: SortTitle}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"product-10", "product-9"}, ids(page.Items))
}

func TestMockSource_Pagination(t *testing.T) {
	m := newMock(t, 4)
	ctx := context.Background()

	var all []string
	cursor := ""
	for pages := 0; ; pages++ {
		require.Less(t, pages, 5)
		page, err := m.ListProducts(ctx, Filter{}, Sort{}, cursor)
		require.NoError(t, err)
		all = append(all, ids(page.Items)...)
		if !page.HasNextPage {
			break
		}
		cursor = page.EndCursor
	}
	assert.Len(t, all, 10)
	assert.Equal(t, "product-10", all[9])

	_, err := m.ListProducts(ctx, Filter{}, Sort{}, "abc")
	assert.Error(t, err)
}

func TestMockSource_GetProduct(t *testing.T) {
	m := newMock(t, 0)
	p, err := m.GetProduct(context.Background(), "silver-necklace-set")
	require.NoError(t, err)
	assert.Equal(t, "product-10", p.ID)

	_, err = m.GetProduct(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestMockSource_Collections(t *testing.T) {
	m := newMock(t, 0)
	ctx := context.Background()

	all, err := m.ListCollections(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	featured, err := m.FeaturedCollections(ctx)
	require.NoError(t, err)
	handles := make([]string, len(featured))
	for i, c := range featured {
		handles[i] = c.Handle
	}
	assert.Equal(t, []string{"sarees", "lehengas", "jewelry"}, handles)
	assert.Equal(t, 3, featured[0].ProductCount)

	_, err = m.GetCollection(ctx, "suits")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortCreatedAt, k)

	k, err = ParseSortKey("price")
	require.NoError(t, err)
	assert.Equal(t, SortPrice, k)

	_, err = ParseSortKey("POPULARITY")
	assert.Error(t, err)
}
