package catalog

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	v := url.Values{}
	v.Set("collection_handle", "sarees")
	v.Set("search_query", "silk")
	v.Set("sort_key", "price")
	v.Set("reverse", "true")
	v.Set("min_price", "1000")
	v.Set("max_price", "5000.50")
	v.Set("after", "cursor-1")
	v.Set("fabric", "Silk")

	q, err := ParseQuery(v)
	require.NoError(t, err)

	assert.Equal(t, "sarees", q.Filter.CollectionHandle)
	assert.Equal(t, "silk", q.Filter.SearchQuery)
	assert.Equal(t, "Silk", q.Filter.Fabric)
	assert.Equal(t, SortPrice, q.Sort.Key)
	assert.True(t, q.Sort.Reverse)
	assert.Equal(t, "cursor-1", q.After)
	require.NotNil(t, q.Filter.MinPrice)
	assert.Equal(t, "1000", q.Filter.MinPrice.String())
	require.NotNil(t, q.Filter.MaxPrice)
	assert.Equal(t, "5000.5", q.Filter.MaxPrice.String())
}

func TestParseQueryDefaults(t *testing.T) {
	q, err := ParseQuery(url.Values{})
	require.NoError(t, err)

	assert.Equal(t, SortCreatedAt, q.Sort.Key)
	assert.False(t, q.Sort.Reverse)
	assert.Nil(t, q.Filter.MinPrice)
	assert.Nil(t, q.Filter.MaxPrice)
}

func TestParseQueryRejectsBadValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"sort key", "sort_key", "POPULARITY"},
		{"reverse", "reverse", "maybe"},
		{"min price", "min_price", "abc"},
		{"negative max price", "max_price", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := url.Values{}
			v.Set(tt.key, tt.value)
			_, err := ParseQuery(v)
			assert.Error(t, err)
		})
	}
}
