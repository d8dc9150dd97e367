package catalog

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// Query is a product listing request as it appears in a URL.
type Query struct {
	Filter Filter
	Sort   Sort
	After  string
}

// ParseQuery reads the listing parameters shared by the storefront and the
// backend product endpoints.
func ParseQuery(v url.Values) (Query, error) {
	key, err := ParseSortKey(v.Get("sort_key"))
	if err != nil {
		return Query{}, err
	}

	q := Query{
		Filter: Filter{
			CollectionHandle: v.Get("collection_handle"),
			SearchQuery:      v.Get("search_query"),
			Color:            v.Get("color"),
			Fabric:           v.Get("fabric"),
			Size:             v.Get("size"),
			Occasion:         v.Get("occasion"),
			Region:           v.Get("region"),
		},
		Sort:  Sort{Key: key},
		After: v.Get("after"),
	}

	if s := v.Get("reverse"); s != "" {
		reverse, err := strconv.ParseBool(s)
		if err != nil {
			return Query{}, fmt.Errorf("invalid reverse %q", s)
		}
		q.Sort.Reverse = reverse
	}

	if q.Filter.MinPrice, err = parsePrice(v, "min_price"); err != nil {
		return Query{}, err
	}
	if q.Filter.MaxPrice, err = parsePrice(v, "max_price"); err != nil {
		return Query{}, err
	}

	return q, nil
}

func parsePrice(v url.Values, name string) (*decimal.Decimal, error) {
	s := v.Get(name)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return &d, nil
}
