package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const ShopperHeader = "X-Shopper-ID"

type ctxKey int

const shopperKey ctxKey = iota

// ShopperMiddleware identifies the shopper by header, issuing a new id when
// the client has none. The id is echoed so the client can keep it.
func ShopperMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ShopperHeader)
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(ShopperHeader, id)
		ctx := context.WithValue(r.Context(), shopperKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getShopperIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(shopperKey).(string); ok {
		return id
	}
	return ""
}
