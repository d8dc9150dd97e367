package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/undhyu/internal/cache"
	"github.com/fjod/undhyu/internal/catalog"
	"github.com/fjod/undhyu/internal/circuitbreaker"
	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/razorpay"
	"github.com/fjod/undhyu/internal/repository"
	"github.com/fjod/undhyu/internal/shopify"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetOutput(io.Discard)
}

type fakeCatalog struct {
	mu          sync.Mutex
	calls       int
	lastQuery   shopify.ProductQuery
	products    []domain.Product
	collections map[string]domain.Collection
	err         error
}

func (f *fakeCatalog) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeCatalog) Products(_ context.Context, q shopify.ProductQuery) (shopify.ProductPage, error) {
	f.count()
	f.lastQuery = q
	if f.err != nil {
		return shopify.ProductPage{}, f.err
	}
	return shopify.ProductPage{Products: f.products, TotalCount: len(f.products)}, nil
}

func (f *fakeCatalog) ProductByHandle(_ context.Context, handle string) (domain.Product, error) {
	f.count()
	if f.err != nil {
		return domain.Product{}, f.err
	}
	for _, p := range f.products {
		if p.Handle == handle {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (f *fakeCatalog) Collections(context.Context, int, string, string) (shopify.CollectionPage, error) {
	f.count()
	page := shopify.CollectionPage{}
	for _, c := range f.collections {
		page.Collections = append(page.Collections, c)
	}
	return page, f.err
}

func (f *fakeCatalog) CollectionByHandle(_ context.Context, handle string) (domain.Collection, error) {
	f.count()
	c, ok := f.collections[handle]
	if !ok {
		return domain.Collection{}, catalog.ErrCollectionNotFound
	}
	return c, nil
}

func (f *fakeCatalog) Featured(context.Context) ([]domain.Collection, error) {
	f.count()
	var out []domain.Collection
	for _, h := range shopify.FeaturedHandles {
		if c, ok := f.collections[h]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

const testSecret = "secret"

type fakePayments struct {
	createErr error
	created   []razorpay.CreateOrderParams
}

func (f *fakePayments) KeyID() string { return "rzp_test_key" }

func (f *fakePayments) CreateOrder(_ context.Context, p razorpay.CreateOrderParams) (*razorpay.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, p)
	return &razorpay.Order{ID: "order_abc", Amount: p.Amount, Currency: p.Currency, Receipt: p.Receipt, Status: "created"}, nil
}

func (f *fakePayments) VerifyPayment(orderID, paymentID, signature string) bool {
	return razorpay.VerifySignature(orderID, paymentID, signature, testSecret)
}

type fakeOrders struct {
	mu      sync.Mutex
	orders  []*repository.VerifiedOrder
	saveErr error
}

func (f *fakeOrders) SaveVerifiedOrder(_ context.Context, order *repository.VerifiedOrder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	for _, o := range f.orders {
		if o.PaymentID == order.PaymentID {
			return repository.ErrDuplicatePayment
		}
	}
	order.ID = "00000000-0000-0000-0000-00000000000" + string(rune('1'+len(f.orders)))
	order.CreatedAt = time.Now()
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeOrders) GetOrder(_ context.Context, id string) (*repository.VerifiedOrder, error) {
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (f *fakeOrders) GetOrderByPaymentID(_ context.Context, paymentID string) (*repository.VerifiedOrder, error) {
	for _, o := range f.orders {
		if o.PaymentID == paymentID {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (f *fakeOrders) ListOrders(_ context.Context, limit int) ([]*repository.VerifiedOrder, error) {
	out := make([]*repository.VerifiedOrder, 0, len(f.orders))
	for i := len(f.orders) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.orders[i])
	}
	return out, nil
}

type fakeStatus struct {
	checks []repository.StatusCheck
}

func (f *fakeStatus) Create(_ context.Context, name string) (*repository.StatusCheck, error) {
	c := repository.StatusCheck{ID: "id-1", ClientName: name, Timestamp: time.Now().UTC()}
	f.checks = append(f.checks, c)
	return &c, nil
}

func (f *fakeStatus) List(context.Context) ([]repository.StatusCheck, error) {
	return f.checks, nil
}

func saree() domain.Product {
	return domain.Product{
		ID:     "gid://shopify/Product/1",
		Title:  "Banarasi Saree",
		Handle: "banarasi-saree",
		Variants: []domain.Variant{{
			ID:               "gid://shopify/ProductVariant/1",
			Price:            domain.Money{Amount: decimal.NewFromInt(2499), CurrencyCode: domain.CurrencyINR},
			AvailableForSale: true,
		}},
	}
}

type fixture struct {
	catalog  *fakeCatalog
	payments *fakePayments
	orders   *fakeOrders
	status   *fakeStatus
	handler  http.Handler
}

func newFixture(t *testing.T, c cache.Cache) *fixture {
	t.Helper()
	f := &fixture{
		catalog: &fakeCatalog{
			products: []domain.Product{saree()},
			collections: map[string]domain.Collection{
				"sarees":  {ID: "c1", Title: "Sarees", Handle: "sarees"},
				"jewelry": {ID: "c2", Title: "Jewelry", Handle: "jewelry"},
			},
		},
		payments: &fakePayments{},
		orders:   &fakeOrders{},
		status:   &fakeStatus{},
	}
	deps := Deps{Catalog: f.catalog, Payments: f.payments, Orders: f.orders, Status: f.status}
	if c != nil {
		deps.Cache = c
	}
	f.handler = NewHandler(deps, 5*time.Second).Routes(nil)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRootAndHealth(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Welcome to Undhyu.com API - Authentic Indian Fashion"}`, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/health", nil)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatusChecks(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/status", map[string]string{"client_name": "storefront"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/status", map[string]string{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var checks []repository.StatusCheck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checks))
	require.Len(t, checks, 1)
	assert.Equal(t, "storefront", checks[0].ClientName)
}

func TestListProductsParsesQuery(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/products?first=5&collection_handle=sarees&sort_key=PRICE&reverse=true&min_price=100", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	q := f.catalog.lastQuery
	assert.Equal(t, 5, q.First)
	assert.Equal(t, "sarees", q.Filter.CollectionHandle)
	assert.Equal(t, catalog.SortPrice, q.Sort.Key)
	assert.True(t, q.Sort.Reverse)
	require.NotNil(t, q.Filter.MinPrice)

	var page shopify.ProductPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Products, 1)
	assert.Equal(t, "banarasi-saree", page.Products[0].Handle)
}

func TestListProductsRejectsBadQuery(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{
		"/api/products?first=251",
		"/api/products?first=0",
		"/api/products?sort_key=NEWEST",
		"/api/products?min_price=cheap",
	} {
		rec := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestProductAndCollectionNotFound(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/products/banarasi-saree", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/collections/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeaturedIsNotAHandle(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/collections/featured", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp collectionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Collections, 2)
	assert.Equal(t, "sarees", resp.Collections[0].Handle)
	assert.Equal(t, "jewelry", resp.Collections[1].Handle)
}

func TestUpstreamErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"graphql", &shopify.GraphQLError{Messages: []string{"bad"}}, http.StatusBadRequest},
		{"status", &shopify.StatusError{Code: 401, Body: "nope"}, http.StatusBadGateway},
		{"breaker", circuitbreaker.ErrOpen, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.catalog.err = tt.err

			rec := f.do(t, http.MethodGet, "/api/products", nil)

			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCatalogResponsesAreCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	f := newFixture(t, cache.NewRedisCache(client, 0))

	for i := 0; i < 3; i++ {
		rec := f.do(t, http.MethodGet, "/api/products?first=5", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, 1, f.catalog.calls)

	rec := f.do(t, http.MethodGet, "/api/products?first=6", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, f.catalog.calls)
}

func TestCacheOutageFallsThrough(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	f := newFixture(t, cache.NewRedisCache(client, 0))
	mr.Close()

	rec := f.do(t, http.MethodGet, "/api/products/banarasi-saree", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.catalog.calls)
}

func TestCreatePaymentOrder(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/create-razorpay-order", CreateOrderRequestDTO{
		Amount:       249900,
		Receipt:      "ORD-1-ABC",
		CustomerInfo: domain.CustomerInfo{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CreateOrderResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, CreateOrderResponseDTO{ID: "order_abc", Amount: 249900, Currency: "INR", Key: "rzp_test_key"}, resp)

	require.Len(t, f.payments.created, 1)
	assert.Equal(t, "ORD-1-ABC", f.payments.created[0].Receipt)
	assert.Equal(t, "Asha Rao", f.payments.created[0].Notes["customer_name"])
}

func TestCreatePaymentOrderErrors(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/create-razorpay-order", CreateOrderRequestDTO{Amount: 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.payments.createErr = errors.New("razorpay down")
	rec = f.do(t, http.MethodPost, "/api/create-razorpay-order", CreateOrderRequestDTO{Amount: 100})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func verifyBody(paymentID, signature string) VerifyPaymentRequestDTO {
	return VerifyPaymentRequestDTO{
		RazorpayOrderID:   "order_abc",
		RazorpayPaymentID: paymentID,
		RazorpaySignature: signature,
		Receipt:           "ORD-1-ABC",
		Cart: []domain.LineItem{{
			ProductID: "gid://shopify/Product/1",
			Title:     "Banarasi Saree",
			UnitPrice: decimal.NewFromInt(2499),
			Quantity:  2,
		}},
		CustomerInfo: domain.CustomerInfo{FirstName: "Asha", Email: "asha@example.com"},
	}
}

func TestVerifyPaymentRecordsOrderOnce(t *testing.T) {
	f := newFixture(t, nil)
	sig := razorpay.Sign("order_abc", "pay_1", testSecret)

	rec := f.do(t, http.MethodPost, "/api/verify-payment", verifyBody("pay_1", sig))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first VerifyPaymentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.True(t, first.Success)
	assert.NotEmpty(t, first.OrderID)

	require.Len(t, f.orders.orders, 1)
	saved := f.orders.orders[0]
	assert.Equal(t, int64(499800), saved.Amount)
	assert.Equal(t, "ORD-1-ABC", saved.Receipt)

	rec = f.do(t, http.MethodPost, "/api/verify-payment", verifyBody("pay_1", sig))
	require.Equal(t, http.StatusOK, rec.Code)
	var second VerifyPaymentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.True(t, second.Success)
	assert.Equal(t, first.OrderID, second.OrderID)
	assert.Len(t, f.orders.orders, 1)

	rec = f.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list ordersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Orders, 1)

	rec = f.do(t, http.MethodGet, "/api/orders/"+first.OrderID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifyPaymentBadSignature(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/verify-payment", verifyBody("pay_1", "forged"))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp VerifyPaymentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Empty(t, f.orders.orders)
}

func TestVerifyPaymentMissingFields(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/verify-payment", verifyBody("", "sig"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyPaymentStorageFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.orders.saveErr = errors.New("db down")
	sig := razorpay.Sign("order_abc", "pay_1", testSecret)

	rec := f.do(t, http.MethodPost, "/api/verify-payment", verifyBody("pay_1", sig))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp VerifyPaymentResponseDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
}

func TestOrderNotFound(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodGet, "/api/orders/unknown", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnconfiguredDependencies(t *testing.T) {
	h := NewHandler(Deps{}, time.Second).Routes(nil)

	for _, path := range []string{"/api/products", "/api/orders", "/api/status"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(Deps{}, time.Second).Routes([]string{"https://undhyu.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	req.Header.Set("Origin", "https://undhyu.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://undhyu.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
