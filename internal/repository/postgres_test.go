package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDB(t *testing.T) *Postgres {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	repo, err := NewPostgres(&Credentials{
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	})
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations())

	t.Cleanup(func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return repo
}

func newTestOrder(paymentID string) *VerifiedOrder {
	return &VerifiedOrder{
		Receipt:         "ORD-1700000000000-ABCDEFGHI",
		RazorpayOrderID: "order_123",
		PaymentID:       paymentID,
		Amount:          249900,
		Currency:        domain.CurrencyINR,
		Items: []domain.LineItem{{
			ProductID: "gid://shopify/Product/1",
			Title:     "Banarasi Saree",
			UnitPrice: decimal.NewFromInt(2499),
			Quantity:  1,
		}},
		Customer: domain.CustomerInfo{FirstName: "Asha", Email: "asha@example.com", Country: domain.DefaultCountry},
	}
}

func TestSaveVerifiedOrderWritesOutboxEvent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("pay_1")
	require.NoError(t, repo.SaveVerifiedOrder(ctx, order))
	assert.NotEmpty(t, order.ID)
	assert.False(t, order.CreatedAt.IsZero())

	fetched, err := repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "pay_1", fetched.PaymentID)
	assert.Equal(t, int64(249900), fetched.Amount)
	require.Len(t, fetched.Items, 1)
	assert.True(t, fetched.Items[0].UnitPrice.Equal(decimal.NewFromInt(2499)))
	assert.Equal(t, "asha@example.com", fetched.Customer.Email)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.ID, events[0].AggregateID)
	assert.Equal(t, EventOrderPlaced, events[0].EventType)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, "pay_1", payload["payment_id"])
	assert.Equal(t, "asha@example.com", payload["customer_email"])
}

func TestSaveVerifiedOrderDuplicatePayment(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveVerifiedOrder(ctx, newTestOrder("pay_dup")))
	err := repo.SaveVerifiedOrder(ctx, newTestOrder("pay_dup"))
	assert.ErrorIs(t, err, ErrDuplicatePayment)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	existing, err := repo.GetOrderByPaymentID(ctx, "pay_dup")
	require.NoError(t, err)
	assert.Equal(t, events[0].AggregateID, existing.ID)

	_, err = repo.GetOrderByPaymentID(ctx, "pay_other")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetOrderNotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetOrder(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = repo.GetOrder(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrdersNewestFirst(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	first := newTestOrder("pay_a")
	require.NoError(t, repo.SaveVerifiedOrder(ctx, first))
	time.Sleep(10 * time.Millisecond)
	second := newTestOrder("pay_b")
	require.NoError(t, repo.SaveVerifiedOrder(ctx, second))

	orders, err := repo.ListOrders(ctx, 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "pay_b", orders[0].PaymentID)
	assert.Equal(t, "pay_a", orders[1].PaymentID)
}

func TestMarkEventAsProcessed(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, repo.SaveVerifiedOrder(ctx, newTestOrder("pay_1")))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	assert.Error(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
