package payment

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/fjod/undhyu/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.SetOutput(io.Discard)
}

type fixedRoller float64

func (f fixedRoller) Float64() float64 { return float64(f) }

func createSimIntent(t *testing.T, g *SimulatedGateway) *Intent {
	t.Helper()
	intent, err := g.CreateIntent(context.Background(), CreateRequest{OrderID: "ORD-1", Amount: 499800})
	require.NoError(t, err)
	return intent
}

func TestSimulatedGateway_Authorizes(t *testing.T) {
	g := NewSimulatedGateway(WithDelay(0), WithRoller(fixedRoller(0.5)))
	intent := createSimIntent(t, g)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, int64(499800), intent.Amount)

	res, ok := <-g.Results(context.Background(), intent)
	require.True(t, ok)
	assert.Equal(t, ResultAuthorized, res.Kind)
	assert.Equal(t, intent.GatewayOrderID, res.GatewayOrderID)
	assert.NotEmpty(t, res.PaymentID)

	v, err := g.Verify(context.Background(), VerifyRequest{
		GatewayOrderID: res.GatewayOrderID,
		PaymentID:      res.PaymentID,
		Signature:      res.Signature,
	})
	require.NoError(t, err)
	assert.True(t, v.Success)
}

func TestSimulatedGateway_Declines(t *testing.T) {
	g := NewSimulatedGateway(WithDelay(0), WithRoller(fixedRoller(0.95)))
	intent := createSimIntent(t, g)

	res := <-g.Results(context.Background(), intent)
	assert.Equal(t, ResultFailed, res.Kind)
	assert.NotEmpty(t, res.Reason)
}

func TestSimulatedGateway_SuccessRateBoundary(t *testing.T) {
	g := NewSimulatedGateway(WithDelay(0), WithSuccessRate(0.9), WithRoller(fixedRoller(0.9)))
	res := <-g.Results(context.Background(), createSimIntent(t, g))
	assert.Equal(t, ResultFailed, res.Kind)

	g = NewSimulatedGateway(WithDelay(0), WithSuccessRate(0.9), WithRoller(fixedRoller(0.8999)))
	res = <-g.Results(context.Background(), createSimIntent(t, g))
	assert.Equal(t, ResultAuthorized, res.Kind)
}

func TestSimulatedGateway_CancelledContextDismisses(t *testing.T) {
	g := NewSimulatedGateway(WithDelay(time.Hour))
	intent := createSimIntent(t, g)

	ctx, cancel := context.WithCancel(context.Background())
	results := g.Results(ctx, intent)
	cancel()

	select {
	case res := <-results:
		assert.Equal(t, ResultDismissed, res.Kind)
	case <-time.After(time.Second):
		t.Fatal("no result after cancellation")
	}
	_, open := <-results
	assert.False(t, open)
}

func TestSimulatedGateway_RejectsForeignSignature(t *testing.T) {
	g := NewSimulatedGateway(WithDelay(0), WithRoller(fixedRoller(0)))
	other := NewSimulatedGateway(WithDelay(0), WithRoller(fixedRoller(0)))

	intent := createSimIntent(t, other)
	res := <-other.Results(context.Background(), intent)

	v, err := g.Verify(context.Background(), VerifyRequest{
		GatewayOrderID: res.GatewayOrderID,
		PaymentID:      res.PaymentID,
		Signature:      res.Signature,
	})
	require.NoError(t, err)
	assert.False(t, v.Success)
}

func TestSimulatedGateway_RejectsZeroAmount(t *testing.T) {
	_, err := NewSimulatedGateway().CreateIntent(context.Background(), CreateRequest{})
	assert.Error(t, err)
}
