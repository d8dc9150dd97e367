package payment

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/razorpay"
	"github.com/google/uuid"
)

const (
	DefaultSuccessRate = 0.9
	simulationKey      = "rzp_simulation"
)

// Roller draws a number in [0, 1).
type Roller interface {
	Float64() float64
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

// SimulatedGateway stands in for the hosted widget in demo environments.
// Payments succeed with the configured probability after a delay.
type SimulatedGateway struct {
	successRate float64
	delay       time.Duration
	roller      Roller
	secret      string
}

type SimulatedOption func(*SimulatedGateway)

func WithSuccessRate(rate float64) SimulatedOption {
	return func(g *SimulatedGateway) { g.successRate = rate }
}

func WithDelay(d time.Duration) SimulatedOption {
	return func(g *SimulatedGateway) { g.delay = d }
}

func WithRoller(r Roller) SimulatedOption {
	return func(g *SimulatedGateway) { g.roller = r }
}

func NewSimulatedGateway(opts ...SimulatedOption) *SimulatedGateway {
	g := &SimulatedGateway{
		successRate: DefaultSuccessRate,
		delay:       2 * time.Second,
		roller:      &lockedRand{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))},
		secret:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *SimulatedGateway) CreateIntent(_ context.Context, req CreateRequest) (*Intent, error) {
	if req.Amount <= 0 {
		return nil, errors.New("amount must be positive")
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	return &Intent{
		OrderID:        req.OrderID,
		GatewayOrderID: "order_sim_" + shortID(),
		Amount:         req.Amount,
		Currency:       currency,
		Key:            simulationKey,
	}, nil
}

// Results emits a single widget event for intent and closes the channel.
// Cancelling ctx before the delay elapses yields a dismissal.
func (g *SimulatedGateway) Results(ctx context.Context, intent *Intent) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)

		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			out <- Result{Kind: ResultDismissed, GatewayOrderID: intent.GatewayOrderID}
			return
		case <-timer.C:
		}

		if g.roller.Float64() >= g.successRate {
			logger.Info("Simulated payment declined", map[string]interface{}{
				"order_id": intent.OrderID,
			})
			out <- Result{
				Kind:           ResultFailed,
				GatewayOrderID: intent.GatewayOrderID,
				Reason:         "Payment declined by simulated gateway",
			}
			return
		}

		paymentID := "pay_sim_" + shortID()
		out <- Result{
			Kind:           ResultAuthorized,
			GatewayOrderID: intent.GatewayOrderID,
			PaymentID:      paymentID,
			Signature:      razorpay.Sign(intent.GatewayOrderID, paymentID, g.secret),
		}
	}()
	return out
}

// Verify accepts only signatures this gateway issued.
func (g *SimulatedGateway) Verify(_ context.Context, req VerifyRequest) (Verification, error) {
	ok := razorpay.VerifySignature(req.GatewayOrderID, req.PaymentID, req.Signature, g.secret)
	return Verification{Success: ok}, nil
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}
