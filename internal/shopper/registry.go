package shopper

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/undhyu/internal/cart"
	"github.com/fjod/undhyu/internal/checkout"
	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/orders"
	"github.com/fjod/undhyu/internal/payment"
	"github.com/fjod/undhyu/internal/storage"
	"golang.org/x/sync/singleflight"
)

var ErrInvalidID = errors.New("invalid shopper id")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Session is everything the storefront keeps for one shopper.
type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Orchestrator
	Orders   *orders.History
}

type Config struct {
	KeyMode        domain.KeyMode
	AutoClose      time.Duration
	PaymentTimeout time.Duration
	// IdleTTL is how long an untouched session stays in memory. Zero keeps
	// sessions until evicted by hand.
	IdleTTL time.Duration
}

type entry struct {
	session  *Session
	lastSeen atomic.Int64 // unix nanos
}

// Registry builds sessions on first use and keeps them until evicted.
type Registry struct {
	storage storage.Store
	gateway payment.Gateway
	cfg     Config
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
	sfg      singleflight.Group
}

func NewRegistry(st storage.Store, gateway payment.Gateway, cfg Config) *Registry {
	return &Registry{
		storage:  st,
		gateway:  gateway,
		cfg:      cfg,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Get returns the shopper's session, rehydrating it from storage the first time.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if !idPattern.MatchString(id) {
		return nil, ErrInvalidID
	}

	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		e.touch(r.now())
		return e.session, nil
	}

	v, err, _ := r.sfg.Do(id, func() (interface{}, error) {
		r.mu.RLock()
		e, ok := r.sessions[id]
		r.mu.RUnlock()
		if ok {
			return e, nil
		}

		s, err := r.build(ctx, id)
		if err != nil {
			return nil, err
		}

		e = &entry{session: s}
		r.mu.Lock()
		r.sessions[id] = e
		r.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	e = v.(*entry)
	e.touch(r.now())
	return e.session, nil
}

func (e *entry) touch(t time.Time) {
	e.lastSeen.Store(t.UnixNano())
}

func (r *Registry) build(ctx context.Context, id string) (*Session, error) {
	scoped := storage.Scoped(r.storage, "shopper:"+id)

	store, err := cart.NewStore(ctx, scoped,
		cart.WithKeyMode(r.cfg.KeyMode),
		cart.WithAutoClose(r.cfg.AutoClose),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart for shopper %s: %w", id, err)
	}

	history := orders.NewHistory(scoped)
	orch := checkout.New(store, r.gateway, history,
		checkout.WithPaymentTimeout(r.cfg.PaymentTimeout),
		checkout.WithCustomerStorage(scoped),
	)
	if err := orch.LoadCustomer(ctx); err != nil {
		return nil, err
	}

	return &Session{ID: id, Cart: store, Checkout: orch, Orders: history}, nil
}

// Evict drops the in-memory session. Persisted state stays in storage.
// Sessions with a payment in flight are kept.
func (r *Registry) Evict(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return false
	}
	if e.session.Checkout.InFlight() {
		return false
	}
	delete(r.sessions, id)
	return true
}

// EvictIdle drops every session not used within ttl and returns how many
// went. Sessions with a payment in flight are kept.
func (r *Registry) EvictIdle(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl).UnixNano()

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, e := range r.sessions {
		if e.lastSeen.Load() > cutoff || e.session.Checkout.InFlight() {
			continue
		}
		delete(r.sessions, id)
		evicted++
	}
	return evicted
}

// Run sweeps idle sessions every interval until ctx is done. It returns at
// once when no IdleTTL is configured.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.cfg.IdleTTL <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := r.EvictIdle(r.cfg.IdleTTL); n > 0 {
				logger.Debug("Evicted idle shopper sessions", map[string]interface{}{
					"evicted": n,
					"active":  r.Len(),
				})
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
