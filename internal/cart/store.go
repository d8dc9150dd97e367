package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/logger"
	"github.com/fjod/undhyu/internal/storage"
	"github.com/shopspring/decimal"
)

// StorageKey is where the line items are persisted.
const StorageKey = "undhyu-cart"

const DefaultAutoClose = 2 * time.Second

type Option func(*Store)

// WithKeyMode sets how line items are told apart. Defaults to domain.KeyByProduct.
func WithKeyMode(mode domain.KeyMode) Option {
	return func(s *Store) { s.mode = mode }
}

// WithAutoClose sets how long the cart stays open after an add. Zero disables
// the timer; callers then rely on AddResult.ShowConfirmation.
func WithAutoClose(d time.Duration) Option {
	return func(s *Store) { s.autoClose = d }
}

// AddResult describes the outcome of a successful add.
type AddResult struct {
	Line             domain.LineItem
	Merged           bool
	ShowConfirmation bool
}

// Store holds the line items of one shopper. Every mutation is written to the
// persistence port before the mutating call returns.
type Store struct {
	mu        sync.Mutex
	storage   storage.Store
	mode      domain.KeyMode
	autoClose time.Duration

	items []domain.LineItem

	open       bool
	closeTimer *time.Timer
	openGen    uint64
}

// NewStore builds a store on top of st and rehydrates it from StorageKey.
// Persisted rows are replayed through the add path, so duplicates are merged
// and invalid rows dropped.
func NewStore(ctx context.Context, st storage.Store, opts ...Option) (*Store, error) {
	s := &Store{
		storage:   st,
		mode:      domain.KeyByProduct,
		autoClose: DefaultAutoClose,
		items:     []domain.LineItem{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.rehydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) rehydrate(ctx context.Context) error {
	raw, err := s.storage.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}

	var persisted []domain.LineItem
	if err := json.Unmarshal(raw, &persisted); err != nil {
		logger.Warn("Discarding unreadable persisted cart", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range persisted {
		if err := line.Validate(); err != nil {
			logger.Warn("Dropping invalid persisted line item", map[string]interface{}{
				"product_id": line.ProductID,
				"quantity":   line.Quantity,
				"error":      err.Error(),
			})
			continue
		}
		s.mergeLocked(line)
	}

	if len(s.items) != len(persisted) {
		return s.persistLocked(ctx)
	}
	return nil
}

// AddItem adds quantity units of the product's first variant.
func (s *Store) AddItem(ctx context.Context, product domain.Product, quantity int) (AddResult, error) {
	return s.AddVariant(ctx, product, "", quantity)
}

// AddVariant adds quantity units of the named variant, or of the first one
// when variantID is empty. In product key mode all variants share one line.
func (s *Store) AddVariant(ctx context.Context, product domain.Product, variantID string, quantity int) (AddResult, error) {
	if quantity < 1 {
		return AddResult{}, domain.ErrInvalidQuantity
	}
	variant, err := product.SelectVariant(variantID)
	if err != nil {
		return AddResult{}, err
	}
	return s.add(ctx, product.LineFor(variant, quantity))
}

// AddLine merges an already materialised line item.
func (s *Store) AddLine(ctx context.Context, line domain.LineItem) error {
	if err := line.Validate(); err != nil {
		return err
	}
	_, err := s.add(ctx, line)
	return err
}

func (s *Store) add(ctx context.Context, line domain.LineItem) (AddResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, merged := s.mergeLocked(line)
	s.openLocked()

	res := AddResult{Line: stored, Merged: merged, ShowConfirmation: true}
	return res, s.persistLocked(ctx)
}

// mergeLocked increments the matching line or appends a new one.
func (s *Store) mergeLocked(line domain.LineItem) (domain.LineItem, bool) {
	if i := s.indexLocked(line.Key()); i >= 0 {
		s.items[i].Quantity += line.Quantity
		return s.items[i], true
	}
	s.items = append(s.items, line)
	return line, false
}

func (s *Store) indexLocked(key domain.LineKey) int {
	key = key.Normalize(s.mode)
	for i, item := range s.items {
		if item.Key().Normalize(s.mode) == key {
			return i
		}
	}
	return -1
}

// RemoveItem deletes the line with the given key. Absent keys are a no-op.
func (s *Store) RemoveItem(ctx context.Context, key domain.LineKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeLocked(ctx, key)
}

func (s *Store) removeLocked(ctx context.Context, key domain.LineKey) error {
	i := s.indexLocked(key)
	if i < 0 {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return s.persistLocked(ctx)
}

// UpdateQuantity sets the quantity of a line. Non-positive quantities remove it.
func (s *Store) UpdateQuantity(ctx context.Context, key domain.LineKey, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		return s.removeLocked(ctx, key)
	}
	i := s.indexLocked(key)
	if i < 0 {
		return nil
	}
	s.items[i].Quantity = quantity
	return s.persistLocked(ctx)
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []domain.LineItem{}
	return s.persistLocked(ctx)
}

func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.TotalOf(s.items)
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CountOf(s.items)
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

func (s *Store) KeyMode() domain.KeyMode {
	return s.mode
}

// persistLocked writes the whole sequence. Holding the mutex keeps writes of
// one store ordered. A failed write leaves the in-memory state as is.
func (s *Store) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	if err := s.storage.Set(ctx, StorageKey, data); err != nil {
		logger.Error(err, "Failed to persist cart", map[string]interface{}{
			"items": len(s.items),
		})
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	return nil
}
