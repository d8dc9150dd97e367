package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/fjod/undhyu/internal/domain"
	"github.com/fjod/undhyu/internal/storage"
)

// StorageKey is where the shopper's order history is kept.
const StorageKey = "orders"

// History is the append-only list of a shopper's confirmed orders.
type History struct {
	mu      sync.Mutex
	storage storage.Store
}

func NewHistory(st storage.Store) *History {
	return &History{storage: st}
}

// Append adds order to the end of the history. Existing entries are written
// back exactly as they were read.
func (h *History) Append(ctx context.Context, order domain.Order) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx)
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("failed to encode order: %w", err)
	}
	entries = append(entries, encoded)

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode order history: %w", err)
	}
	if err := h.storage.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("failed to persist order history: %w", err)
	}
	return nil
}

// List returns the orders oldest first. Entries that no longer decode are skipped.
func (h *History) List(ctx context.Context) ([]domain.Order, error) {
	h.mu.Lock()
	entries, err := h.load(ctx)
	h.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]domain.Order, 0, len(entries))
	for _, raw := range entries {
		var order domain.Order
		if err := json.Unmarshal(raw, &order); err != nil {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

// load keeps entries as raw JSON so Append never rewrites them.
func (h *History) load(ctx context.Context) ([]json.RawMessage, error) {
	data, err := h.storage.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("order history is corrupt: %w", err)
	}
	return entries, nil
}
