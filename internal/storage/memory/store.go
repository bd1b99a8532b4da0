package memory

import (
	"context"
	"sync"

	"github.com/sheikh-saqib/wastenot/internal/interfaces"
	"github.com/sheikh-saqib/wastenot/internal/models"
)

// MemoryLedgerStore is an in-memory, append-only implementation of interfaces.LedgerStore.
// It lives exactly as long as the ledger that owns it.
type MemoryLedgerStore struct {
	mu    sync.Mutex    // protects items
	items []models.Item // append order is ledger order
}

// NewMemoryLedgerStore creates an empty store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		items: make([]models.Item, 0),
	}
}

// SaveItem appends the item and returns its index.
func (m *MemoryLedgerStore) SaveItem(ctx context.Context, item models.Item) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = append(m.items, item)
	return len(m.items) - 1, nil
}

// GetItems returns a copy of all items so callers can't modify internal state.
func (m *MemoryLedgerStore) GetItems(ctx context.Context) ([]models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.Item, len(m.items))
	copy(copied, m.items)
	return copied, nil
}

func (m *MemoryLedgerStore) CountItems(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore interface
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
