package interfaces

import (
	"context"

	"github.com/sheikh-saqib/wastenot/internal/models"
)

// LedgerStore holds the items of one ledger in append order.
type LedgerStore interface {
	// SaveItem appends item and returns its index in ledger order.
	SaveItem(ctx context.Context, item models.Item) (int, error)
	GetItems(ctx context.Context) ([]models.Item, error)
	CountItems(ctx context.Context) (int, error)
}
