package events

import (
	"time"

	"github.com/sheikh-saqib/wastenot/internal/models"
)

type ItemAdded struct {
	EventID    string      `json:"event_id"`
	ItemID     string      `json:"item_id"`
	Name       string      `json:"name"`
	Quantity   int         `json:"quantity"`
	ExpiryDate models.Date `json:"expiry_date"`
	DaysLeft   int         `json:"days_left"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// PartitionKey keeps all events of one item on the same partition.
func (e ItemAdded) PartitionKey() string {
	return e.ItemID
}
