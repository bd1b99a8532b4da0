package models

import "time"

// Item is one entry in the inventory ledger. Once appended it never changes.
type Item struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	ExpiryDate Date      `json:"expiry_date"`
	AddedAt    time.Time `json:"added_at"`
}

// ItemRef points at a freshly appended item.
type ItemRef struct {
	ID    string `json:"id"`
	Index int    `json:"index"` // position in ledger order
}

// ItemView is an Item with its fields derived for a given reference date.
// Views are rebuilt on every read and never stored.
type ItemView struct {
	Item
	DaysLeft       int            `json:"days_left"`
	Recommendation Recommendation `json:"recommendation"`
}

// ViewOf derives the view of item as of today.
func ViewOf(item Item, today Date) ItemView {
	daysLeft := today.DaysUntil(item.ExpiryDate)
	return ItemView{
		Item:           item,
		DaysLeft:       daysLeft,
		Recommendation: Classify(daysLeft),
	}
}
