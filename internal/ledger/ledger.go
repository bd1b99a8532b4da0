package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/wastenot/internal/interfaces"
	"github.com/sheikh-saqib/wastenot/internal/models"
	"github.com/sheikh-saqib/wastenot/internal/models/events"
)

// DefaultAlertThreshold is the days-left cutoff used for expiry alerts.
const DefaultAlertThreshold = 3

// DefaultPublishTimeout bounds how long AddItem waits on the event publisher.
const DefaultPublishTimeout = 250 * time.Millisecond

// Ledger is the inventory of one session. Items are only ever appended;
// days left and recommendations are derived on every read.
type Ledger struct {
	store     interfaces.LedgerStore
	publisher interfaces.EventPublisher // optional
	topic     string
	pubWait   time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex // protects asOf
	asOf models.Date
}

type Option func(*Ledger)

// WithPublisher announces every added item on topic.
func WithPublisher(p interfaces.EventPublisher, topic string) Option {
	return func(l *Ledger) {
		l.publisher = p
		l.topic = topic
	}
}

// WithPublishTimeout changes DefaultPublishTimeout.
func WithPublishTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.pubWait = d
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates an empty ledger backed by store.
func NewLedger(store interfaces.LedgerStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:   store,
		pubWait: DefaultPublishTimeout,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddItem appends a new item. Empty names and past expiry dates are accepted;
// a quantity below 1 is rejected with a *models.ValidationError and the
// ledger is left unchanged.
func (l *Ledger) AddItem(ctx context.Context, name string, quantity int, expiry models.Date) (models.ItemRef, error) {
	if quantity < 1 {
		return models.ItemRef{}, &models.ValidationError{
			Field:   "quantity",
			Message: fmt.Sprintf("must be at least 1, got %d", quantity),
		}
	}

	now := l.now()
	item := models.Item{
		ID:         uuid.New().String(),
		Name:       name,
		Quantity:   quantity,
		ExpiryDate: expiry,
		AddedAt:    now,
	}

	idx, err := l.store.SaveItem(ctx, item)
	if err != nil {
		return models.ItemRef{}, fmt.Errorf("save item: %w", err)
	}

	daysLeft := models.Today(now).DaysUntil(expiry)
	l.logger.Info("item added",
		zap.String("item_id", item.ID),
		zap.String("name", item.Name),
		zap.Int("quantity", item.Quantity),
		zap.Stringer("expiry_date", item.ExpiryDate),
		zap.Int("days_left", daysLeft))

	l.publish(ctx, item, daysLeft)

	return models.ItemRef{ID: item.ID, Index: idx}, nil
}

// publish is best effort: the item is already recorded. It runs detached
// from the caller's cancellation and is bounded by the publish timeout.
func (l *Ledger) publish(ctx context.Context, item models.Item, daysLeft int) {
	if l.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.pubWait)
	defer cancel()

	evt := events.ItemAdded{
		EventID:    uuid.New().String(),
		ItemID:     item.ID,
		Name:       item.Name,
		Quantity:   item.Quantity,
		ExpiryDate: item.ExpiryDate,
		DaysLeft:   daysLeft,
		OccurredAt: item.AddedAt,
	}
	if err := l.publisher.Publish(ctx, l.topic, evt); err != nil {
		l.logger.Warn("failed to publish item added event",
			zap.String("item_id", item.ID),
			zap.Error(err))
	}
}

// Refresh makes today the reference date for every later read and returns
// all items, in ledger order, with days left computed against it.
// A zero today is rejected with a *models.ValidationError.
func (l *Ledger) Refresh(ctx context.Context, today models.Date) ([]models.ItemView, error) {
	if today.IsZero() {
		return nil, &models.ValidationError{Field: "today", Message: "reference date is required"}
	}

	l.mu.Lock()
	l.asOf = today
	l.mu.Unlock()

	return l.views(ctx, today)
}

// AsOf returns the reference date used for reads. Before the first Refresh
// it is the current local date.
func (l *Ledger) AsOf() models.Date {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.asOf.IsZero() {
		return models.Today(l.now())
	}
	return l.asOf
}

func (l *Ledger) views(ctx context.Context, today models.Date) ([]models.ItemView, error) {
	items, err := l.store.GetItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	views := make([]models.ItemView, len(items))
	for i, item := range items {
		views[i] = models.ViewOf(item, today)
	}
	return views, nil
}

// ListSortedByUrgency returns every item ordered by days left, soonest first.
// Items with equal days left keep their ledger order.
func (l *Ledger) ListSortedByUrgency(ctx context.Context) ([]models.ItemView, error) {
	views, err := l.views(ctx, l.AsOf())
	if err != nil {
		return nil, err
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].DaysLeft < views[j].DaysLeft
	})
	return views, nil
}

// ListExpiringWithin returns, in ledger order, the items with at most
// thresholdDays days left. Already expired items are included.
func (l *Ledger) ListExpiringWithin(ctx context.Context, thresholdDays int) ([]models.ItemView, error) {
	views, err := l.views(ctx, l.AsOf())
	if err != nil {
		return nil, err
	}

	expiring := make([]models.ItemView, 0, len(views))
	for _, v := range views {
		if v.DaysLeft <= thresholdDays {
			expiring = append(expiring, v)
		}
	}
	return expiring, nil
}

// Classify is models.Classify, kept on the ledger for callers that only hold a *Ledger.
func (l *Ledger) Classify(daysLeft int) models.Recommendation {
	return models.Classify(daysLeft)
}

// RecommendationCounts tallies the current recommendation of every item.
// Categories with no items are absent.
func (l *Ledger) RecommendationCounts(ctx context.Context) (map[models.Recommendation]int, error) {
	views, err := l.views(ctx, l.AsOf())
	if err != nil {
		return nil, err
	}

	counts := make(map[models.Recommendation]int)
	for _, v := range views {
		counts[v.Recommendation]++
	}
	return counts, nil
}

// Len returns the number of items recorded so far.
func (l *Ledger) Len(ctx context.Context) (int, error) {
	n, err := l.store.CountItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// CategorySummary is one bar of the recommendation chart.
type CategorySummary struct {
	Recommendation models.Recommendation `json:"recommendation"`
	Count          int                   `json:"count"`
	Quantity       int                   `json:"quantity"`
	Share          decimal.Decimal       `json:"share"` // percent of items, two decimals
}

// Summary aggregates the ledger for charting.
type Summary struct {
	AsOf          models.Date       `json:"as_of"`
	TotalItems    int               `json:"total_items"`
	TotalQuantity int               `json:"total_quantity"`
	Categories    []CategorySummary `json:"categories"`
}

// Summary returns one entry per recommendation, in models.Recommendations order,
// including empty categories.
func (l *Ledger) Summary(ctx context.Context) (Summary, error) {
	asOf := l.AsOf()
	views, err := l.views(ctx, asOf)
	if err != nil {
		return Summary{}, err
	}

	byRec := make(map[models.Recommendation]*CategorySummary)
	sum := Summary{AsOf: asOf, TotalItems: len(views)}
	for _, rec := range models.Recommendations() {
		sum.Categories = append(sum.Categories, CategorySummary{Recommendation: rec, Share: decimal.Zero})
	}
	for i := range sum.Categories {
		byRec[sum.Categories[i].Recommendation] = &sum.Categories[i]
	}

	for _, v := range views {
		c := byRec[v.Recommendation]
		c.Count++
		c.Quantity += v.Quantity
		sum.TotalQuantity += v.Quantity
	}

	if sum.TotalItems > 0 {
		total := decimal.NewFromInt(int64(sum.TotalItems))
		hundred := decimal.NewFromInt(100)
		for i := range sum.Categories {
			c := &sum.Categories[i]
			c.Share = decimal.NewFromInt(int64(c.Count)).Div(total).Mul(hundred).Round(2)
		}
	}
	return sum, nil
}
