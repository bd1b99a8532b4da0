package httpapi

import (
	"context"
	"fmt"
	"sort"

	"github.com/sheikh-saqib/wastenot/internal/ledger"
	"github.com/sheikh-saqib/wastenot/internal/models"
)

// barColors follows models.Recommendations order.
var barColors = map[models.Recommendation]string{
	models.Keep:            "green",
	models.EatSoonOrDonate: "orange",
	models.Compost:         "red",
}

type chartBar struct {
	Label   string
	Count   int
	Percent int // bar height relative to the tallest bar
	Color   string
}

type pageData struct {
	Today     models.Date
	Threshold int
	HasItems  bool
	Inventory []models.ItemView // urgency order
	Ledger    []models.ItemView // ledger order, for the recommendations table
	Alerts    []string
	Bars      []chartBar
}

// buildPage runs one render cycle: refresh, then every view the page shows.
// A nil ledger renders only the add form.
func (s *Server) buildPage(ctx context.Context, l *ledger.Ledger) (pageData, error) {
	today := s.today()
	page := pageData{Today: today, Threshold: s.threshold}
	if l == nil {
		return page, nil
	}

	views, err := l.Refresh(ctx, today)
	if err != nil {
		return page, err
	}
	page.Ledger = views

	inventory, err := l.ListSortedByUrgency(ctx)
	if err != nil {
		return page, err
	}
	if len(inventory) == 0 {
		return page, nil
	}
	page.HasItems = true
	page.Inventory = inventory

	expiring, err := l.ListExpiringWithin(ctx, s.threshold)
	if err != nil {
		return page, err
	}
	for _, v := range expiring {
		page.Alerts = append(page.Alerts, alertMessage(v))
	}

	counts, err := l.RecommendationCounts(ctx)
	if err != nil {
		return page, err
	}
	page.Bars = chartBars(counts)
	return page, nil
}

func alertMessage(v models.ItemView) string {
	return fmt.Sprintf("%s (%d) is expiring in %d day(s)! Consider eating soon or donating.",
		v.Name, v.Quantity, v.DaysLeft)
}

// chartBars lays out one bar per non-empty category, tallest first.
func chartBars(counts map[models.Recommendation]int) []chartBar {
	tallest := 0
	for _, n := range counts {
		if n > tallest {
			tallest = n
		}
	}

	var bars []chartBar
	for _, rec := range models.Recommendations() {
		n := counts[rec]
		if n == 0 {
			continue
		}
		bars = append(bars, chartBar{
			Label:   rec.String(),
			Count:   n,
			Percent: n * 100 / tallest,
			Color:   barColors[rec],
		})
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Count > bars[j].Count
	})
	return bars
}
