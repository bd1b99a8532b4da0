package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/wastenot/internal/ledger"
	"github.com/sheikh-saqib/wastenot/internal/models"
	"github.com/sheikh-saqib/wastenot/internal/session"
	"github.com/sheikh-saqib/wastenot/internal/storage/memory"
)

var fixedNow = time.Date(2024, time.May, 1, 10, 0, 0, 0, time.Local)

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	registry := session.NewRegistry(func() *ledger.Ledger {
		return ledger.NewLedger(memory.NewMemoryLedgerStore(), ledger.WithClock(clock))
	}, time.Hour, nil)

	srv, err := New(registry, ledger.DefaultAlertThreshold, nil)
	require.NoError(t, err)
	srv.now = clock
	return srv, srv.Handler()
}

func today() models.Date {
	return models.Today(fixedNow)
}

// postItem adds an item over the JSON API and returns the session cookie in use.
func postItem(t *testing.T, h http.Handler, cookie *http.Cookie, name string, qty int, expiry models.Date) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()
	body, err := json.Marshal(map[string]any{"name": name, "quantity": qty, "expiry_date": expiry})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(string(body)))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	return rec, cookie
}

func get(h http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func seedPantry(t *testing.T, h http.Handler) *http.Cookie {
	t.Helper()
	rec, cookie := postItem(t, h, nil, "Milk", 2, today().AddDays(2))
	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, cookie)

	rec, _ = postItem(t, h, cookie, "Bread", 1, today().AddDays(-1))
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = postItem(t, h, cookie, "Rice", 5, today().AddDays(30))
	require.Equal(t, http.StatusCreated, rec.Code)
	return cookie
}

func TestHealth(t *testing.T) {
	_, h := newTestServer(t)
	rec := get(h, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListItemsSortedByUrgency(t *testing.T) {
	_, h := newTestServer(t)
	cookie := seedPantry(t, h)

	rec := get(h, "/api/items", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var views []models.ItemView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 3)
	assert.Equal(t, "Bread", views[0].Name)
	assert.Equal(t, -1, views[0].DaysLeft)
	assert.Equal(t, models.Compost, views[0].Recommendation)
	assert.Equal(t, "Milk", views[1].Name)
	assert.Equal(t, models.EatSoonOrDonate, views[1].Recommendation)
	assert.Equal(t, "Rice", views[2].Name)
	assert.Equal(t, 30, views[2].DaysLeft)
}

func TestSessionsDoNotShareLedgers(t *testing.T) {
	_, h := newTestServer(t)
	seedPantry(t, h)

	rec := get(h, "/api/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateItemRejectsZeroQuantity(t *testing.T) {
	_, h := newTestServer(t)
	cookie := seedPantry(t, h)

	rec, _ := postItem(t, h, cookie, "Eggs", 0, today())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantity")

	var views []models.ItemView
	require.NoError(t, json.Unmarshal(get(h, "/api/items", cookie).Body.Bytes(), &views))
	assert.Len(t, views, 3)
}

func TestCreateItemInvalidBody(t *testing.T) {
	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"expiry_date":"soon"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAlerts(t *testing.T) {
	_, h := newTestServer(t)
	cookie := seedPantry(t, h)

	var views []models.ItemView
	rec := get(h, "/api/alerts", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 2)
	assert.Equal(t, "Milk", views[0].Name)
	assert.Equal(t, "Bread", views[1].Name)

	rec = get(h, "/api/alerts?threshold=30", cookie)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Len(t, views, 3)

	rec = get(h, "/api/alerts?threshold=-5", cookie)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	assert.Empty(t, views)

	rec = get(h, "/api/alerts?threshold=soon", cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummary(t *testing.T) {
	_, h := newTestServer(t)

	rec := get(h, "/api/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var empty ledger.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Zero(t, empty.TotalItems)
	assert.Len(t, empty.Categories, 3)

	cookie := seedPantry(t, h)
	rec = get(h, "/api/summary", cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var sum ledger.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 3, sum.TotalItems)
	assert.Equal(t, 8, sum.TotalQuantity)
	assert.Equal(t, today(), sum.AsOf)
	for _, c := range sum.Categories {
		assert.Equal(t, 1, c.Count, c.Recommendation.String())
		assert.Equal(t, "33.33", c.Share.String())
	}
}

func TestIndexWithoutSessionShowsOnlyForm(t *testing.T) {
	_, h := newTestServer(t)

	rec := get(h, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Add Food Item")
	assert.Contains(t, body, `value="2024-05-01"`)
	assert.NotContains(t, body, "Current Inventory")
}

func TestIndexRendersInventory(t *testing.T) {
	_, h := newTestServer(t)
	cookie := seedPantry(t, h)

	rec := get(h, "/", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "Current Inventory")
	assert.Contains(t, body, "Milk (2) is expiring in 2 day(s)! Consider eating soon or donating.")
	assert.Contains(t, body, "Bread (1) is expiring in -1 day(s)!")
	assert.NotContains(t, body, "Rice (5) is expiring")
	assert.Contains(t, body, "Eat soon / Donate")
	assert.Contains(t, body, "Items by Recommended Action")
	assert.Less(t, strings.Index(body, "<td>Bread</td>"), strings.Index(body, "<td>Milk</td>"))
}

func TestIndexWithoutAlerts(t *testing.T) {
	_, h := newTestServer(t)
	rec, cookie := postItem(t, h, nil, "Rice", 5, today().AddDays(30))
	require.Equal(t, http.StatusCreated, rec.Code)

	body := get(h, "/", cookie).Body.String()
	assert.Contains(t, body, "No items expiring in the next 3 days.")
}

func TestSubmitForm(t *testing.T) {
	_, h := newTestServer(t)

	form := url.Values{"name": {"Cheese"}, "quantity": {"3"}, "expiry": {"2024-05-04"}}
	req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			cookie = c
		}
	}
	require.NotNil(t, cookie)

	var views []models.ItemView
	require.NoError(t, json.Unmarshal(get(h, "/api/items", cookie).Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "Cheese", views[0].Name)
	assert.Equal(t, 3, views[0].DaysLeft)
}

func TestSubmitFormErrors(t *testing.T) {
	_, h := newTestServer(t)

	tests := []struct {
		name string
		form url.Values
	}{
		{name: "quantity not a number", form: url.Values{"quantity": {"a few"}, "expiry": {"2024-05-04"}}},
		{name: "quantity zero", form: url.Values{"quantity": {"0"}, "expiry": {"2024-05-04"}}},
		{name: "bad date", form: url.Values{"quantity": {"1"}, "expiry": {"next week"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/items", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, h := newTestServer(t)

	for _, path := range []string{"/api/items", "/api/alerts", "/api/summary", "/items", "/"} {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}

func TestChartBars(t *testing.T) {
	bars := chartBars(map[models.Recommendation]int{
		models.Keep:    1,
		models.Compost: 4,
	})
	require.Len(t, bars, 2)
	assert.Equal(t, chartBar{Label: "Compost", Count: 4, Percent: 100, Color: "red"}, bars[0])
	assert.Equal(t, chartBar{Label: "Keep", Count: 1, Percent: 25, Color: "green"}, bars[1])

	assert.Empty(t, chartBars(nil))
}

func TestCreateItemMissingExpiry(t *testing.T) {
	_, h := newTestServer(t)
	cookie := seedPantry(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(`{"name":"Milk","quantity":2}`))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "expiry_date")

	var views []models.ItemView
	require.NoError(t, json.Unmarshal(get(h, "/api/items", cookie).Body.Bytes(), &views))
	assert.Len(t, views, 3)
	for _, v := range views {
		assert.False(t, v.ExpiryDate.IsZero())
	}
}

func TestRecommendationsTableKeepsLedgerOrder(t *testing.T) {
	_, h := newTestServer(t)
	cookie := seedPantry(t, h)

	body := get(h, "/", cookie).Body.String()
	milk := strings.Index(body, "<td>Milk</td><td>2</td><td>2</td><td>Eat soon / Donate</td>")
	bread := strings.Index(body, "<td>Bread</td><td>1</td><td>-1</td><td>Compost</td>")
	rice := strings.Index(body, "<td>Rice</td><td>5</td><td>30</td><td>Keep</td>")
	require.NotEqual(t, -1, milk)
	require.NotEqual(t, -1, bread)
	require.NotEqual(t, -1, rice)
	assert.Less(t, milk, bread)
	assert.Less(t, bread, rice)
}

func TestChartBarsTiesKeepCategoryOrder(t *testing.T) {
	bars := chartBars(map[models.Recommendation]int{
		models.Keep:            2,
		models.EatSoonOrDonate: 3,
		models.Compost:         2,
	})
	require.Len(t, bars, 3)
	assert.Equal(t, "Eat soon / Donate", bars[0].Label)
	assert.Equal(t, "Keep", bars[1].Label)
	assert.Equal(t, "Compost", bars[2].Label)
	assert.Equal(t, 66, bars[1].Percent)
}
