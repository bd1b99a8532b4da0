package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/wastenot/internal/ledger"
	"github.com/sheikh-saqib/wastenot/internal/models"
	"github.com/sheikh-saqib/wastenot/internal/session"
	"github.com/sheikh-saqib/wastenot/internal/storage/memory"
)

//go:embed templates/*
var templateFS embed.FS

// SessionCookie holds the id of the browser's session.
const SessionCookie = "wastenot_session"

const requestTimeout = 3 * time.Second

// Server renders the inventory page and the JSON API on top of per-session ledgers.
type Server struct {
	sessions  *session.Registry
	threshold int
	templates *template.Template
	logger    *zap.Logger
	now       func() time.Time
}

// New parses the page template once so requests only execute it.
func New(sessions *session.Registry, thresholdDays int, logger *zap.Logger) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.gohtml")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		sessions:  sessions,
		threshold: thresholdDays,
		templates: tmpl,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Handler returns the mux with every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/", s.index)
	mux.HandleFunc("/items", s.submitForm)
	mux.HandleFunc("/api/items", s.items)
	mux.HandleFunc("/api/alerts", s.alerts)
	mux.HandleFunc("/api/summary", s.summary)
	return mux
}

// today is the reference date for one render cycle.
func (s *Server) today() models.Date {
	return models.Today(s.now())
}

// sessionID returns the caller's session id, issuing a new cookie when create is set.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request, create bool) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if !create {
		return ""
	}
	id := session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// existingLedger returns the caller's ledger or nil when there is none yet.
func (s *Server) existingLedger(r *http.Request) *ledger.Ledger {
	id := s.sessionID(nil, r, false)
	if id == "" {
		return nil
	}
	return s.sessions.Get(id)
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	page, err := s.buildPage(ctx, s.existingLedger(r))
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.gohtml", page); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

// submitForm handles the add-item form and redirects back to the page.
func (s *Server) submitForm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("quantity")))
	if err != nil {
		http.Error(w, "quantity must be a whole number", http.StatusBadRequest)
		return
	}
	expiry, err := models.ParseDate(strings.TrimSpace(r.PostForm.Get("expiry")))
	if err != nil {
		http.Error(w, "expiry must be a date (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	l := s.sessions.GetOrCreate(s.sessionID(w, r, true))
	if _, err := l.AddItem(ctx, r.PostForm.Get("name"), quantity, expiry); err != nil {
		s.fail(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) items(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listItems(w, r)
	case http.MethodPost:
		s.createItem(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// listItems returns the inventory in urgency order.
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	l := s.existingLedger(r)
	if l == nil {
		writeJSON(w, http.StatusOK, []models.ItemView{})
		return
	}
	if _, err := l.Refresh(ctx, s.today()); err != nil {
		s.fail(w, err)
		return
	}
	views, err := l.ListSortedByUrgency(ctx)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string      `json:"name"`
		Quantity   int         `json:"quantity"`
		ExpiryDate models.Date `json:"expiry_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ExpiryDate.IsZero() {
		http.Error(w, "expiry_date is required (YYYY-MM-DD)", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	l := s.sessions.GetOrCreate(s.sessionID(w, r, true))
	ref, err := l.AddItem(ctx, req.Name, req.Quantity, req.ExpiryDate)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (s *Server) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	threshold := s.threshold
	if v := r.URL.Query().Get("threshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "threshold must be a whole number", http.StatusBadRequest)
			return
		}
		threshold = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	l := s.existingLedger(r)
	if l == nil {
		writeJSON(w, http.StatusOK, []models.ItemView{})
		return
	}
	if _, err := l.Refresh(ctx, s.today()); err != nil {
		s.fail(w, err)
		return
	}
	expiring, err := l.ListExpiringWithin(ctx, threshold)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expiring)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	// A session without a ledger summarises like an empty one.
	l := s.existingLedger(r)
	if l == nil {
		l = ledger.NewLedger(memory.NewMemoryLedgerStore(), ledger.WithClock(s.now))
	}
	if _, err := l.Refresh(ctx, s.today()); err != nil {
		s.fail(w, err)
		return
	}
	sum, err := l.Summary(ctx)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// fail maps validation errors to 400 and everything else to 500.
func (s *Server) fail(w http.ResponseWriter, err error) {
	if models.IsValidation(err) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	http.Error(w, fmt.Sprintf("internal error: %v", err), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
