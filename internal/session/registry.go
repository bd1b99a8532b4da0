package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/wastenot/internal/ledger"
)

// Factory builds the empty ledger of a new session.
type Factory func() *ledger.Ledger

type entry struct {
	ledger   *ledger.Ledger
	lastSeen time.Time
}

// Registry owns one ledger per session. A session's ledger is created on
// first use and released once the session has been idle for longer than ttl.
type Registry struct {
	mu       sync.Mutex // protects sessions
	sessions map[string]*entry

	factory Factory
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewRegistry(factory Factory, ttl time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sessions: make(map[string]*entry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.New().String()
}

// Get returns the ledger of session id, or nil if the session has none yet.
func (r *Registry) Get(id string) *ledger.Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil
	}
	e.lastSeen = r.now()
	return e.ledger
}

// GetOrCreate returns the ledger of session id, creating an empty one if needed.
func (r *Registry) GetOrCreate(id string) *ledger.Ledger {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.sessions[id]; ok {
		e.lastSeen = now
		return e.ledger
	}

	e := &entry{ledger: r.factory(), lastSeen: now}
	r.sessions[id] = e
	r.logger.Debug("session ledger created", zap.String("session_id", id))
	return e.ledger
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep releases every session idle for longer than the ttl and returns how many it dropped.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	dropped := 0
	for id, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			dropped++
		}
	}
	if dropped > 0 {
		r.logger.Info("expired idle sessions",
			zap.Int("dropped", dropped),
			zap.Int("remaining", len(r.sessions)))
	}
	return dropped
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
