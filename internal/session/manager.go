package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/plat-lots/internal/metrics"
	"github.com/joeblew999/plat-lots/internal/service"
)

// DefaultTTL is how long a session without streams survives.
const DefaultTTL = 30 * time.Minute

// batchBuffer is the number of batches a slow stream may fall behind.
const batchBuffer = 64

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets the idle lifetime of sessions.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// Manager owns the live sessions.
type Manager struct {
	resolve Resolver
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(resolve Resolver, opts ...Option) *Manager {
	m := &Manager{
		resolve:  resolve,
		ttl:      DefaultTTL,
		now:      time.Now,
		log:      slog.Default(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create registers a new session for a map variant.
func (m *Manager) Create(variant string) *Session {
	id := uuid.New().String()
	s := &Session{
		ID:       id,
		Variant:  variant,
		resolve:  m.resolve,
		now:      m.now,
		log:      m.log.With("session", id),
		bus:      service.NewBus[Batch](batchBuffer),
		lastSeen: m.now(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.SessionsCreatedTotal.Inc()
	metrics.SessionsActive.Set(float64(n))
	s.log.Debug("Session created", "variant", variant)
	return s
}

// Get returns a live session.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions that have had no stream and no event for longer than
// the TTL. It returns the number dropped.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idle(now, m.ttl) {
			delete(m.sessions, id)
			expired = append(expired, s)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		s.bus.Close()
		s.log.Debug("Session expired")
	}
	if len(expired) > 0 {
		metrics.SessionsExpiredTotal.Add(float64(len(expired)))
	}
	metrics.SessionsActive.Set(float64(n))
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.log.Info("Swept idle sessions", "count", n, "live", m.Len())
			}
		}
	}
}
