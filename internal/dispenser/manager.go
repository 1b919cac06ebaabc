// Package dispenser implements the dispenser lifecycle, refill recording and
// usage projection on top of a store.Store.
package dispenser

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dispenser-tracker-backend/internal/store"
)

// Manager validates requests, enforces the lifecycle invariants and routes
// writes to the store. It holds no locks; concurrent writers to the same
// record resolve as last writer wins.
type Manager struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for timestamps and projections.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator replaces the uuid generator used for new records.
func WithIDGenerator(gen func() string) Option {
	return func(m *Manager) { m.newID = gen }
}

// NewManager creates a Manager over s.
func NewManager(s store.Store, log *zap.Logger, opts ...Option) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		store: s,
		log:   log.Named("dispenser"),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying store.
func (m *Manager) Store() store.Store {
	return m.store
}

func (m *Manager) utcNow() time.Time {
	return m.now().UTC()
}

// isMissing reports whether err means the row does not exist.
func isMissing(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func strPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
