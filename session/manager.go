package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager creates, looks up and expires sessions held in a Store.
type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger used to report sweeps.
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager returns a Manager whose sessions live for ttl after creation or
// their last update.
func NewManager(store Store, ttl time.Duration, opts ...ManagerOption) (*Manager, error) {
	if store == nil || ttl <= 0 {
		return nil, ErrInvalidConfig
	}
	m := &Manager{store: store, ttl: ttl, now: time.Now, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Create starts a new session, optionally bound to subject.
func (m *Manager) Create(ctx context.Context, subject string) (*Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if subject != "" {
		s.Subject = &subject
	}
	if err := m.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the live session with id. Missing and expired sessions both
// yield ErrNotFound.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil || s.Expired(m.now()) {
		return nil, ErrNotFound
	}
	return s, nil
}

// SetToken stores an upstream login token on the session and extends its
// expiry.
func (m *Manager) SetToken(ctx context.Context, id, token string) (*Session, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	now := m.now()
	s.Token = &token
	s.UpdatedAt = now
	s.ExpiresAt = now.Add(m.ttl)
	if err := m.store.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete ends a session.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// Sweep removes expired sessions and returns how many were removed.
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	n, err := m.store.DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Debug().Int("removed", n).Msg("expired sessions swept")
	}
	return n, nil
}

// Run sweeps every interval until ctx is done and returns ctx.Err().
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Warn().Err(err).Msg("session sweep failed")
			}
		}
	}
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
