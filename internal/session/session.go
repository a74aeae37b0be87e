// Package session keeps each signed-in user's dashboard state in the cache.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/fraudguard/internal/app"
	"github.com/opensource-finance/fraudguard/internal/auth"
	"github.com/opensource-finance/fraudguard/internal/cache"
	"github.com/opensource-finance/fraudguard/internal/domain"
)

const stateKey = "session"

// DefaultTTL is used when no lifetime is configured.
const DefaultTTL = 12 * time.Hour

// Session is one dashboard session.
type Session struct {
	ID        string       `json:"id"`
	Profile   auth.Profile `json:"profile"`
	State     app.State    `json:"state"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Manager creates, loads and updates sessions.
type Manager struct {
	cache  domain.Cache
	ttl    time.Duration
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager stores sessions in c for ttl after their last update.
func NewManager(c domain.Cache, ttl time.Duration, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		cache:  c,
		ttl:    ttl,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// TTL returns the session lifetime.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create starts a session for profile.
func (m *Manager) Create(ctx context.Context, profile auth.Profile) (*Session, error) {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		Profile:   profile,
		State:     app.NewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}

	m.logger.Info("session created",
		"session_id", s.ID,
		"email", profile.Email,
		"provider", profile.Provider,
	)
	return s, nil
}

// Get loads a session.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, domain.ErrSessionNotFound
	}
	var s Session
	found, err := cache.GetJSON(ctx, m.cache, id, stateKey, &s)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if !found {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

// Update applies fn to the session state and stores the result. Updates of
// the same session are serialised within this process. When fn fails
// nothing is stored.
func (m *Manager) Update(ctx context.Context, id string, fn func(app.State) (app.State, error)) (*Session, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := fn(s.State)
	if err != nil {
		return nil, err
	}
	s.State = next
	s.UpdatedAt = time.Now().UTC()

	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Dispatch reduces events into the session state.
func (m *Manager) Dispatch(ctx context.Context, id string, events ...app.Event) (*Session, error) {
	return m.Update(ctx, id, func(st app.State) (app.State, error) {
		return app.ReduceAll(st, events...), nil
	})
}

// Begin marks an analysis as started, or fails with ErrAnalysisInProgress
// when one is already running for the session.
func (m *Manager) Begin(ctx context.Context, id string) (*Session, error) {
	return m.Update(ctx, id, func(st app.State) (app.State, error) {
		if !st.CanSubmit() {
			return st, domain.ErrAnalysisInProgress
		}
		return app.Reduce(st, app.AnalysisStarted{}), nil
	})
}

// Delete ends a session and drops its ledger.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.cache.Delete(ctx, id, stateKey); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}

	m.mu.Lock()
	delete(m.locks, id)
	m.mu.Unlock()

	m.logger.Info("session deleted", "session_id", id)
	return nil
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	if err := cache.SetJSON(ctx, m.cache, s.ID, stateKey, s, m.ttl); err != nil {
		return fmt.Errorf("save session %s: %w", s.ID, err)
	}
	return nil
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	return l
}
