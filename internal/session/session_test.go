package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudguard/internal/app"
	"github.com/opensource-finance/fraudguard/internal/auth"
	"github.com/opensource-finance/fraudguard/internal/cache"
	"github.com/opensource-finance/fraudguard/internal/domain"
)

func newManager() *Manager {
	return NewManager(cache.NewLRUCache(100), time.Hour, nil)
}

var analyst = auth.Profile{Email: "analyst@example.com", Provider: domain.AuthModeDev}

func TestCreateAndGet(t *testing.T) {
	m := newManager()
	ctx := context.Background()

	s, err := m.Create(ctx, analyst)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, analyst, got.Profile)
	assert.Equal(t, domain.KindTransaction, got.State.Kind)
	assert.Equal(t, 0, got.State.Ledger.Len())
}

func TestGetUnknown(t *testing.T) {
	m := newManager()
	_, err := m.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = m.Get(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestDispatchPersistsLedger(t *testing.T) {
	m := newManager()
	ctx := context.Background()
	s, _ := m.Create(ctx, analyst)

	_, err := m.Dispatch(ctx, s.ID,
		app.ModelSelected{Kind: domain.KindBehavior},
		app.AnalysisCompleted{Record: domain.ResultRecord{ID: "SES001", Kind: domain.KindBehavior, FraudStatus: domain.StatusFraud}},
	)
	require.NoError(t, err)

	got, err := m.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.KindBehavior, got.State.Kind)
	require.Equal(t, 1, got.State.Ledger.Len())
	assert.Equal(t, "SES001", got.State.Ledger.Records()[0].ID)
}

func TestBeginRejectsConcurrentAnalysis(t *testing.T) {
	m := newManager()
	ctx := context.Background()
	s, _ := m.Create(ctx, analyst)

	_, err := m.Begin(ctx, s.ID)
	require.NoError(t, err)

	_, err = m.Begin(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrAnalysisInProgress)

	_, err = m.Dispatch(ctx, s.ID, app.AnalysisFailed{})
	require.NoError(t, err)

	_, err = m.Begin(ctx, s.ID)
	assert.NoError(t, err)
}

func TestBeginOnlyOneWinner(t *testing.T) {
	m := newManager()
	ctx := context.Background()
	s, _ := m.Create(ctx, analyst)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Begin(ctx, s.ID); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestDeleteDropsSession(t *testing.T) {
	m := newManager()
	ctx := context.Background()
	s, _ := m.Create(ctx, analyst)

	require.NoError(t, m.Delete(ctx, s.ID))

	_, err := m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = m.Dispatch(ctx, s.ID, app.SessionReset{})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionsAreIsolated(t *testing.T) {
	m := newManager()
	ctx := context.Background()
	a, _ := m.Create(ctx, analyst)
	b, _ := m.Create(ctx, auth.Profile{Email: "other@example.com"})

	_, err := m.Dispatch(ctx, a.ID, app.AnalysisCompleted{Record: domain.ResultRecord{ID: "TXN001"}})
	require.NoError(t, err)

	got, _ := m.Get(ctx, b.ID)
	assert.Equal(t, 0, got.State.Ledger.Len())
}
