// Package throttle limits how many analyses a session may run per window.
package throttle

import (
	"context"
	"fmt"
	"time"

	"github.com/opensource-finance/fraudguard/internal/domain"
)

const counterKey = "analyses"

// Service counts analyses per session in fixed windows backed by the cache,
// so the budget is shared across nodes when the cache is Redis.
type Service struct {
	cache  domain.Cache
	limit  int
	window time.Duration
}

// NewService allows limit analyses per window. A limit of 0 disables throttling.
func NewService(c domain.Cache, limit int, window time.Duration) *Service {
	if window <= 0 {
		window = time.Minute
	}
	return &Service{cache: c, limit: limit, window: window}
}

// Allow counts one analysis for the session and fails with ErrRateLimited
// once the window's budget is spent.
func (s *Service) Allow(ctx context.Context, sessionID string) error {
	if s == nil || s.limit <= 0 {
		return nil
	}
	if sessionID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}

	count, err := s.cache.IncrementCounter(ctx, sessionID, counterKey, s.window)
	if err != nil {
		return fmt.Errorf("failed to count analyses: %w", err)
	}
	if count > int64(s.limit) {
		return fmt.Errorf("%w: %d analyses within %s", domain.ErrRateLimited, count, s.window)
	}
	return nil
}

// Limit returns the configured budget and window.
func (s *Service) Limit() (int, time.Duration) {
	return s.limit, s.window
}
