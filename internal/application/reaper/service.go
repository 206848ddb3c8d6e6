// Package reaper evicts cart lines that have sat in a cart longer than
// the configured TTL. Pure housekeeping: it never touches pricing or
// checkout state, and runs safely alongside concurrent cart traffic.
package reaper

import (
	"context"
	"fmt"
	"time"

	"github.com/shopcore/cartservice/internal/domain/cart"
	"github.com/shopcore/cartservice/internal/pkg/logging"
	"go.uber.org/zap"
)

type Service struct {
	repo cart.Repository
	ttl  time.Duration
}

func NewService(repo cart.Repository, ttl time.Duration) *Service {
	return &Service{repo: repo, ttl: ttl}
}

// Reap removes the user's lines older than the TTL.
func (s *Service) Reap(ctx context.Context, userID string) (int, error) {
	if err := cart.ValidateUserID(userID); err != nil {
		return 0, err
	}
	removed, err := s.repo.DeleteExpired(ctx, userID, time.Now().UTC().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("reaper: user %s: %w", userID, err)
	}
	return removed, nil
}

// ReapAll sweeps expired lines across every cart.
func (s *Service) ReapAll(ctx context.Context) (int, error) {
	removed, err := s.repo.DeleteAllExpired(ctx, time.Now().UTC().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("reaper: sweep: %w", err)
	}
	if removed > 0 {
		logging.FromContext(ctx).Info("expired_cart_lines_reaped",
			zap.Int("removed", removed),
		)
	}
	return removed, nil
}
