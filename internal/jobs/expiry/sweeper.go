package expiry

import (
	"context"
	"time"

	"github.com/wekeepgrowing/subscription-billing/internal/usecase"
	"go.uber.org/zap"
)

// Sweeper periodically expires subscriptions whose period has lapsed. The
// sweep is a single conditional update, so overlapping runs are harmless.
type Sweeper struct {
	subscriptions *usecase.SubscriptionService
	interval      time.Duration
	logger        *zap.Logger
}

func NewSweeper(subscriptions *usecase.SubscriptionService, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		subscriptions: subscriptions,
		interval:      interval,
		logger:        logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	expired, err := s.subscriptions.ExpireDue(ctx)
	if err != nil {
		s.logger.Error("Expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("Expiry sweep completed", zap.Int64("expired", expired))
	}
}
