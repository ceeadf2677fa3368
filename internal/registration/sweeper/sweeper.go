// Package sweeper expires abandoned pending-payment registrations in the
// background, returning their slots to the capacity pool.
package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Expirer is the slice of the registration service the sweeper drives.
type Expirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// Sweeper periodically expires due registrations.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// New constructs a Sweeper. A non-positive interval falls back to one
// minute; a non-positive batch to 100.
func New(expirer Expirer, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		batch:    100,
		logger:   logger,
	}
}

// Run sweeps until the context is cancelled. A failing sweep is logged
// and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.expirer.ExpireDue(ctx, s.batch); err != nil {
				s.logger.ErrorContext(ctx, "sweep failed", "error", err)
			}
		}
	}
}
