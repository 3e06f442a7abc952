// Package idempotency expires stored idempotency records in the background.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"

	clockport "github.com/eilgug/profile-api/internal/ports/out/clock"
	idempotencyport "github.com/eilgug/profile-api/internal/ports/out/idempotency"
)

// Sweeper deletes records older than ttl every interval.
type Sweeper struct {
	store    idempotencyport.Store
	clock    clockport.Clock
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
}

func NewSweeper(store idempotencyport.Store, clk clockport.Clock, log *slog.Logger, ttl, interval time.Duration) *Sweeper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{store: store, clock: clk, log: log, ttl: ttl, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if n, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.ErrorContext(ctx, "idempotency sweep failed", slog.Any("err", err))
		} else if n > 0 {
			s.log.InfoContext(ctx, "idempotency records expired", slog.Int64("count", n))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SweepOnce deletes every record created more than ttl ago.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	return s.store.DeleteBefore(ctx, s.clock.Now().Add(-s.ttl))
}
