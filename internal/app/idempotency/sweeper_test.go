package idempotency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	memclock "github.com/eilgug/profile-api/internal/adapters/memory/clock"
	memidempotency "github.com/eilgug/profile-api/internal/adapters/memory/idempotency"
	"github.com/eilgug/profile-api/internal/domain"
	idempotencyport "github.com/eilgug/profile-api/internal/ports/out/idempotency"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSweepOnce_RemovesOnlyExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := memclock.NewManualClock(start)
	store := memidempotency.NewStore()

	old := idempotencyport.Fingerprint{Key: "old", Subject: domain.SubjectID("s"), Method: "PUT", Route: "/users/me"}
	young := old
	young.Key = "young"
	require.NoError(t, store.Put(ctx, old, idempotencyport.Record{StatusCode: 200, CreatedAt: start}))
	require.NoError(t, store.Put(ctx, young, idempotencyport.Record{StatusCode: 200, CreatedAt: start.Add(23 * time.Hour)}))

	clk.Advance(25 * time.Hour)
	n, err := NewSweeper(store, clk, discardLogger(), 24*time.Hour, time.Hour).SweepOnce(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, ok, err := store.Get(ctx, old)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = store.Get(ctx, young)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRun_StopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSweeper(memidempotency.NewStore(), memclock.NewManualClock(time.Now()), discardLogger(), 0, time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
