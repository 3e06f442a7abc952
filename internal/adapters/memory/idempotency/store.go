package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/eilgug/profile-api/internal/ports/out/idempotency"
)

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	m  map[idempotency.Fingerprint]idempotency.Record
}

func NewStore() *Store {
	return &Store{
		m: make(map[idempotency.Fingerprint]idempotency.Record),
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return idempotency.Record{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.m[fp]
	if !ok {
		return idempotency.Record{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[fp] = cloneRecord(rec)
	return nil
}

func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for fp, rec := range s.m {
		if rec.CreatedAt.Before(cutoff) {
			delete(s.m, fp)
			n++
		}
	}
	return n, nil
}

// cloneRecord keeps callers from mutating stored bodies.
func cloneRecord(rec idempotency.Record) idempotency.Record {
	out := rec
	out.Body = append([]byte(nil), rec.Body...)
	return out
}
