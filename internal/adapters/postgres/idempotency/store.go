package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eilgug/profile-api/internal/ports/out/idempotency"
)

// Store is a Postgres implementation of idempotency.Store.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	if s.pool == nil {
		return idempotency.Record{}, false, errors.New("nil postgres pool")
	}
	row := s.pool.QueryRow(ctx, `
		SELECT body_hash, status_code, content_type, body, created_at
		FROM idempotency_keys
		WHERE idempotency_key = $1
		  AND subject_sub = $2
		  AND method = $3
		  AND route = $4
	`,
		string(fp.Key),
		string(fp.Subject),
		fp.Method,
		fp.Route,
	)
	var rec idempotency.Record
	if err := row.Scan(&rec.BodyHash, &rec.StatusCode, &rec.ContentType, &rec.Body, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return idempotency.Record{}, false, nil
		}
		return idempotency.Record{}, false, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	if s.pool == nil {
		return errors.New("nil postgres pool")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (
			idempotency_key,
			subject_sub,
			method,
			route,
			body_hash,
			status_code,
			content_type,
			body,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (idempotency_key, subject_sub, method, route)
		DO UPDATE SET
			body_hash = EXCLUDED.body_hash,
			status_code = EXCLUDED.status_code,
			content_type = EXCLUDED.content_type,
			body = EXCLUDED.body,
			created_at = EXCLUDED.created_at
	`,
		string(fp.Key),
		string(fp.Subject),
		fp.Method,
		fp.Route,
		rec.BodyHash,
		rec.StatusCode,
		rec.ContentType,
		rec.Body,
		createdAt.UTC(),
	)
	return err
}

func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
