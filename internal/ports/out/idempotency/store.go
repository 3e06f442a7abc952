package idempotency

import (
	"context"
	"time"

	"github.com/eilgug/profile-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint scopes a key to one subject and route.
// Route is HTTP method + path template (e.g. "PUT /users/me").
type Fingerprint struct {
	Key     Key
	Subject domain.SubjectID
	Method  string
	Route   string
}

// Record is the stored response we can replay for a duplicate request.
// BodyHash lets callers reject a key reused with a different payload.
type Record struct {
	BodyHash    string
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error

	// DeleteBefore drops records created before cutoff and reports how many.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
