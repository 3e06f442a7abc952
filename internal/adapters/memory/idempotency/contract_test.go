package idempotency

import (
	"testing"

	"github.com/eilgug/profile-api/internal/adapters/contracttest"
	idempotencyport "github.com/eilgug/profile-api/internal/ports/out/idempotency"
)

func TestContract_IdempotencyStore(t *testing.T) {
	contracttest.RunIdempotencyStore(t, func(t *testing.T) (idempotencyport.Store, func()) {
		t.Helper()
		return NewStore(), nil
	})
}
