// Package clock is the time port. Profile timestamps, idempotency records and
// token expiry checks all read time through it.
package clock

import "time"

// Clock returns the current time in UTC.
type Clock interface {
	Now() time.Time
}
