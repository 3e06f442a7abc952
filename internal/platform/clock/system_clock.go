package clock

import (
	"time"

	clockport "github.com/eilgug/profile-api/internal/ports/out/clock"
)

var _ clockport.Clock = SystemClock{}

// SystemClock is the production clock.
type SystemClock struct{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC() }
