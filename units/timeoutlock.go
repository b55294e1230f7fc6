package units

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

// ErrTimedOut is returned by TimeoutLock.Checkpoint once the deadline
// has passed.
var ErrTimedOut = errors.New("units: operation exceeded its deadline")

// TimeoutLock is a throttled cancellation checkpoint: a long-running
// collaborator walking a large syntax tree (a semantic-analysis layer
// built on the Watcher events, say) calls
// Checkpoint periodically. The rate.Limiter caps how often the actual
// deadline/context check runs; a call in between costs one
// limiter.Allow(), which itself reads the clock.
//
// Not used anywhere inside lexer/syntax/parse/storage themselves — those
// packages are synchronous and bounded by the edit size. This exists
// for a caller that walks a whole tree (e.g. building a semantic graph)
// and wants to bail out cleanly if it runs long.
type TimeoutLock struct {
	limiter  *rate.Limiter
	deadline time.Time
}

// NewTimeoutLock returns a TimeoutLock that checks at most checksPerSec
// times a second and reports ErrTimedOut once deadline has passed.
func NewTimeoutLock(deadline time.Time, checksPerSec float64) *TimeoutLock {
	if checksPerSec <= 0 {
		checksPerSec = 100
	}
	return &TimeoutLock{
		limiter:  rate.NewLimiter(rate.Limit(checksPerSec), 1),
		deadline: deadline,
	}
}

// Checkpoint is called from inside a long-running walk. Most calls are a
// single limiter.Allow() and return nil immediately; throttled-through
// calls additionally check ctx and the deadline.
func (l *TimeoutLock) Checkpoint(ctx context.Context) error {
	if !l.limiter.Allow() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !l.deadline.IsZero() && time.Now().After(l.deadline) {
		return ErrTimedOut
	}
	return nil
}
