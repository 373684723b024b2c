// Package pacing spaces out write-class calls so the sync stays under the
// row source's per-minute write quota.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer is waited on before every write-class operation.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Interval lets one write through immediately and then at most one per interval.
type Interval struct {
	limiter *rate.Limiter
}

// NewInterval creates a pacer. A non-positive interval disables pacing.
func NewInterval(interval time.Duration) *Interval {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Interval{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next write may start or ctx is done.
func (p *Interval) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// None never waits. Used by dry runs and tests.
type None struct{}

// Wait returns ctx.Err().
func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}
