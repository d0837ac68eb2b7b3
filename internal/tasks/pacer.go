package tasks

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces successive requests at least delay apart.
//
// It is a token bucket with a burst of one, so the first [Pacer.Wait] returns immediately
// and every later call blocks until delay has passed since the previous one.
type Pacer struct {
	delay   time.Duration
	limiter *rate.Limiter
}

// NewPacer returns a pacer for delay. A zero or negative delay never waits.
func NewPacer(delay time.Duration) *Pacer {
	if delay <= 0 {
		return &Pacer{}
	}
	return &Pacer{delay: delay, limiter: rate.NewLimiter(rate.Every(delay), 1)}
}

// Wait blocks until the next request may start or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Delay reports the configured spacing.
func (p *Pacer) Delay() time.Duration {
	if p == nil {
		return 0
	}
	return p.delay
}
