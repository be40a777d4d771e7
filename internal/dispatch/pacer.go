package dispatch

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out live provider sends.
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer lets the first send through immediately and every later send
// at most once per interval.
type IntervalPacer struct {
	limiter *rate.Limiter
}

// NewIntervalPacer builds a pacer; a non-positive interval disables pacing.
func NewIntervalPacer(interval time.Duration) *IntervalPacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &IntervalPacer{limiter: rate.NewLimiter(limit, 1)}
}

func (p *IntervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

type noPacer struct{}

func (noPacer) Wait(ctx context.Context) error { return ctx.Err() }
