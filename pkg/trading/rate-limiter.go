package trading

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// queryLimiter spaces query requests of one session by a minimum interval.
// Orders and cancels never pass through it.
type queryLimiter struct {
	limiter *rate.Limiter
}

func newQueryLimiter(interval time.Duration) *queryLimiter {
	if interval <= 0 {
		return &queryLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &queryLimiter{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (l *queryLimiter) wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
