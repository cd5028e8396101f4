package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces requests issued through a single proxy
type Limiter interface {
	// Allow reports whether a request may proceed right now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// New returns a limiter allowing requestsPerMinute requests with a burst of one.
// A non-positive rate yields Unlimited.
func New(requestsPerMinute int) Limiter {
	if requestsPerMinute <= 0 {
		return Unlimited{}
	}
	every := time.Minute / time.Duration(requestsPerMinute)
	return &TokenBucket{limiter: rate.NewLimiter(rate.Every(every), 1)}
}

// TokenBucket wraps x/time/rate
type TokenBucket struct {
	limiter *rate.Limiter
}

func (tb *TokenBucket) Allow() bool {
	return tb.limiter.Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.limiter.Wait(ctx)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
