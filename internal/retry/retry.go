// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry wraps a ranking call with bounded exponential backoff on
// rate limiting. Only llm.ErrRateLimited is retried; every other failure is
// returned at once as terminal.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/pdiddy/digest-ranker/internal/llm"
)

// ErrRetriesExhausted is returned when every attempt was rate limited.
var ErrRetriesExhausted = eris.New("retry: rate limit retries exhausted")

const (
	// DefaultMaxAttempts is used when MaxAttempts is not positive.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is used when BaseDelay is not positive.
	DefaultBaseDelay = time.Second

	// MaxBackoff caps a single wait.
	MaxBackoff = time.Hour
)

// Controller calls a Service and backs off on rate limiting. The wait after
// attempt k (0-based) is BaseDelay * 2^k, and a wait also follows the last
// rate-limited attempt, so the worst case blocks for
// BaseDelay * (2^0 + ... + 2^(MaxAttempts-1)) before ErrRetriesExhausted.
type Controller struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// OnRetry, if set, is called before each wait with the 1-based attempt
	// number that was rate limited.
	OnRetry func(attempt int, wait time.Duration, err error)

	// sleep waits for d or until ctx is done. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Controller with the given limits; non-positive values take
// the defaults.
func New(maxAttempts int, baseDelay time.Duration) *Controller {
	return &Controller{MaxAttempts: maxAttempts, BaseDelay: baseDelay}
}

// Call invokes svc until it succeeds, fails with a non-rate-limit error, or
// runs out of attempts. A done context during a wait ends the call with the
// context's error.
func (c *Controller) Call(ctx context.Context, svc llm.Service, req llm.Request) (*llm.Response, error) {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := svc.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, llm.ErrRateLimited) {
			return nil, err
		}
		lastErr = err

		wait := c.Backoff(attempt)
		if c.OnRetry != nil {
			c.OnRetry(attempt+1, wait, err)
		}
		if err := c.wait(ctx, wait); err != nil {
			return nil, eris.Wrap(err, "retry: backoff interrupted")
		}
	}

	return nil, eris.Wrapf(ErrRetriesExhausted, "after %d attempts: %v", attempts, lastErr)
}

// Backoff returns the wait that follows the given 0-based attempt, capped
// at MaxBackoff.
func (c *Controller) Backoff(attempt int) time.Duration {
	base := c.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	if attempt < 0 {
		attempt = 0
	}
	d := math.Pow(2, float64(attempt)) * float64(base)
	if d >= float64(MaxBackoff) {
		return MaxBackoff
	}
	return time.Duration(d)
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		return c.sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
