// Package retry wraps outbound oracle calls with bounded exponential
// backoff and typed failure classification.
package retry

import (
	"context"
	"time"

	domainErrors "github.com/thomas-vilte/reviewmate/internal/errors"
	"github.com/thomas-vilte/reviewmate/internal/logger"
)

const defaultBaseDelay = time.Second

// Client retries an operation on rate-limit, transient and timeout errors.
// Authentication failures and other client errors fail on first occurrence.
type Client struct {
	maxRetries int
	baseDelay  time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewClient(maxRetries int) *Client {
	return &Client{
		maxRetries: maxRetries,
		baseDelay:  defaultBaseDelay,
		sleep:      sleepContext,
	}
}

// WithBaseDelay overrides the first backoff step.
func (c *Client) WithBaseDelay(d time.Duration) *Client {
	c.baseDelay = d
	return c
}

// Do runs fn up to maxRetries+1 times. The attempt counter and the next
// delay are explicit loop state so exhaustion and cancellation are
// structurally guaranteed: delay = 2^attempt * base, and the only
// suspension point is the cancellable wait between attempts.
func (c *Client) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	log := logger.FromContext(ctx)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !domainErrors.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == c.maxRetries {
			break
		}

		delay := c.baseDelay << uint(attempt)
		log.Warn("retrying after transient failure",
			"operation", operation,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"delay", delay.String(),
			"error", lastErr)

		if err := c.sleep(ctx, delay); err != nil {
			return domainErrors.NewAppError(domainErrors.TypeTimeout,
				"aborted while waiting to retry "+operation, err)
		}
	}

	log.Error("retries exhausted", "operation", operation, "error", lastErr)
	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
