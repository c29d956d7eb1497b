package oracle

import (
	"context"
	"math/rand/v2"
	"time"
)

// Default retry configuration constants.
const (
	DefaultMaxAttempts   = 3
	DefaultBaseDelay     = 2 * time.Second
	DefaultMaxDelay      = 30 * time.Second
	DefaultJitterPercent = 0.1
)

// RetryConfig controls the backoff between judgment attempts.
type RetryConfig struct {
	// MaxAttempts is the total number of calls made for one judgment,
	// including the first. Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay is the wait before the first retry. Later waits double.
	BaseDelay time.Duration

	// MaxDelay caps the wait between attempts.
	MaxDelay time.Duration

	// JitterPercent spreads each wait by up to this fraction either way.
	JitterPercent float64
}

// DefaultRetryConfig returns the standard oracle retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   DefaultMaxAttempts,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		JitterPercent: DefaultJitterPercent,
	}
}

func (c RetryConfig) attempts() int { return max(c.MaxAttempts, 1) }

// delay returns the wait after the given zero-based failed attempt.
func (c RetryConfig) delay(attempt int) time.Duration {
	d := c.BaseDelay << min(attempt, 30)
	if d > c.MaxDelay || d <= 0 {
		d = c.MaxDelay
	}

	jitter := int64(float64(d) * c.JitterPercent)
	if jitter > 0 {
		//nolint:gosec // G404: math/rand is fine for retry jitter.
		d += time.Duration(rand.Int64N(2*jitter) - jitter)
	}

	return max(d, c.BaseDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
