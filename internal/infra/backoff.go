package infra

import (
	"context"
	"time"
)

// BackoffPolicy computes capped exponential backoff delays.
type BackoffPolicy struct {
	Initial time.Duration
	Factor  float64
	Cap     time.Duration
}

// GatewayBackoff is the retry policy for exchange REST calls: fast enough
// that a webhook caller is not kept waiting, slow enough to ride out a
// connection reset.
var GatewayBackoff = BackoffPolicy{
	Initial: 250 * time.Millisecond,
	Factor:  1.5,
	Cap:     1200 * time.Millisecond,
}

// Delay returns the backoff duration for the given attempt (0-based).
// Logic: Initial * Factor^attempt, capped at Cap. Negative attempts get
// Initial.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return p.Initial
	}

	d := float64(p.Initial)
	for i := 0; i < attempt; i++ {
		d *= p.Factor
		if time.Duration(d) >= p.Cap {
			return p.Cap
		}
	}
	return time.Duration(d)
}

// SleepBackoff waits out the delay for attempt, returning early with the
// context error if ctx is cancelled.
func (p BackoffPolicy) SleepBackoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(p.Delay(attempt))
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
