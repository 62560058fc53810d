package cache

import (
	"context"
	"time"
)

// Backoff configures [RetryWithBackoff]: Attempts calls in total, the
// first wait being Initial and every following wait twice the last.
type Backoff struct {
	Attempts int
	Initial  time.Duration
}

// DefaultBackoff makes three attempts, waiting one and then two seconds.
var DefaultBackoff = Backoff{Attempts: 3, Initial: time.Second}

// wait returns the pause before attempt n (counted from 1).
func (b Backoff) wait(n int) time.Duration {
	return b.Initial << (n - 1)
}

// RetryWithBackoff calls fn until it returns nil or an error not marked
// [Retryable], or until b.Attempts calls failed; the last error is
// returned then. A zero Backoff means [DefaultBackoff]. Cancelling ctx
// during a wait returns ctx.Err().
func RetryWithBackoff(ctx context.Context, b Backoff, fn func() error) error {
	if b.Attempts <= 0 {
		b = DefaultBackoff
	}
	for n := 1; ; n++ {
		err := fn()
		if err == nil || !IsRetryable(err) || n == b.Attempts {
			return err
		}
		t := time.NewTimer(b.wait(n))
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
