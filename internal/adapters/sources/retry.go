package sources

import (
	"context"
	"fmt"
	"time"
)

// Backoff retries fn with exponential delay. The first retry waits
// initial, doubling up to max. Attempts counts total tries, not retries.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

// DefaultBackoff mirrors the stock retry tuning of the clients.
func DefaultBackoff() Backoff {
	return Backoff{Attempts: 3, Initial: time.Second, Max: 30 * time.Second}
}

// Do runs fn until it succeeds, attempts are exhausted, or ctx ends.
func (b Backoff) Do(ctx context.Context, fn func() error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	delay := b.Initial
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return fmt.Errorf("%d attempts failed: %w", attempts, err)
}
