package misc

import (
	"context"
	"time"
)

// DefaultBackoff is the schedule used for storage and sink side calls.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// Linear returns the wait schedule for at most attempts tries with the same
// delay between each of them. attempts below one is treated as one.
func Linear(attempts int, delay time.Duration) []time.Duration {
	if attempts <= 1 {
		return nil
	}
	if delay < 0 {
		delay = 0
	}
	out := make([]time.Duration, attempts-1)
	for i := range out {
		out[i] = delay
	}
	return out
}

// Retry runs op until it succeeds, returns a non-retryable error, or the
// schedule runs out. op runs at most len(delays)+1 times.
func Retry(ctx context.Context, delays []time.Duration, isRetryable func(error) bool, op func() error) error {
	var err error
	for i := 0; ; i++ {
		if err = op(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i >= len(delays) || !isRetryable(err) {
			return err
		}
		if delays[i] <= 0 {
			continue
		}
		t := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
