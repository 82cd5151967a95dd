package app

import (
	"context"
	"time"
)

// pollUntil waits interval, then calls check, until check reports done or
// returns an error. It gives up with ErrPollTimeout once timeout has elapsed
// and with ctx.Err() when ctx ends. A non-positive timeout means no deadline.
func pollUntil(ctx context.Context, interval, timeout time.Duration, check func(ctx context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = time.Second
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return ErrPollTimeout
		case <-ticker.C:
		}

		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}
