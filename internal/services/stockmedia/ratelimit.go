package stockmedia

import (
	"context"
	"sync"
	"time"
)

// intervalLimiter enforces a minimum gap between provider requests. The
// mutex is held across the wait so concurrent callers queue up behind each
// other instead of bursting once the gap elapses.
type intervalLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func newIntervalLimiter(interval time.Duration) *intervalLimiter {
	return &intervalLimiter{interval: interval}
}

func (l *intervalLimiter) wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.interval > 0 && !l.last.IsZero() {
		if remaining := l.interval - time.Since(l.last); remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	l.last = time.Now()
	return nil
}
