package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DelayFetcher wraps a Fetcher and keeps at least a fixed interval between
// the start of consecutive requests.
type DelayFetcher struct {
	next  Fetcher
	delay time.Duration
	now   func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewDelayFetcher returns a DelayFetcher. A non-positive delay disables
// waiting.
func NewDelayFetcher(next Fetcher, delay time.Duration) *DelayFetcher {
	return &DelayFetcher{
		next:  next,
		delay: delay,
		now:   time.Now,
	}
}

// Fetch waits until the interval has passed and then delegates.
func (f *DelayFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}
	return f.next.Fetch(ctx, url)
}

func (f *DelayFetcher) wait(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.delay > 0 && !f.last.IsZero() {
		if remaining := f.delay - f.now().Sub(f.last); remaining > 0 {
			timer := time.NewTimer(remaining)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	f.last = f.now()
	return nil
}
