package fetch

import (
	"context"
	"errors"
	"testing"
	"time"
)

// TestDelayFetcher tests request spacing.
func TestDelayFetcher(t *testing.T) {
	t.Parallel()

	ok := FetcherFunc(func(context.Context, string) ([]byte, error) {
		return []byte("ok"), nil
	})

	t.Run("first request is not delayed and later ones are", func(t *testing.T) {
		t.Parallel()

		f := NewDelayFetcher(ok, 30*time.Millisecond)

		start := time.Now()
		if _, err := f.Fetch(context.Background(), "http://example.com/a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.Fetch(context.Background(), "http://example.com/b"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
			t.Errorf("two requests took %v, want at least 30ms", elapsed)
		}
	})

	t.Run("zero delay never waits", func(t *testing.T) {
		t.Parallel()

		f := NewDelayFetcher(ok, 0)
		for range 3 {
			if _, err := f.Fetch(context.Background(), "http://example.com/"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		t.Parallel()

		f := NewDelayFetcher(ok, time.Hour)
		if _, err := f.Fetch(context.Background(), "http://example.com/a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := f.Fetch(ctx, "http://example.com/b")
		if !errors.Is(err, ErrFetch) || !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected ErrFetch wrapping DeadlineExceeded, got %v", err)
		}
	})
}
