package fetch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestFileFetcher tests serving pages from a snapshot directory.
func TestFileFetcher(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	brewery := filepath.Join(dir, "brewers", "brewdog", "8534")
	if err := os.MkdirAll(brewery, 0o750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(brewery, "index.html"), []byte("brewery page"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "robots.txt"), []byte("User-agent: *"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFileFetcher(dir)

	t.Run("directory url serves index.html", func(t *testing.T) {
		t.Parallel()

		body, err := f.Fetch(context.Background(), "http://www.ratebeer.com/brewers/brewdog/8534/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != "brewery page" {
			t.Errorf("body = %q", body)
		}
	})

	t.Run("file url", func(t *testing.T) {
		t.Parallel()

		if _, err := f.Fetch(context.Background(), "http://www.ratebeer.com/robots.txt"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("missing file is a 404 status error", func(t *testing.T) {
		t.Parallel()

		_, err := f.Fetch(context.Background(), "http://www.ratebeer.com/beer/none/1/")
		var se *StatusError
		if !errors.As(err, &se) || se.Code != 404 {
			t.Errorf("expected 404 StatusError, got %v", err)
		}
	})

	t.Run("path traversal stays inside the root", func(t *testing.T) {
		t.Parallel()

		_, err := f.Fetch(context.Background(), "http://www.ratebeer.com/../../etc/passwd")
		if err == nil {
			t.Fatal("expected error for path outside snapshot")
		}
		if !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})
}
