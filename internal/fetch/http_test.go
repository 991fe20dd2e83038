package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewHTTPFetcher tests constructor validation.
func TestNewHTTPFetcher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		proxy   string
		wantErr bool
	}{
		{name: "no proxy", proxy: ""},
		{name: "ip and port", proxy: "127.0.0.1:9050"},
		{name: "hostname and port", proxy: "localhost:1080"},
		{name: "missing port", proxy: "127.0.0.1", wantErr: true},
		{name: "empty host", proxy: ":9050", wantErr: true},
		{name: "port zero", proxy: "127.0.0.1:0", wantErr: true},
		{name: "port out of range", proxy: "127.0.0.1:65536", wantErr: true},
		{name: "non numeric port", proxy: "127.0.0.1:abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var opts []HTTPOption
			if tt.proxy != "" {
				opts = append(opts, WithProxy(tt.proxy))
			}
			f, err := NewHTTPFetcher(opts...)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProxyAddress) {
					t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if f == nil {
				t.Fatal("expected non-nil fetcher")
			}
		})
	}
}

// TestHTTPFetcherFetch tests request and response handling.
func TestHTTPFetcherFetch(t *testing.T) {
	t.Parallel()

	t.Run("returns body and sends configured headers", func(t *testing.T) {
		t.Parallel()

		var gotUA, gotCookie, gotCustom string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			gotCookie = r.Header.Get("Cookie")
			gotCustom = r.Header.Get("X-Test")
			_, _ = w.Write([]byte("<html>ok</html>"))
		}))
		defer srv.Close()

		f, err := NewHTTPFetcher(
			WithUserAgent("test-agent"),
			WithCookie("session=abc"),
			WithHeaders(map[string]string{"X-Test": "yes"}),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		body, err := f.Fetch(context.Background(), srv.URL+"/brewers/x/1/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != "<html>ok</html>" {
			t.Errorf("body = %q", body)
		}
		if gotUA != "test-agent" {
			t.Errorf("User-Agent = %q, want test-agent", gotUA)
		}
		if gotCookie != "session=abc" {
			t.Errorf("Cookie = %q, want session=abc", gotCookie)
		}
		if gotCustom != "yes" {
			t.Errorf("X-Test = %q, want yes", gotCustom)
		}
	})

	t.Run("non-200 status is a status error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		defer srv.Close()

		f, err := NewHTTPFetcher()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = f.Fetch(context.Background(), srv.URL+"/missing")
		if !errors.Is(err, ErrFetch) || !errors.Is(err, ErrUnexpectedStatus) {
			t.Fatalf("expected ErrFetch and ErrUnexpectedStatus, got %v", err)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusNotFound {
			t.Errorf("expected StatusError with 404, got %v", err)
		}
	})

	t.Run("retries server errors", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("finally"))
		}))
		defer srv.Close()

		f, err := NewHTTPFetcher(WithRetries(3, time.Millisecond))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		body, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != "finally" {
			t.Errorf("body = %q, want finally", body)
		}
		if got := calls.Load(); got != 3 {
			t.Errorf("server called %d times, want 3", got)
		}
	})

	t.Run("does not retry by default", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		f, err := NewHTTPFetcher()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrUnexpectedStatus) {
			t.Fatalf("expected ErrUnexpectedStatus, got %v", err)
		}
		if got := calls.Load(); got != 1 {
			t.Errorf("server called %d times, want 1", got)
		}
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		}))
		defer srv.Close()

		f, err := NewHTTPFetcher(WithMaxBodySize(10))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = f.Fetch(context.Background(), srv.URL)
		if !errors.Is(err, ErrBodyTooLarge) || !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrBodyTooLarge wrapped in ErrFetch, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("late"))
		}))
		defer srv.Close()

		f, err := NewHTTPFetcher()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = f.Fetch(ctx, srv.URL)
		if !errors.Is(err, ErrFetch) || !errors.Is(err, context.Canceled) {
			t.Errorf("expected ErrFetch wrapping context.Canceled, got %v", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		f, err := NewHTTPFetcher(WithTimeout(2 * time.Second))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err = f.Fetch(context.Background(), addr)
		if !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
		if errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("transport error must not match ErrUnexpectedStatus")
		}
	})
}
