package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// RobotsFetcher wraps a Fetcher and refuses URLs that the host's
// robots.txt disallows for the configured user agent.
//
// robots.txt is fetched through the wrapped Fetcher once per host and
// cached for the lifetime of the RobotsFetcher. A missing robots.txt (any
// 4xx) allows everything, a 5xx disallows everything, and a transport
// error is logged and treated as allow-all.
type RobotsFetcher struct {
	next      Fetcher
	userAgent string
	logger    *slog.Logger

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

// NewRobotsFetcher returns a RobotsFetcher that delegates to next.
// A nil logger uses slog.Default().
func NewRobotsFetcher(next Fetcher, userAgent string, logger *slog.Logger) *RobotsFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsFetcher{
		next:      next,
		userAgent: userAgent,
		logger:    logger,
		robots:    make(map[string]*robotstxt.RobotsData),
	}
}

// Fetch checks robots.txt for the URL's host and then delegates.
func (f *RobotsFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, rawURL, err)
	}

	data, err := f.rules(ctx, u)
	if err != nil {
		return nil, err
	}
	// TestAgent honors the allow-all and disallow-all results of 4xx and
	// 5xx responses; a Group from FindGroup would not.
	if data != nil && !data.TestAgent(u.RequestURI(), f.userAgent) {
		return nil, fmt.Errorf("%w: %w: %s", ErrFetch, ErrDisallowed, rawURL)
	}
	return f.next.Fetch(ctx, rawURL)
}

// rules returns the parsed robots.txt of u's host, or nil when every URL
// is allowed. The result is cached per host.
func (f *RobotsFetcher) rules(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if data, ok := f.robots[u.Host]; ok {
		return data, nil
	}

	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()
	status := http.StatusOK
	body, err := f.next.Fetch(ctx, robotsURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, robotsURL, ctxErr)
		}
		var se *StatusError
		if !errors.As(err, &se) {
			f.logger.Warn("robots.txt unavailable, allowing all", "url", robotsURL, "error", err)
			f.robots[u.Host] = nil
			return nil, nil
		}
		status = se.Code
	}

	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		f.logger.Warn("invalid robots.txt, allowing all", "url", robotsURL, "error", err)
		f.robots[u.Host] = nil
		return nil, nil
	}

	f.robots[u.Host] = data
	return data, nil
}
