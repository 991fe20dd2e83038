package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoSeed is returned when no seed brewery URL is configured.
	ErrNoSeed = errors.New("no seed specified: provide a brewery URL")

	// ErrInvalidSeed is returned when the seed URL has no /brewers/<name>/ segment.
	ErrInvalidSeed = errors.New("invalid seed: expected a /brewers/<name>/<id>/ URL")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("invalid base url: must be an absolute http or https URL")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRetries is returned when the retry count is negative.
	ErrInvalidRetries = errors.New("invalid retries: must be non-negative")

	// ErrInvalidCrawlDelay is returned when the crawl delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidMaxCount is returned when the extraction limit is negative.
	ErrInvalidMaxCount = errors.New("invalid max count: must be non-negative")

	// ErrEmptySentinel is returned when the missing-value sentinel is empty.
	ErrEmptySentinel = errors.New("invalid sentinel: must not be empty")

	// ErrConflictingSources is returned when both a live site and a
	// snapshot directory are requested.
	ErrConflictingSources = errors.New("conflicting page sources: --proxy cannot be used with --snapshot")
)
