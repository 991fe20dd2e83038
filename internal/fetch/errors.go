package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch is wrapped by every error returned from a Fetcher.
	ErrFetch = errors.New("fetch failed")

	// ErrUnexpectedStatus is returned when the server answers with a
	// status other than 200 OK.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrDisallowed is returned when robots.txt forbids the URL.
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrBodyTooLarge is returned when a response exceeds the configured
	// maximum body size.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrInvalidProxyAddress is returned when the proxy address is not in
	// "host:port" form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: must be host:port")
)

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d", ErrFetch, e.URL, e.Code)
}

// Is makes a StatusError match both ErrFetch and ErrUnexpectedStatus.
func (e *StatusError) Is(target error) bool {
	return target == ErrFetch || target == ErrUnexpectedStatus
}
