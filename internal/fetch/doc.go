// Package fetch retrieves pages for the crawler and the extractor.
//
// Every component that needs a page depends on the Fetcher interface, so
// the network can be swapped for an in-memory map in tests or for a
// directory snapshot with FileFetcher.
//
// HTTPFetcher is the production implementation. It is built on resty and
// can route traffic through a SOCKS5 proxy. Decorators add behavior on
// top of any Fetcher:
//
//   - RobotsFetcher refuses URLs that robots.txt disallows.
//   - DelayFetcher waits a fixed interval between requests.
//
// All errors returned by this package wrap ErrFetch. A response with a
// status other than 200 additionally matches ErrUnexpectedStatus and can
// be inspected with errors.As into *StatusError. A robots.txt refusal
// additionally matches ErrDisallowed.
package fetch
