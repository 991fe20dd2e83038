package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/proxy"
)

// Defaults used by NewHTTPFetcher when the corresponding option is absent.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "brewcrawl/1.0 (+https://github.com/nao1215/brewcrawl)"
	DefaultMaxBodySize = 5 * 1024 * 1024
	DefaultRetryWait   = time.Second

	// maxRedirects bounds redirect chains so a loop cannot stall a crawl.
	maxRedirects = 10
)

// HTTPFetcher fetches pages over HTTP with resty.
type HTTPFetcher struct {
	client      *resty.Client
	maxBodySize int64
	logger      *slog.Logger
}

type httpOptions struct {
	timeout      time.Duration
	userAgent    string
	maxBodySize  int64
	retries      int
	retryWait    time.Duration
	proxyAddress string
	cookie       string
	headers      map[string]string
	transport    http.RoundTripper
	logger       *slog.Logger
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*httpOptions)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(o *httpOptions) {
		o.timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(o *httpOptions) {
		o.userAgent = ua
	}
}

// WithMaxBodySize rejects responses larger than n bytes.
func WithMaxBodySize(n int64) HTTPOption {
	return func(o *httpOptions) {
		o.maxBodySize = n
	}
}

// WithRetries retries transport errors and 5xx responses up to count
// times, waiting at least wait between attempts. A count of 0 disables
// retries.
func WithRetries(count int, wait time.Duration) HTTPOption {
	return func(o *httpOptions) {
		o.retries = count
		o.retryWait = wait
	}
}

// WithProxy routes every request through the SOCKS5 proxy at address
// ("host:port").
func WithProxy(address string) HTTPOption {
	return func(o *httpOptions) {
		o.proxyAddress = address
	}
}

// WithCookie sends cookie as the Cookie header on every request.
func WithCookie(cookie string) HTTPOption {
	return func(o *httpOptions) {
		o.cookie = cookie
	}
}

// WithHeaders sends the given headers on every request.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(o *httpOptions) {
		o.headers = headers
	}
}

// WithTransport replaces the underlying round tripper. It takes
// precedence over WithProxy.
func WithTransport(rt http.RoundTripper) HTTPOption {
	return func(o *httpOptions) {
		o.transport = rt
	}
}

// WithHTTPLogger sets the logger used for request diagnostics.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(o *httpOptions) {
		o.logger = logger
	}
}

// NewHTTPFetcher builds an HTTPFetcher. It validates the proxy address but
// does not contact the proxy.
func NewHTTPFetcher(opts ...HTTPOption) (*HTTPFetcher, error) {
	o := &httpOptions{
		timeout:     DefaultTimeout,
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		retryWait:   DefaultRetryWait,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	client := resty.New()
	client.SetTimeout(o.timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	client.SetHeader("User-Agent", o.userAgent)
	if o.cookie != "" {
		client.SetHeader("Cookie", o.cookie)
	}
	if len(o.headers) > 0 {
		client.SetHeaders(o.headers)
	}

	switch {
	case o.transport != nil:
		client.SetTransport(o.transport)
	case o.proxyAddress != "":
		transport, err := socksTransport(o.proxyAddress)
		if err != nil {
			return nil, err
		}
		client.SetTransport(transport)
	}

	if o.retries > 0 {
		client.SetRetryCount(o.retries)
		client.SetRetryWaitTime(o.retryWait)
		client.SetRetryMaxWaitTime(o.retryWait * time.Duration(o.retries+1))
		client.AddRetryCondition(func(res *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled)
			}
			return res.StatusCode() >= http.StatusInternalServerError
		})
	}

	return &HTTPFetcher{
		client:      client,
		maxBodySize: o.maxBodySize,
		logger:      o.logger,
	}, nil
}

// Fetch performs a GET request and returns the body of a 200 response.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	res, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}

	f.logger.Debug("fetched page",
		"url", url,
		"status", res.StatusCode(),
		"bytes", len(res.Body()),
		"duration", time.Since(start))

	if res.StatusCode() != http.StatusOK {
		return nil, &StatusError{URL: url, Code: res.StatusCode()}
	}

	body := res.Body()
	if f.maxBodySize > 0 && int64(len(body)) > f.maxBodySize {
		return nil, fmt.Errorf("%w: %w: %s is %d bytes (max %d)",
			ErrFetch, ErrBodyTooLarge, url, len(body), f.maxBodySize)
	}
	return body, nil
}

// socksTransport returns a transport that dials through a SOCKS5 proxy.
func socksTransport(address string) (*http.Transport, error) {
	if !isValidProxyAddress(address) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, address)
	}

	dialer, err := proxy.SOCKS5("tcp", address, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		transport.DialContext = cd.DialContext
	} else {
		transport.DialContext = func(_ context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
	return transport, nil
}

// isValidProxyAddress reports whether address is "host:port" with a
// non-empty host and a port in 1..65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
