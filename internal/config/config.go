package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/brewcrawl/internal/fetch"
	"github.com/nao1215/brewcrawl/internal/link"
	"github.com/nao1215/brewcrawl/internal/model"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "brewcrawl"

	// DefaultBaseURL is the origin relative links are resolved against.
	DefaultBaseURL = link.DefaultBaseURL

	// DefaultSeedURL is the brewery crawled when no seed is given.
	DefaultSeedURL = "http://www.ratebeer.com/brewers/brewdog/8534/"

	// DefaultTimeout bounds a single page request.
	DefaultTimeout = fetch.DefaultTimeout

	// DefaultUserAgent identifies brewcrawl in HTTP requests.
	DefaultUserAgent = fetch.DefaultUserAgent

	// DefaultMaxBodySize limits the size of a page body.
	DefaultMaxBodySize = fetch.DefaultMaxBodySize

	// DefaultRetries is the number of retries per page. Pages are fetched
	// once unless this is raised.
	DefaultRetries = 0

	// DefaultRetryWait is the first wait between retries.
	DefaultRetryWait = fetch.DefaultRetryWait

	// DefaultCrawlDelay is the pause between requests. Zero issues requests
	// back to back, one at a time, as the crawl and extraction are strictly
	// sequential. Set crawlDelay in the config file or --delay to slow down
	// against a site that rate-limits.
	DefaultCrawlDelay = 0 * time.Second

	// DefaultSentinel fills fields a record lacks.
	DefaultSentinel = model.DefaultSentinel

	// DefaultLinksFile is the beer link list written by crawl.
	DefaultLinksFile = "brewery_beer_links.json"

	// DefaultRawFile is the URL-keyed dataset written by extract.
	DefaultRawFile = "beers_raw.json"

	// DefaultOutputFile is the formatted dataset written by format.
	DefaultOutputFile = "beers.json"
)

// Config holds all configuration options for brewcrawl. It is populated
// from defaults, the config file and CLI flags, in that order; each layer
// only overrides the settings it actually sets.
//
// Config is plain data. The CLI turns it into component options (fetcher
// options, crawler and builder options, pipeline options); no internal
// package imports config.
type Config struct {
	// BaseURL is the origin relative links are resolved against.
	BaseURL string

	// SeedURL is the brewery page the crawl starts from.
	SeedURL string

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// MaxBodySize is the largest accepted page body in bytes.
	MaxBodySize int64

	// Retries is the number of retries after a failed request.
	Retries int

	// RetryWait is the first wait between retries.
	RetryWait time.Duration

	// CrawlDelay is the pause before every request.
	CrawlDelay time.Duration

	// RespectRobots makes the fetcher honor robots.txt.
	RespectRobots bool

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// Cookie and Headers are sent with every request.
	Cookie  string
	Headers map[string]string

	// SnapshotDir serves pages from a directory instead of the network.
	SnapshotDir string

	// MaxPages limits the brewery pages crawled. 0 means no limit.
	MaxPages int

	// MaxCount limits the beer pages extracted. 0 means all.
	MaxCount int

	// SkipFailures records failing beers instead of aborting.
	SkipFailures bool

	// Sentinel fills fields a record lacks.
	Sentinel string

	// LinksFile, RawFile and OutputFile are the JSON outputs.
	LinksFile  string
	RawFile    string
	OutputFile string

	// SummaryFile is an optional Markdown summary.
	SummaryFile string

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches log output to JSON lines.
	JSONLog bool

	// ConfigFilePath is the config file given with --config. Empty means
	// search for .brewcrawl.
	ConfigFilePath string

	// DBDir is the directory of the history database.
	DBDir string

	// SaveToDB stores the run in the history database.
	SaveToDB bool
}

// NewConfig creates a new Config with default values.
// The history database lives in the XDG data directory and runs are saved
// to it unless --no-db is given. Proxy, cookie, headers and snapshot are
// unset, so pages are fetched directly from the network.
func NewConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		SeedURL:     DefaultSeedURL,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Retries:     DefaultRetries,
		RetryWait:   DefaultRetryWait,
		CrawlDelay:  DefaultCrawlDelay,
		Sentinel:    DefaultSentinel,
		LinksFile:   DefaultLinksFile,
		RawFile:     DefaultRawFile,
		OutputFile:  DefaultOutputFile,
		DBDir:       XDGDataDir(),
		SaveToDB:    true,
	}
}

// ApplyBrewery overlays the settings of a brewery entry from the config
// file. Zero values in bc leave the current setting unchanged.
func (c *Config) ApplyBrewery(bc BreweryConfig) {
	if bc.Seed != "" {
		c.SeedURL = bc.Seed
	}
	if bc.Cookie != "" {
		c.Cookie = bc.Cookie
	}
	if len(bc.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(bc.Headers))
		}
		for k, v := range bc.Headers {
			c.Headers[k] = v
		}
	}
	if bc.MaxCount != 0 {
		c.MaxCount = bc.MaxCount
	}
	if bc.MaxPages != 0 {
		c.MaxPages = bc.MaxPages
	}
	if bc.Sentinel != "" {
		c.Sentinel = bc.Sentinel
	}
	if bc.CrawlDelay != 0 {
		c.CrawlDelay = bc.CrawlDelay
	}
	if bc.SkipFailures != nil {
		c.SkipFailures = *bc.SkipFailures
	}
}

// XDGDataDir returns the XDG data directory for brewcrawl.
// On Linux: ~/.local/share/brewcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for brewcrawl.
// On Linux: ~/.config/brewcrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found as one of the sentinel errors in errors.go, so callers can
// match it with errors.Is.
//
// The seed must contain a /brewers/<name>/ segment because the brewery
// name scopes the crawl; a relative seed is accepted and resolved against
// BaseURL. Settings that do not depend on the seed are checked by
// ValidateSettings.
func (c *Config) Validate() error {
	if c.SeedURL == "" {
		return ErrNoSeed
	}
	if _, err := link.ExtractBreweryName(c.SeedURL); err != nil {
		return ErrInvalidSeed
	}
	return c.ValidateSettings()
}

// ValidateSettings checks everything except the seed URL. Stages that do
// not crawl, such as extract, use it instead of Validate.
func (c *Config) ValidateSettings() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Retries < 0 {
		return ErrInvalidRetries
	}
	if c.CrawlDelay < 0 {
		return ErrInvalidCrawlDelay
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.MaxCount < 0 {
		return ErrInvalidMaxCount
	}
	if c.Sentinel == "" {
		return ErrEmptySentinel
	}
	if c.SnapshotDir != "" && c.ProxyAddress != "" {
		return ErrConflictingSources
	}
	return nil
}
