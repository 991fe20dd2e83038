package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/brewcrawl/internal/document"
	"github.com/nao1215/brewcrawl/internal/fetch"
	"github.com/nao1215/brewcrawl/internal/link"
	"github.com/nao1215/brewcrawl/internal/model"
)

// Crawler collects beer links from a brewery's pages.
// A Crawler may be reused; each Crawl call starts with empty visited sets.
type Crawler struct {
	fetcher fetch.Fetcher
	parser  document.Parser

	// baseURL is the origin that relative brewery links are resolved
	// against, e.g. "http://www.ratebeer.com".
	baseURL string

	// maxPages stops the crawl after this many brewery pages. 0 means no
	// limit.
	maxPages int

	observer model.ProgressFunc
	logger   *slog.Logger

	mu    sync.Mutex
	stats Stats
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithMaxPages limits the number of brewery pages fetched by one crawl.
// When the limit is reached the beers found so far are returned.
func WithMaxPages(n int) Option {
	return func(c *Crawler) {
		c.maxPages = n
	}
}

// WithObserver registers a callback invoked after every brewery page.
func WithObserver(fn model.ProgressFunc) Option {
	return func(c *Crawler) {
		c.observer = fn
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// New returns a Crawler that fetches pages with fetcher, parses them with
// parser and resolves relative links against baseURL.
func New(fetcher fetch.Fetcher, parser document.Parser, baseURL string, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher: fetcher,
		parser:  parser,
		baseURL: baseURL,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats describes the most recent crawl.
type Stats struct {
	// PagesVisited is the number of brewery pages fetched.
	PagesVisited int

	// BreweriesQueued is the number of distinct brewery URLs discovered,
	// the seed included.
	BreweriesQueued int

	// BeersFound is the number of distinct beer links collected.
	BeersFound int

	// Elapsed is the wall time of the crawl.
	Elapsed time.Duration
}

// Stats returns statistics of the most recent Crawl call.
func (c *Crawler) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Crawl walks the brewery rooted at seedURL and returns the beer links it
// found, deduplicated, in discovery order.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) ([]string, error) {
	name, err := link.ExtractBreweryName(seedURL)
	if err != nil {
		return nil, err
	}
	seed, err := link.Resolve(c.baseURL, seedURL)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	c.logger.Info("crawling brewery", "brewery", name, "seed", seed)

	state := newCrawlState(seed)
	defer func() {
		c.setStats(Stats{
			PagesVisited:    state.pages,
			BreweriesQueued: len(state.visitedBreweries),
			BeersFound:      len(state.beers),
			Elapsed:         time.Since(start),
		})
	}()

	for len(state.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if c.maxPages > 0 && state.pages >= c.maxPages {
			c.logger.Warn("page limit reached, stopping crawl",
				"limit", c.maxPages,
				"pending", len(state.stack))
			break
		}

		pageURL := state.pop()
		doc, err := c.load(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		state.pages++

		newBeers, newBreweries := c.collect(doc, name, state)
		c.logger.Debug("brewery page processed",
			"url", pageURL,
			"new_beers", newBeers,
			"new_breweries", newBreweries,
			"pending", len(state.stack))

		if c.observer != nil {
			c.observer(model.Progress{
				Stage:   model.StageCrawl,
				URL:     pageURL,
				Done:    state.pages,
				Elapsed: time.Since(start),
			})
		}
	}

	c.logger.Info("crawl finished",
		"brewery", name,
		"pages", state.pages,
		"beers", len(state.beers),
		"elapsed", time.Since(start))

	return state.beers, nil
}

// load fetches and parses one brewery page.
func (c *Crawler) load(ctx context.Context, pageURL string) (*document.Document, error) {
	body, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", pageURL, err)
	}
	doc, err := c.parser.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("crawl %s: %w", pageURL, err)
	}
	return doc, nil
}

// collect classifies every anchor on doc and updates state. It returns the
// number of new beers and new brewery pages found.
func (c *Crawler) collect(doc *document.Document, name string, state *crawlState) (int, int) {
	var beers, breweries int
	for _, href := range doc.AnchorHrefs() {
		switch {
		case link.IsKeptBeerLink(href):
			if state.addBeer(href) {
				beers++
			}
		case link.IsBreweryLinkForName(href, name):
			abs, err := link.Resolve(c.baseURL, href)
			if err != nil {
				c.logger.Debug("skipping unresolvable brewery link", "href", href, "error", err)
				continue
			}
			if state.push(abs) {
				breweries++
			}
		}
	}
	return beers, breweries
}

func (c *Crawler) setStats(s Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = s
}
