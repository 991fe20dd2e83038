// Package crawler discovers every beer page reachable from one brewery.
//
// # Algorithm
//
// A Crawler starts at a seed brewery page and walks the brewery's own
// pages depth-first. The brewery name is taken from the seed URL
// (/brewers/<name>/...) and only links under /brewers/<name> are followed,
// so the walk never leaves the brewery. From every page it collects links
// of the form /beer/<slug>/<id>/, skipping the /beer/rate/<id>/ forms.
//
// The frontier is a LIFO stack. Each brewery URL is resolved against the
// base URL and fetched at most once. Each beer URL is reported at most
// once, in the order it was first seen, in the form it appeared on the
// page.
//
// # Failure
//
// The crawl is all or nothing. A seed without a brewery name fails with
// link.ErrMalformedURL before any request is made, and the first fetch or
// parse error aborts the crawl with no partial result.
//
// # Usage
//
//	c := crawler.New(fetcher, document.NewHTMLParser(), "http://www.ratebeer.com")
//	beers, err := c.Crawl(ctx, "http://www.ratebeer.com/brewers/brewdog/8534/")
package crawler
