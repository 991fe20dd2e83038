package link

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// DefaultBaseURL is the origin relative links are resolved against.
const DefaultBaseURL = "http://www.ratebeer.com"

// ErrMalformedURL is returned when a brewery URL has no /brewers/<name>/ segment.
var ErrMalformedURL = errors.New("malformed brewery url")

var (
	beerDetailPattern  = regexp.MustCompile(`^/beer/.+?/[0-9]+/$`)
	beerRatePattern    = regexp.MustCompile(`^/beer/rate/[0-9]+/$`)
	breweryNamePattern = regexp.MustCompile(`/brewers/(.*?)/`)
)

// IsBeerDetailLink reports whether path has the shape /beer/<slug>/<id>/.
// Note that rate links also match; use IsKeptBeerLink to filter them.
func IsBeerDetailLink(path string) bool {
	return beerDetailPattern.MatchString(path)
}

// IsBeerRateLink reports whether path is a /beer/rate/<id>/ form link.
func IsBeerRateLink(path string) bool {
	return beerRatePattern.MatchString(path)
}

// IsKeptBeerLink reports whether path is a beer detail link that should be
// collected: it matches the detail shape and is not a rate link.
func IsKeptBeerLink(path string) bool {
	return IsBeerDetailLink(path) && !IsBeerRateLink(path)
}

// IsBreweryLinkForName reports whether path starts with /brewers/<breweryName>.
// The name is matched literally.
func IsBreweryLinkForName(path, breweryName string) bool {
	if breweryName == "" {
		return false
	}
	pattern, err := regexp.Compile(`^/brewers/` + regexp.QuoteMeta(breweryName))
	if err != nil {
		return false
	}
	return pattern.MatchString(path)
}

// ExtractBreweryName returns the <name> part of the first /brewers/<name>/
// segment of breweryURL. The URL may be absolute or site-relative.
func ExtractBreweryName(breweryURL string) (string, error) {
	m := breweryNamePattern.FindStringSubmatch(breweryURL)
	if m == nil {
		return "", fmt.Errorf("%w: %q has no /brewers/<name>/ segment", ErrMalformedURL, breweryURL)
	}
	return m[1], nil
}

// Resolve returns href as an absolute URL. Relative hrefs are resolved
// against base; absolute hrefs are returned unchanged apart from
// normalization by net/url.
func Resolve(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("%w: empty href", ErrMalformedURL)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: invalid base %q: %v", ErrMalformedURL, base, err)
	}
	if !b.IsAbs() {
		return "", fmt.Errorf("%w: base %q is not absolute", ErrMalformedURL, base)
	}

	return b.ResolveReference(ref).String(), nil
}
