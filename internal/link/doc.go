// Package link classifies RateBeer URLs.
//
// Every function in this package is pure: there is no network access and
// no HTML parsing. The crawler and the extractor use it to decide which
// anchors on a page are beer detail pages, which are rating forms that
// only look like detail pages, and which are further catalog pages of the
// brewery being crawled.
//
// The URL shapes are fixed by the site's URL scheme:
//
//	beer detail     ^/beer/.+?/[0-9]+/$
//	beer rate form  ^/beer/rate/[0-9]+/$
//	brewery page    ^/brewers/<brewery-name>
//
// Links found in documents are site-relative. Resolve turns them into the
// absolute form used for fetching and for the visited brewery set.
package link
