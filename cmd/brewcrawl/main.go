// Package main provides the entry point for the brewcrawl CLI.
//
// brewcrawl crawls a brewery's pages on RateBeer, extracts every beer it
// finds and writes the result as a flat JSON dataset.
//
// Usage:
//
//	brewcrawl run <brewery-url>
//	brewcrawl crawl <brewery-url> && brewcrawl extract && brewcrawl format
//
// See --help for all available options.
package main

func main() {
	Execute()
}
