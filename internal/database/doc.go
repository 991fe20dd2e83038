// Package database stores the history of crawl runs in SQLite.
//
// Each run is saved with the beer links it discovered, every extracted
// record and every skipped URL, so past datasets can be listed and
// restored without crawling again. The database is a single file
// (brewcrawl.db) in the configured directory and uses modernc.org/sqlite,
// a CGO-free driver.
package database
