// Package model defines the data structures shared by the crawler, the
// extractor, the dataset builder and the report writers.
//
// The main types are:
//   - Record: one beer's attributes as an ordered field map
//   - Dataset: records keyed by beer URL, in insertion order
//   - Failure: a URL that could not be extracted, with its error kind
//   - Progress: an event passed to progress observers
//   - Run: the state of one crawl-extract-format pipeline execution
//
// Record and Dataset keep insertion order and encode to JSON objects in
// that order, so output files are stable across runs.
package model
