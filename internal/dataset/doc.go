// Package dataset builds the beer dataset from a list of beer URLs.
//
// Builder extracts one record per URL, in input order, and collects them
// into a model.Dataset keyed by URL. A run can be capped with
// WithMaxCount, and WithPolicy decides whether the first failing URL
// aborts the build (the default) or is recorded as a model.Failure and
// skipped.
//
// UnionSchema is the formatting pass applied afterwards: it gives every
// record the same set of fields by filling missing ones with a sentinel,
// adds the "url" field and flattens the dataset into a list.
package dataset
