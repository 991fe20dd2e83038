// Package report writes the outputs of a crawl.
//
// Two kinds of output live here. Data files hold the beer link list, the
// raw dataset (URL to record) and the formatted dataset (list of records).
// They are written atomically: a temporary file in the target directory
// is renamed over the destination, so an interrupted run never leaves a
// truncated file behind.
//
// Run reports summarize a model.Run for people and tools:
//   - TextWriter: go-pretty tables for the terminal
//   - JSONWriter: machine-readable run summary
//   - MarkdownWriter: a document for sharing
//
// Run report writers implement Writer and can be combined with
// MultiWriter.
package report
