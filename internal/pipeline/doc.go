// Package pipeline runs the stages of a brewcrawl run in sequence.
//
// A run starts from a brewery page and passes through the crawl, extract,
// union, write and persist steps. Each step is a Step that reads what the
// earlier steps stored in the shared model.Run and adds its own output.
// The CLI assembles the steps it needs; DefaultPipeline wires the full run.
package pipeline
