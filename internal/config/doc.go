// Package config provides the configuration of brewcrawl: defaults, the
// per-brewery settings read from the .brewcrawl file, and validation.
package config
