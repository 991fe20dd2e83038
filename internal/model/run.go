package model

import (
	"time"

	"github.com/google/uuid"
)

// Run carries the state of one pipeline execution from the seed URL to
// the formatted dataset. Each pipeline step reads what earlier steps
// produced and adds its own output.
type Run struct {
	// ID identifies the run in the history database.
	ID string `json:"id"`

	// SeedURL is the brewery page the crawl starts from.
	SeedURL string `json:"seed_url"`

	// BreweryName is the brand scope derived from SeedURL.
	BreweryName string `json:"brewery_name,omitempty"`

	// StartedAt and FinishedAt bound the execution.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`

	// BeerURLs are the beer pages discovered by the crawl.
	BeerURLs []string `json:"beer_urls,omitempty"`

	// Dataset holds extracted records keyed by beer URL.
	Dataset *Dataset `json:"-"`

	// Records is the dataset after the union pass.
	Records []*Record `json:"-"`

	// Failures lists skipped beer URLs.
	Failures []Failure `json:"failures,omitempty"`

	// PerformedSteps names the steps that ran, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	// Err is the error that stopped the run, if any.
	Err error `json:"-"`

	// ErrorMessage is Err as text, for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewRun returns a run for seedURL with a fresh ID.
func NewRun(seedURL string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		SeedURL:   seedURL,
		StartedAt: time.Now().UTC(),
	}
}

// AliasCount returns how many records are alias markers.
func (r *Run) AliasCount() int {
	if r.Dataset == nil {
		return 0
	}
	n := 0
	for _, rec := range r.Dataset.All() {
		if rec.IsAlias() {
			n++
		}
	}
	return n
}

// Status describes how the run ended.
func (r *Run) Status() string {
	switch {
	case r.ErrorMessage != "":
		return "failed: " + r.ErrorMessage
	case r.Err != nil:
		return "failed: " + r.Err.Error()
	case len(r.Failures) > 0:
		return "completed with failures"
	case r.FinishedAt.IsZero():
		return "running"
	default:
		return "completed"
	}
}
