package model

import "time"

// Stage identifies the part of a run that emitted a progress event.
type Stage string

// Pipeline stages.
const (
	StageCrawl   Stage = "crawl"
	StageExtract Stage = "extract"
)

// Progress is passed to a ProgressFunc once per fetched page.
type Progress struct {
	// Stage is the emitting stage.
	Stage Stage

	// URL is the page that was just processed.
	URL string

	// Done counts pages processed so far in this stage, including URL.
	Done int

	// Total is the number of pages the stage will process, or 0 when it
	// is not known in advance (the crawl discovers its pages as it goes).
	Total int

	// Elapsed is the time since the stage started.
	Elapsed time.Duration

	// Err is set when processing URL failed and the stage continued.
	Err error
}

// Fraction returns Done/Total, or 0 when Total is unknown.
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// ProgressFunc observes progress events. It is called synchronously from
// the crawling goroutine and must not block for long.
type ProgressFunc func(Progress)
