package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/brewcrawl/internal/dataset"
	"github.com/nao1215/brewcrawl/internal/model"
)

// JSONWriter outputs a run summary as JSON.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the program version in the output.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// WithSentinel sets the missing-value marker used for coverage counts.
func WithSentinel(sentinel string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.sentinel = sentinel
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RunReport is the JSON form of a run summary.
type RunReport struct {
	Version     string          `json:"version,omitempty"`
	ID          string          `json:"id"`
	SeedURL     string          `json:"seed_url"`
	BreweryName string          `json:"brewery_name,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at,omitzero"`
	Status      string          `json:"status"`
	BeerLinks   int             `json:"beer_links"`
	Steps       []string        `json:"steps,omitempty"`
	Summary     dataset.Summary `json:"summary"`
	Failures    []model.Failure `json:"failures,omitempty"`
}

// NewRunReport builds the JSON summary of run.
func NewRunReport(run *model.Run, version, sentinel string) *RunReport {
	b := baseWriter{sentinel: sentinel}
	return &RunReport{
		Version:     version,
		ID:          run.ID,
		SeedURL:     run.SeedURL,
		BreweryName: run.BreweryName,
		StartedAt:   run.StartedAt,
		FinishedAt:  run.FinishedAt,
		Status:      run.Status(),
		BeerLinks:   len(run.BeerURLs),
		Steps:       run.PerformedSteps,
		Summary:     dataset.Summarize(b.records(run), sentinel),
		Failures:    run.Failures,
	}
}

// Write outputs the run summary in JSON format.
func (w *JSONWriter) Write(run *model.Run) (int, error) {
	return w.writeJSON(NewRunReport(run, w.version, w.sentinel))
}

// writeJSON marshals v and writes it followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
