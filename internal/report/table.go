package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nao1215/brewcrawl/internal/dataset"
	"github.com/nao1215/brewcrawl/internal/model"
)

// TextWriter outputs a run report as terminal tables.
type TextWriter struct {
	baseWriter

	// showCoverage adds the per-field coverage table.
	showCoverage bool
}

// TextWriterOption configures a TextWriter.
type TextWriterOption func(*TextWriter)

// WithCoverage adds the per-field coverage table to the output.
func WithCoverage(show bool) TextWriterOption {
	return func(w *TextWriter) {
		w.showCoverage = show
	}
}

// WithTextSentinel sets the missing-value marker used for coverage counts.
func WithTextSentinel(sentinel string) TextWriterOption {
	return func(w *TextWriter) {
		w.sentinel = sentinel
	}
}

// NewTextWriter creates a TextWriter that outputs to the given writer.
func NewTextWriter(output io.Writer, opts ...TextWriterOption) *TextWriter {
	w := &TextWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders the run summary, the optional coverage table and the
// failures.
func (w *TextWriter) Write(run *model.Run) (int, error) {
	summary := dataset.Summarize(w.records(run), w.sentinel)
	var total int

	t := newTable("Run " + run.ID)
	t.AppendRows([]table.Row{
		{"Seed URL", run.SeedURL},
		{"Brewery", run.BreweryName},
		{"Duration", duration(run)},
		{"Beer links", len(run.BeerURLs)},
		{"Records", summary.Total},
		{"Aliases", summary.Aliases},
		{"Failures", len(run.Failures)},
		{"Status", run.Status()},
	})
	n, err := fmt.Fprintln(w.output, t.Render())
	total += n
	if err != nil {
		return total, err
	}

	if w.showCoverage && len(summary.Fields) > 0 {
		t := newTable("Field coverage")
		t.AppendHeader(table.Row{"Field", "Present", "Coverage"})
		for _, f := range summary.Fields {
			t.AppendRow(table.Row{f.Name, f.Present, fmt.Sprintf("%.1f%%", 100*f.Ratio(summary.Total))})
		}
		n, err := fmt.Fprintln(w.output, t.Render())
		total += n
		if err != nil {
			return total, err
		}
	}

	if len(run.Failures) > 0 {
		t := newTable("Failures")
		t.AppendHeader(table.Row{"URL", "Kind", "Message"})
		for _, f := range run.Failures {
			t.AppendRow(table.Row{f.URL, f.Kind, f.Message})
		}
		n, err := fmt.Fprintln(w.output, t.Render())
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// HistoryRow is one line of the run history table.
type HistoryRow struct {
	ID          string
	BreweryName string
	StartedAt   time.Time
	BeerLinks   int
	Records     int
	Failures    int
	Status      string
}

// WriteHistory renders past runs as a table.
func WriteHistory(output io.Writer, rows []HistoryRow) error {
	t := newTable("")
	t.AppendHeader(table.Row{"Run ID", "Brewery", "Started", "Links", "Records", "Failures", "Status"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.ID,
			r.BreweryName,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.BeerLinks,
			r.Records,
			r.Failures,
			r.Status,
		})
	}
	_, err := fmt.Fprintln(output, t.Render())
	return err
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if title != "" {
		t.SetTitle(title)
	}
	return t
}
