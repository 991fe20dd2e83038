package report

import (
	"io"

	"github.com/nao1215/brewcrawl/internal/model"
)

// Writer outputs a run report.
type Writer interface {
	// Write outputs the report for run and returns the number of bytes
	// written.
	Write(run *model.Run) (int, error)
}

// MultiWriter writes the same run to several Writers.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the run to every Writer in order and stops at the first
// error.
func (m *MultiWriter) Write(run *model.Run) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(run)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output   io.Writer
	sentinel string
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output, sentinel: model.DefaultSentinel}
}

// records returns the records a report describes: the formatted records
// when the union pass ran, otherwise the raw dataset.
func (b baseWriter) records(run *model.Run) []*model.Record {
	if len(run.Records) > 0 {
		return run.Records
	}
	if run.Dataset == nil {
		return nil
	}
	out := make([]*model.Record, 0, run.Dataset.Len())
	for _, r := range run.Dataset.All() {
		out = append(out, r)
	}
	return out
}
