package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/brewcrawl/internal/dataset"
	"github.com/nao1215/brewcrawl/internal/model"
)

// MarkdownWriter outputs a run report in Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given
// writer. Coverage is computed against sentinel; an empty sentinel uses
// model.DefaultSentinel.
func NewMarkdownWriter(output io.Writer, sentinel string) *MarkdownWriter {
	w := &MarkdownWriter{baseWriter: newBaseWriter(output)}
	if sentinel != "" {
		w.sentinel = sentinel
	}
	return w
}

// Write outputs the run report in Markdown format.
func (w *MarkdownWriter) Write(run *model.Run) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := dataset.Summarize(w.records(run), w.sentinel)

	w.writeHeader(md, run, summary)
	w.writeAlert(md, run)
	w.writeChart(md, summary, len(run.Failures))
	w.writeCoverage(md, summary)
	w.writeFailures(md, run.Failures)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, run *model.Run, summary dataset.Summary) {
	title := "Beer Dataset Report"
	if run.BreweryName != "" {
		title += ": " + run.BreweryName
	}
	md.H1(title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + run.ID + "`"},
			{"Seed URL", run.SeedURL},
			{"Started", run.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", duration(run)},
			{"Beer Links", strconv.Itoa(len(run.BeerURLs))},
			{"Records", strconv.Itoa(summary.Total)},
			{"Aliases", strconv.Itoa(summary.Aliases)},
			{"Failures", strconv.Itoa(len(run.Failures))},
			{"Status", run.Status()},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, run *model.Run) {
	switch {
	case run.Err != nil || run.ErrorMessage != "":
		md.Cautionf("The run stopped early: %s", run.Status())
	case len(run.Failures) > 0:
		md.Warningf("%d beer page(s) could not be extracted and are missing from the dataset.", len(run.Failures))
	default:
		md.Tip("Every beer page was extracted.")
	}
	md.PlainText("")
}

// writeChart draws the split between regular records, aliases and
// failures.
func (w *MarkdownWriter) writeChart(md *markdown.Markdown, summary dataset.Summary, failures int) {
	beers := summary.Total - summary.Aliases
	if beers+summary.Aliases+failures == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Beer Pages"),
		piechart.WithShowData(true),
	)
	if beers > 0 {
		chart.LabelAndIntValue("Beers", uint64(beers))
	}
	if summary.Aliases > 0 {
		chart.LabelAndIntValue("Aliases", uint64(summary.Aliases))
	}
	if failures > 0 {
		chart.LabelAndIntValue("Failures", uint64(failures))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeCoverage(md *markdown.Markdown, summary dataset.Summary) {
	md.H2("Field Coverage")
	md.PlainText("")

	if len(summary.Fields) == 0 {
		md.PlainText("No records.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(summary.Fields))
	for _, f := range summary.Fields {
		rows = append(rows, []string{
			f.Name,
			strconv.Itoa(f.Present),
			fmt.Sprintf("%.1f%%", 100*f.Ratio(summary.Total)),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Field", "Present", "Coverage"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, failures []model.Failure) {
	if len(failures) == 0 {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{"`" + f.URL + "`", string(f.Kind), f.Message})
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Kind", "Message"},
		Rows:   rows,
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [brewcrawl](https://github.com/nao1215/brewcrawl)*")
}

// duration formats the run time, or "-" while the run is unfinished.
func duration(run *model.Run) string {
	if run.FinishedAt.IsZero() {
		return "-"
	}
	return run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String()
}
