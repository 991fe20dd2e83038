package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/brewcrawl/internal/config"
	"github.com/nao1215/brewcrawl/internal/dataset"
	"github.com/nao1215/brewcrawl/internal/model"
	"github.com/nao1215/brewcrawl/internal/pipeline"
	"github.com/nao1215/brewcrawl/internal/report"
)

// NewFormatCmd creates the format command.
func NewFormatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Turn a raw dataset into a flat dataset with a shared schema",
		Long: `Format reads a raw dataset written by extract and writes a JSON array in
which every record has the same fields. Fields a beer lacks are filled
with the sentinel and each record gains a "url" field.

A formatted dataset is accepted as input too, so a dataset can be
re-formatted with another sentinel.

Examples:
  brewcrawl format
  brewcrawl format -i raw.json -o beers.json --sentinel ""
  brewcrawl format --summary beers.md`,
		Args: cobra.NoArgs,
		RunE: runFormatCmd,
	}

	addSentinelFlag(cmd)
	cmd.Flags().StringP("input", "i", config.DefaultRawFile, "Raw dataset file to read")
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile, "Formatted dataset file to write")
	cmd.Flags().String("summary", "", "Also write a Markdown summary to this file")
	return cmd
}

func runFormatCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, "")
	if err != nil {
		return err
	}
	// The sentinel may legitimately be "" when formatting, so only the
	// settings that matter here are checked.
	if cfg.RawFile, err = cmd.Flags().GetString("input"); err != nil {
		return err
	}
	if cfg.OutputFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())

	ds, err := readAnyDataset(cfg.RawFile)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewUnionStep(cfg.Sentinel),
		pipeline.NewWriteStep("", "", cfg.OutputFile, logger),
	)
	if cfg.SummaryFile != "" {
		p.AddStep(pipeline.NewSummaryStep(cfg.SummaryFile, cfg.Sentinel))
	}

	run := model.NewRun("")
	run.Dataset = ds
	if err := p.Execute(context.Background(), run); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Formatted %d records with %d fields, written to %s\n",
		len(run.Records), fieldCount(run.Records), cfg.OutputFile)
	return nil
}

// readAnyDataset reads a raw dataset, or a formatted one keyed by its url
// fields.
func readAnyDataset(path string) (*model.Dataset, error) {
	ds, err := report.ReadDataset(path)
	if err == nil {
		return ds, nil
	}
	if !errors.Is(err, model.ErrInvalidJSON) {
		return nil, err
	}

	records, recErr := report.ReadRecords(path)
	if recErr != nil {
		return nil, err
	}
	return dataset.FromRecords(records)
}

func fieldCount(records []*model.Record) int {
	if len(records) == 0 {
		return 0
	}
	return records[0].Len()
}
