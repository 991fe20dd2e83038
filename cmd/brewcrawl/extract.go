package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/brewcrawl/internal/config"
	"github.com/nao1215/brewcrawl/internal/dataset"
	"github.com/nao1215/brewcrawl/internal/document"
	"github.com/nao1215/brewcrawl/internal/extract"
	"github.com/nao1215/brewcrawl/internal/model"
	"github.com/nao1215/brewcrawl/internal/pipeline"
	"github.com/nao1215/brewcrawl/internal/report"
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract beer records from a links file",
		Long: `Extract fetches every beer page listed in a links file written by crawl and
writes the raw dataset: a JSON object from beer URL to its record.

By default the first failing beer aborts the run and nothing is written.
With --skip-failures failing beers are reported and left out.

Examples:
  brewcrawl extract
  brewcrawl extract -i links.json -o raw.json --max 20
  brewcrawl extract --skip-failures`,
		Args: cobra.NoArgs,
		RunE: runExtractCmd,
	}

	addFetchFlags(cmd)
	addExtractFlags(cmd)
	cmd.Flags().StringP("input", "i", config.DefaultLinksFile, "Beer links file to read")
	cmd.Flags().StringP("output", "o", config.DefaultRawFile, "Raw dataset file to write")
	return cmd
}

func runExtractCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd, "")
	if err != nil {
		return err
	}
	if err := cfg.ValidateSettings(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.LinksFile, err = cmd.Flags().GetString("input"); err != nil {
		return err
	}
	if cfg.RawFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	links, err := report.ReadLinks(cfg.LinksFile)
	if err != nil {
		return err
	}

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}

	extractor := extract.New(fetcher, document.NewHTMLParser(), cfg.BaseURL, extract.WithLogger(logger))
	builder := dataset.New(extractor,
		dataset.WithMaxCount(cfg.MaxCount),
		dataset.WithPolicy(policyFor(cfg)),
		dataset.WithObserver(progressPrinter(cmd.ErrOrStderr())),
		dataset.WithLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewExtractStep(builder, logger),
		pipeline.NewWriteStep("", cfg.RawFile, "", logger),
	)

	run := model.NewRun(cfg.SeedURL)
	run.BeerURLs = links
	err = p.Execute(ctx, run)
	printFailures(cmd.ErrOrStderr(), run.Failures)
	if err != nil {
		return abortError(ctx, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d beers (%d aliases, %d skipped), written to %s\n",
		run.Dataset.Len(), run.AliasCount(), len(run.Failures), cfg.RawFile)
	return nil
}

// policyFor returns the error policy selected by cfg.
func policyFor(cfg *config.Config) dataset.Policy {
	if cfg.SkipFailures {
		return dataset.SkipOnError
	}
	return dataset.AbortOnError
}

// abortError adds the --skip-failures hint to extraction errors that
// were not caused by cancellation.
func abortError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if dataset.ClassifyError(err) == model.FailureUnknown {
		return err
	}
	return fmt.Errorf("%w: %w", errAborted, err)
}
