package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nao1215/brewcrawl/internal/config"
	"github.com/nao1215/brewcrawl/internal/database"
	"github.com/nao1215/brewcrawl/internal/model"
	"github.com/nao1215/brewcrawl/internal/pipeline"
	"github.com/nao1215/brewcrawl/internal/report"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [brewery-url]",
		Short: "Crawl, extract and format a brewery in one go",
		Long: `Run performs crawl, extract and format in one pipeline, writes all three
files and saves the run in the history database.

Examples:
  brewcrawl run http://www.ratebeer.com/brewers/brewdog/8534/
  brewcrawl run --max 10 --skip-failures /brewers/brewdog/8534/
  brewcrawl run --summary beers.md --json /brewers/brewdog/8534/

Configuration file (.brewcrawl) example:
  defaults:
    sentinel: "NA"
  breweries:
    brewdog:
      seed: "http://www.ratebeer.com/brewers/brewdog/8534/"
      maxCount: 50
      skipFailures: true`,
		Args: cobra.MaximumNArgs(1),
		RunE: runRunCmd,
	}

	addFetchFlags(cmd)
	addExtractFlags(cmd)
	addSentinelFlag(cmd)
	cmd.Flags().IntP("max-pages", "p", 0, "Crawl at most this many brewery pages (0 for all)")
	cmd.Flags().String("links", config.DefaultLinksFile, "Beer links file to write")
	cmd.Flags().String("raw", config.DefaultRawFile, "Raw dataset file to write")
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile, "Formatted dataset file to write")
	cmd.Flags().String("summary", "", "Also write a Markdown summary to this file")
	cmd.Flags().Bool("json", false, "Print the run summary as JSON")
	cmd.Flags().String("db-dir", config.XDGDataDir(), "History database directory")
	cmd.Flags().Bool("no-db", false, "Do not save the run in the history database")
	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, seedArg(args))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	flags := cmd.Flags()
	if cfg.LinksFile, err = flags.GetString("links"); err != nil {
		return err
	}
	if cfg.RawFile, err = flags.GetString("raw"); err != nil {
		return err
	}
	if cfg.OutputFile, err = flags.GetString("output"); err != nil {
		return err
	}
	jsonOut, err := flags.GetBool("json")
	if err != nil {
		return err
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	logger.Info("starting run",
		"seed", cfg.SeedURL,
		"maxCount", cfg.MaxCount,
		"policy", policyFor(cfg),
		"saveToDB", cfg.SaveToDB,
	)

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}

	var db *database.HistoryDB
	if cfg.SaveToDB {
		db, err = database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
	}

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineBaseURL(cfg.BaseURL),
		pipeline.WithPipelineMaxPages(cfg.MaxPages),
		pipeline.WithPipelineMaxCount(cfg.MaxCount),
		pipeline.WithPipelineSkipFailures(cfg.SkipFailures),
		pipeline.WithPipelineSentinel(cfg.Sentinel),
		pipeline.WithPipelineOutputs(cfg.LinksFile, cfg.RawFile, cfg.OutputFile),
		pipeline.WithPipelineSummary(cfg.SummaryFile),
		pipeline.WithPipelineObserver(progressPrinter(cmd.ErrOrStderr())),
		pipeline.WithPipelineLogger(logger),
	}
	if db != nil {
		configOpts = append(configOpts, pipeline.WithPipelineStore(db))
	}

	p := pipeline.DefaultPipeline(fetcher, []pipeline.Option{pipeline.WithLogger(logger)}, configOpts...)

	run := model.NewRun(cfg.SeedURL)
	runErr := p.Execute(ctx, run)
	if runErr != nil && db != nil {
		saveFailedRun(db, run, logger)
	}

	if err := printRun(cmd, run, cfg, jsonOut); err != nil {
		return err
	}
	if runErr != nil {
		return abortError(ctx, runErr)
	}
	return nil
}

// saveFailedRun records a run that stopped before the persist step. The
// run's own context may be cancelled, so a fresh one is used.
func saveFailedRun(db *database.HistoryDB, run *model.Run, logger *slog.Logger) {
	if err := db.SaveRun(context.Background(), run); err != nil {
		logger.Error("failed to save run", "id", run.ID, "error", err)
	}
}

// printRun writes the run summary to stdout as a table or as JSON.
func printRun(cmd *cobra.Command, run *model.Run, cfg *config.Config, jsonOut bool) error {
	var w report.Writer
	if jsonOut {
		w = report.NewJSONWriter(cmd.OutOrStdout(),
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
			report.WithSentinel(cfg.Sentinel),
		)
	} else {
		w = report.NewTextWriter(cmd.OutOrStdout(), report.WithTextSentinel(cfg.Sentinel))
	}
	_, err := w.Write(run)
	return err
}
