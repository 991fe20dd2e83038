package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/brewcrawl/internal/config"
	"github.com/nao1215/brewcrawl/internal/crawler"
	"github.com/nao1215/brewcrawl/internal/document"
	"github.com/nao1215/brewcrawl/internal/model"
	"github.com/nao1215/brewcrawl/internal/pipeline"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [brewery-url]",
		Short: "Collect the beer links of a brewery",
		Long: `Crawl walks a brewery page and every page of the same brand it links to,
and writes the beer links it finds as a JSON array.

Examples:
  brewcrawl crawl http://www.ratebeer.com/brewers/brewdog/8534/
  brewcrawl crawl -o links.json /brewers/brewdog/8534/
  brewcrawl crawl --snapshot ./pages /brewers/brewdog/8534/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	addFetchFlags(cmd)
	cmd.Flags().IntP("max-pages", "p", 0, "Crawl at most this many brewery pages (0 for all)")
	cmd.Flags().StringP("output", "o", config.DefaultLinksFile, "Beer links file to write")
	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, seedArg(args))
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.LinksFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}

	logger := setupLogger(cfg, cmd.ErrOrStderr())
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	fetcher, err := newFetcher(cfg, logger)
	if err != nil {
		return err
	}

	c := crawler.New(fetcher, document.NewHTMLParser(), cfg.BaseURL,
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithObserver(progressPrinter(cmd.ErrOrStderr())),
		crawler.WithLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewCrawlStep(c, logger),
		pipeline.NewWriteStep(cfg.LinksFile, "", "", logger),
	)

	run := model.NewRun(cfg.SeedURL)
	if err := p.Execute(ctx, run); err != nil {
		return err
	}

	stats := c.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Found %d beer links on %d brewery pages in %s, written to %s\n",
		len(run.BeerURLs), stats.PagesVisited, stats.Elapsed.Round(time.Millisecond), cfg.LinksFile)
	return nil
}
