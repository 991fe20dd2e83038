package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for brewcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brewcrawl",
		Short: "Crawl a brewery on RateBeer and extract its beers",
		Long: `brewcrawl discovers every beer page reachable from a RateBeer brewery page,
including the pages of sibling breweries of the same brand, extracts the
attributes of each beer and writes them as a flat JSON dataset.

The work can run as one pipeline (run) or in three stages that each read
the previous stage's file (crawl, extract, format).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json-log", false, "Write logs as JSON lines")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .brewcrawl in current or home directory)")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewFormatCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
