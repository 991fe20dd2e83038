package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nao1215/brewcrawl/internal/config"
	"github.com/nao1215/brewcrawl/internal/database"
	"github.com/nao1215/brewcrawl/internal/dataset"
	"github.com/nao1215/brewcrawl/internal/report"
)

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and inspect previous runs",
		Long: `History lists the runs saved by "brewcrawl run", newest first.

Examples:
  brewcrawl history
  brewcrawl history --brewery brewdog --limit 5
  brewcrawl history show <run-id> --coverage
  brewcrawl history export <run-id> -o beers.json
  brewcrawl history beer /beer/brewdog-punk-ipa/135361/`,
		Args: cobra.NoArgs,
		RunE: runHistoryList,
	}

	cmd.PersistentFlags().String("db-dir", config.XDGDataDir(), "History database directory")
	cmd.Flags().StringP("brewery", "b", "", "Only list runs of this brewery")
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to list (0 for all)")

	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryExportCmd())
	cmd.AddCommand(newHistoryBeerCmd())
	cmd.AddCommand(newHistoryDeleteCmd())
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
	cmd.Flags().Bool("coverage", false, "Include per-field coverage")
	cmd.Flags().Bool("markdown", false, "Also print the Markdown summary")
	cmd.Flags().Bool("json", false, "Print the run as JSON")
	addSentinelFlag(cmd)
	return cmd
}

func newHistoryExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Write the formatted dataset of a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryExport,
	}
	cmd.Flags().StringP("output", "o", config.DefaultOutputFile, "Formatted dataset file to write")
	addSentinelFlag(cmd)
	return cmd
}

func newHistoryBeerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "beer <beer-url>",
		Short: "Print the latest saved record of a beer",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryBeer,
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryDelete,
	}
}

// openHistory opens an existing history database.
func openHistory(cmd *cobra.Command) (*database.HistoryDB, error) {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return nil, fmt.Errorf("no run history (run \"brewcrawl run\" first): %w", err)
	}
	return db, nil
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	brewery, err := cmd.Flags().GetString("brewery")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context(), brewery, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	rows := make([]report.HistoryRow, len(runs))
	for i, r := range runs {
		rows[i] = report.HistoryRow{
			ID:          r.ID,
			BreweryName: r.BreweryName,
			StartedAt:   r.StartedAt,
			BeerLinks:   r.BeerLinks,
			Records:     r.Records,
			Failures:    r.Failures,
			Status:      r.Status,
		}
	}
	return report.WriteHistory(cmd.OutOrStdout(), rows)
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	coverage, err := flags.GetBool("coverage")
	if err != nil {
		return err
	}
	markdown, err := flags.GetBool("markdown")
	if err != nil {
		return err
	}
	jsonOut, err := flags.GetBool("json")
	if err != nil {
		return err
	}
	sentinel, err := flags.GetString("sentinel")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", args[0])
	}
	if run.Dataset != nil {
		run.Records = dataset.UnionSchema(run.Dataset, sentinel)
	}

	out := cmd.OutOrStdout()
	var writers []report.Writer
	if jsonOut {
		writers = append(writers, report.NewJSONWriter(out,
			report.WithPrettyPrint(),
			report.WithVersion(getVersion()),
			report.WithSentinel(sentinel),
		))
	} else {
		writers = append(writers, report.NewTextWriter(out,
			report.WithCoverage(coverage),
			report.WithTextSentinel(sentinel),
		))
	}
	if markdown {
		writers = append(writers, report.NewMarkdownWriter(out, sentinel))
	}
	_, err = report.NewMultiWriter(writers...).Write(run)
	return err
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	sentinel, err := cmd.Flags().GetString("sentinel")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run not found: %s", args[0])
	}

	records := dataset.UnionSchema(run.Dataset, sentinel)
	if err := report.WriteRecords(output, records); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records of run %s to %s\n", len(records), run.ID, output)
	return nil
}

func runHistoryBeer(cmd *cobra.Command, args []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	record, err := db.LatestRecord(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("no record saved for %s", args[0])
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	deleted, err := db.DeleteRun(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("run not found: %s", args[0])
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
	return nil
}
