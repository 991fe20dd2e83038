package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nao1215/brewcrawl/internal/config"
	"github.com/nao1215/brewcrawl/internal/fetch"
	applog "github.com/nao1215/brewcrawl/internal/log"
	"github.com/nao1215/brewcrawl/internal/model"
)

// addFetchFlags registers the flags that control how pages are fetched.
func addFetchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("base-url", config.DefaultBaseURL, "Origin that relative links are resolved against")
	f.DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each request")
	f.String("user-agent", config.DefaultUserAgent, "User-Agent header")
	f.Int64("max-body-size", config.DefaultMaxBodySize, "Largest accepted page body in bytes")
	f.Int("retries", config.DefaultRetries, "Retries after a failed request")
	f.Duration("retry-wait", config.DefaultRetryWait, "First wait between retries")
	f.DurationP("delay", "d", config.DefaultCrawlDelay, "Pause before every request")
	f.Bool("robots", false, "Honor robots.txt")
	f.String("proxy", "", "SOCKS5 proxy address (host:port)")
	f.String("cookie", "", "Cookie header sent with every request")
	f.String("snapshot", "", "Serve pages from this directory instead of the network")
}

// addExtractFlags registers the flags of the extraction stage.
func addExtractFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("max", "m", 0, "Extract at most this many beers (0 for all)")
	cmd.Flags().Bool("skip-failures", false, "Record failing beers and continue instead of aborting")
}

// addSentinelFlag registers --sentinel.
func addSentinelFlag(cmd *cobra.Command) {
	cmd.Flags().String("sentinel", config.DefaultSentinel, "Value written for missing fields")
}

// buildConfig creates a Config from defaults, the config file and flags,
// in increasing precedence. seed is the positional seed URL, or "".
func buildConfig(cmd *cobra.Command, seed string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}

	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		cf, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyBrewery(cf.ResolveBrewery(seed))
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if seed != "" {
		cfg.SeedURL = seed
	}
	if err := applyFlags(flags, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyFlags copies the flags the user set onto cfg. Flags left at their
// default do not override the config file.
func applyFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	set := func(name string, apply func() error) {
		if err == nil && changed(name) {
			err = apply()
		}
	}

	set("base-url", func() (e error) { cfg.BaseURL, e = flags.GetString("base-url"); return })
	set("timeout", func() (e error) { cfg.Timeout, e = flags.GetDuration("timeout"); return })
	set("user-agent", func() (e error) { cfg.UserAgent, e = flags.GetString("user-agent"); return })
	set("max-body-size", func() (e error) { cfg.MaxBodySize, e = flags.GetInt64("max-body-size"); return })
	set("retries", func() (e error) { cfg.Retries, e = flags.GetInt("retries"); return })
	set("retry-wait", func() (e error) { cfg.RetryWait, e = flags.GetDuration("retry-wait"); return })
	set("delay", func() (e error) { cfg.CrawlDelay, e = flags.GetDuration("delay"); return })
	set("robots", func() (e error) { cfg.RespectRobots, e = flags.GetBool("robots"); return })
	set("proxy", func() (e error) { cfg.ProxyAddress, e = flags.GetString("proxy"); return })
	set("cookie", func() (e error) { cfg.Cookie, e = flags.GetString("cookie"); return })
	set("snapshot", func() (e error) { cfg.SnapshotDir, e = flags.GetString("snapshot"); return })
	set("max-pages", func() (e error) { cfg.MaxPages, e = flags.GetInt("max-pages"); return })
	set("max", func() (e error) { cfg.MaxCount, e = flags.GetInt("max"); return })
	set("skip-failures", func() (e error) { cfg.SkipFailures, e = flags.GetBool("skip-failures"); return })
	set("sentinel", func() (e error) { cfg.Sentinel, e = flags.GetString("sentinel"); return })
	set("summary", func() (e error) { cfg.SummaryFile, e = flags.GetString("summary"); return })
	set("db-dir", func() (e error) { cfg.DBDir, e = flags.GetString("db-dir"); return })
	set("no-db", func() error {
		noDB, e := flags.GetBool("no-db")
		cfg.SaveToDB = !noDB
		return e
	})
	if err != nil {
		return err
	}

	if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
		return err
	}
	cfg.JSONLog, err = flags.GetBool("json-log")
	return err
}

// newFetcher builds the page source described by cfg: a snapshot
// directory or the network, with politeness and robots.txt decorators.
func newFetcher(cfg *config.Config, logger *slog.Logger) (fetch.Fetcher, error) {
	var f fetch.Fetcher
	if cfg.SnapshotDir != "" {
		if _, err := os.Stat(cfg.SnapshotDir); err != nil {
			return nil, fmt.Errorf("snapshot directory: %w", err)
		}
		f = fetch.NewFileFetcher(cfg.SnapshotDir)
	} else {
		opts := []fetch.HTTPOption{
			fetch.WithTimeout(cfg.Timeout),
			fetch.WithUserAgent(cfg.UserAgent),
			fetch.WithMaxBodySize(cfg.MaxBodySize),
			fetch.WithRetries(cfg.Retries, cfg.RetryWait),
			fetch.WithHTTPLogger(logger),
		}
		if cfg.ProxyAddress != "" {
			opts = append(opts, fetch.WithProxy(cfg.ProxyAddress))
		}
		if cfg.Cookie != "" {
			opts = append(opts, fetch.WithCookie(cfg.Cookie))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, fetch.WithHeaders(cfg.Headers))
		}
		hf, err := fetch.NewHTTPFetcher(opts...)
		if err != nil {
			return nil, err
		}
		f = hf
	}

	if cfg.CrawlDelay > 0 {
		f = fetch.NewDelayFetcher(f, cfg.CrawlDelay)
	}
	if cfg.RespectRobots {
		f = fetch.NewRobotsFetcher(f, cfg.UserAgent, logger)
	}
	return f, nil
}

// setupLogger creates the logger selected by cfg and makes it the default.
func setupLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	var logger *slog.Logger
	if cfg.JSONLog {
		logger = applog.NewJSONLogger(w, cfg.Verbose)
	} else {
		logger = applog.NewLogger(w, cfg.Verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// progressPrinter returns an observer that prints one line per page:
// "[i/n] url" when the total is known, "[i] url" while crawling.
func progressPrinter(w io.Writer) model.ProgressFunc {
	return func(p model.Progress) {
		elapsed := p.Elapsed.Round(time.Millisecond)
		switch {
		case p.Total > 0:
			fmt.Fprintf(w, "[%d/%d] %s (%.1f%%, %s)", p.Done, p.Total, p.URL, 100*p.Fraction(), elapsed)
		default:
			fmt.Fprintf(w, "[%d] %s (%s)", p.Done, p.URL, elapsed)
		}
		if p.Err != nil {
			fmt.Fprintf(w, " failed: %v", p.Err)
		}
		fmt.Fprintln(w)
	}
}

// printFailures lists skipped beers on w.
func printFailures(w io.Writer, failures []model.Failure) {
	if len(failures) == 0 {
		return
	}
	fmt.Fprintf(w, "%d beer(s) skipped:\n", len(failures))
	for _, f := range failures {
		fmt.Fprintf(w, "  %s [%s] %s\n", f.URL, f.Kind, f.Message)
	}
}

// seedArg returns the first positional argument or "".
func seedArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

// errAborted marks a run stopped by the abort-on-error policy, so the
// caller can hint at --skip-failures.
var errAborted = errors.New("run aborted; use --skip-failures to continue past failing beers")
