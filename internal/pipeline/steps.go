package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/brewcrawl/internal/crawler"
	"github.com/nao1215/brewcrawl/internal/dataset"
	"github.com/nao1215/brewcrawl/internal/document"
	"github.com/nao1215/brewcrawl/internal/extract"
	"github.com/nao1215/brewcrawl/internal/fetch"
	"github.com/nao1215/brewcrawl/internal/link"
	"github.com/nao1215/brewcrawl/internal/model"
	"github.com/nao1215/brewcrawl/internal/report"
)

// ErrNoDataset is returned by steps that need an extracted dataset when
// the run has none.
var ErrNoDataset = errors.New("run has no dataset")

// LinkCrawler discovers the beer links of a brewery.
type LinkCrawler interface {
	Crawl(ctx context.Context, seedURL string) ([]string, error)
}

// DatasetBuilder extracts records for a list of beer links.
type DatasetBuilder interface {
	Build(ctx context.Context, beerURLs []string) (*model.Dataset, []model.Failure, error)
}

// RunStore saves finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.Run) error
}

// CrawlStep discovers the beer links of the seed brewery and stores them
// in run.BeerURLs. It also sets run.BreweryName from the seed URL, which
// the history database uses to filter runs by brewery.
//
// A crawl either succeeds completely or fails: a page that cannot be
// fetched or parsed aborts the step and run.BeerURLs stays empty.
type CrawlStep struct {
	crawler LinkCrawler
	logger  *slog.Logger
}

// NewCrawlStep creates a crawl step.
func NewCrawlStep(c LinkCrawler, logger *slog.Logger) *CrawlStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &CrawlStep{crawler: c, logger: logger}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do executes the crawl step.
func (s *CrawlStep) Do(ctx context.Context, run *model.Run) error {
	if name, err := link.ExtractBreweryName(run.SeedURL); err == nil {
		run.BreweryName = name
	}

	urls, err := s.crawler.Crawl(ctx, run.SeedURL)
	if err != nil {
		return err
	}
	run.BeerURLs = urls

	s.logger.Info("crawl completed",
		"brewery", run.BreweryName,
		"beer_links", len(urls),
	)
	return nil
}

// ExtractStep extracts a record for every link in run.BeerURLs and stores
// the result in run.Dataset.
//
// The error policy belongs to the DatasetBuilder. Under the abort policy
// the first failing beer stops the step and run.Dataset stays nil, so the
// WriteStep that follows has nothing to write. Under the skip policy
// failing beers are left out and listed in run.Failures.
type ExtractStep struct {
	builder DatasetBuilder
	logger  *slog.Logger
}

// NewExtractStep creates an extract step.
func NewExtractStep(b DatasetBuilder, logger *slog.Logger) *ExtractStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractStep{builder: b, logger: logger}
}

// Name returns the step name.
func (s *ExtractStep) Name() string {
	return "extract"
}

// Do executes the extract step. Failures collected before an abort are
// kept on the run.
func (s *ExtractStep) Do(ctx context.Context, run *model.Run) error {
	start := time.Now()
	ds, failures, err := s.builder.Build(ctx, run.BeerURLs)
	run.Failures = failures
	if err != nil {
		return err
	}
	run.Dataset = ds

	s.logger.Info("extraction completed",
		"records", ds.Len(),
		"failures", len(failures),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// UnionStep fills every record with the union of all field names and
// stores the result in run.Records. Missing fields get the sentinel and
// every record gains a "url" field holding its beer URL. The raw dataset
// is left unchanged.
type UnionStep struct {
	sentinel string
}

// NewUnionStep creates a union step that fills missing fields with sentinel.
func NewUnionStep(sentinel string) *UnionStep {
	return &UnionStep{sentinel: sentinel}
}

// Name returns the step name.
func (s *UnionStep) Name() string {
	return "union"
}

// Do executes the union step.
func (s *UnionStep) Do(_ context.Context, run *model.Run) error {
	if run.Dataset == nil {
		return fmt.Errorf("union: %w", ErrNoDataset)
	}
	run.Records = dataset.UnionSchema(run.Dataset, s.sentinel)
	return nil
}

// WriteStep writes the run's outputs to JSON files. An empty path skips
// that file.
//
// Files are written atomically: each is encoded in full, written to a
// temporary file in the target directory and renamed into place. A
// reader never sees a partial file, and a failed write leaves the previous
// file intact.
type WriteStep struct {
	linksPath  string
	rawPath    string
	outputPath string
	logger     *slog.Logger
}

// NewWriteStep creates a write step for the links file, the raw dataset
// and the formatted dataset.
func NewWriteStep(linksPath, rawPath, outputPath string, logger *slog.Logger) *WriteStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &WriteStep{
		linksPath:  linksPath,
		rawPath:    rawPath,
		outputPath: outputPath,
		logger:     logger,
	}
}

// Name returns the step name.
func (s *WriteStep) Name() string {
	return "write"
}

// Do executes the write step.
func (s *WriteStep) Do(_ context.Context, run *model.Run) error {
	if s.linksPath != "" {
		if err := report.WriteLinks(s.linksPath, run.BeerURLs); err != nil {
			return err
		}
		s.logger.Info("wrote beer links", "path", s.linksPath, "count", len(run.BeerURLs))
	}

	if s.rawPath != "" {
		if run.Dataset == nil {
			return fmt.Errorf("write %s: %w", s.rawPath, ErrNoDataset)
		}
		if err := report.WriteDataset(s.rawPath, run.Dataset); err != nil {
			return err
		}
		s.logger.Info("wrote raw dataset", "path", s.rawPath, "records", run.Dataset.Len())
	}

	if s.outputPath != "" {
		if run.Records == nil {
			return fmt.Errorf("write %s: %w", s.outputPath, ErrNoDataset)
		}
		if err := report.WriteRecords(s.outputPath, run.Records); err != nil {
			return err
		}
		s.logger.Info("wrote dataset", "path", s.outputPath, "records", len(run.Records))
	}
	return nil
}

// SummaryStep writes a Markdown summary of the run.
type SummaryStep struct {
	path     string
	sentinel string
}

// NewSummaryStep creates a summary step writing to path.
func NewSummaryStep(path, sentinel string) *SummaryStep {
	return &SummaryStep{path: path, sentinel: sentinel}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do executes the summary step.
func (s *SummaryStep) Do(_ context.Context, run *model.Run) error {
	var buf bytes.Buffer
	if _, err := report.NewMarkdownWriter(&buf, s.sentinel).Write(run); err != nil {
		return fmt.Errorf("summary: %w", err)
	}
	return report.WriteFileAtomic(s.path, buf.Bytes())
}

// PersistStep saves the run in the history store. It is the last step of
// DefaultPipeline when a store is configured. Runs that fail earlier never
// reach it; the CLI saves those itself so the history also lists failed
// runs.
type PersistStep struct {
	store RunStore
	now   func() time.Time
}

// NewPersistStep creates a persist step.
func NewPersistStep(store RunStore) *PersistStep {
	return &PersistStep{store: store, now: time.Now}
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persist step. The run is stamped as finished first,
// since persisting is the last step.
func (s *PersistStep) Do(ctx context.Context, run *model.Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = s.now().UTC()
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("persist run: %w", err)
	}
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
// Zero values mean: no page or beer limit, abort on the first failing
// beer, the default sentinel, no output files, no summary, no store.
type DefaultPipelineConfig struct {
	// BaseURL is the origin relative links are resolved against.
	BaseURL string

	// MaxPages limits the brewery pages crawled. 0 means no limit.
	MaxPages int

	// MaxCount limits the beer pages extracted. 0 means all.
	MaxCount int

	// SkipFailures records failing beers instead of aborting.
	SkipFailures bool

	// Sentinel fills fields a record lacks.
	Sentinel string

	// LinksPath, RawPath and OutputPath are the JSON outputs. Empty
	// paths are not written.
	LinksPath  string
	RawPath    string
	OutputPath string

	// SummaryPath is the Markdown summary. Empty means no summary.
	SummaryPath string

	// Store receives the finished run. Nil disables history.
	Store RunStore

	// Observer receives progress events of the crawl and extract stages.
	Observer model.ProgressFunc

	// Logger is passed to every component.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineBaseURL sets the origin relative links are resolved against.
func WithPipelineBaseURL(baseURL string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.BaseURL = baseURL
	}
}

// WithPipelineMaxPages limits the brewery pages crawled.
func WithPipelineMaxPages(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxPages = n
	}
}

// WithPipelineMaxCount limits the beer pages extracted.
func WithPipelineMaxCount(n int) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.MaxCount = n
	}
}

// WithPipelineSkipFailures switches extraction to the skip policy.
func WithPipelineSkipFailures(skip bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SkipFailures = skip
	}
}

// WithPipelineSentinel sets the missing-value sentinel.
func WithPipelineSentinel(sentinel string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Sentinel = sentinel
	}
}

// WithPipelineOutputs sets the JSON output paths.
func WithPipelineOutputs(linksPath, rawPath, outputPath string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.LinksPath = linksPath
		c.RawPath = rawPath
		c.OutputPath = outputPath
	}
}

// WithPipelineSummary writes a Markdown summary to path.
func WithPipelineSummary(path string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.SummaryPath = path
	}
}

// WithPipelineStore saves the finished run in store.
func WithPipelineStore(store RunStore) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Store = store
	}
}

// WithPipelineObserver registers a progress callback.
func WithPipelineObserver(fn model.ProgressFunc) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Observer = fn
	}
}

// WithPipelineLogger sets the logger handed to every component.
func WithPipelineLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates the full crawl-to-dataset pipeline over fetcher.
//
// The steps are, in order: crawl, extract, union, write, then summary and
// persist when configured. The crawler, extractor and builder share the
// same fetcher, so politeness delays and robots.txt rules configured on it
// apply to every request of the run.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts pipeline config options (WithPipelineMaxCount, etc).
func DefaultPipeline(fetcher fetch.Fetcher, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{
		BaseURL:  link.DefaultBaseURL,
		Sentinel: model.DefaultSentinel,
		Logger:   p.logger,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	parser := document.NewHTMLParser()

	beerCrawler := crawler.New(fetcher, parser, cfg.BaseURL,
		crawler.WithMaxPages(cfg.MaxPages),
		crawler.WithObserver(cfg.Observer),
		crawler.WithLogger(cfg.Logger),
	)

	extractor := extract.New(fetcher, parser, cfg.BaseURL, extract.WithLogger(cfg.Logger))

	policy := dataset.AbortOnError
	if cfg.SkipFailures {
		policy = dataset.SkipOnError
	}
	builder := dataset.New(extractor,
		dataset.WithMaxCount(cfg.MaxCount),
		dataset.WithPolicy(policy),
		dataset.WithObserver(cfg.Observer),
		dataset.WithLogger(cfg.Logger),
	)

	p.AddSteps(
		NewCrawlStep(beerCrawler, cfg.Logger),
		NewExtractStep(builder, cfg.Logger),
		NewUnionStep(cfg.Sentinel),
		NewWriteStep(cfg.LinksPath, cfg.RawPath, cfg.OutputPath, cfg.Logger),
	)
	if cfg.SummaryPath != "" {
		p.AddStep(NewSummaryStep(cfg.SummaryPath, cfg.Sentinel))
	}
	if cfg.Store != nil {
		p.AddStep(NewPersistStep(cfg.Store))
	}
	return p
}
