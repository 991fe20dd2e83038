package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/brewcrawl/internal/model"
)

// Policy decides what Build does when a URL fails.
type Policy int

const (
	// AbortOnError stops at the first failure and returns no dataset.
	AbortOnError Policy = iota

	// SkipOnError records the failure and continues with the next URL.
	SkipOnError
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case AbortOnError:
		return "abort"
	case SkipOnError:
		return "skip"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Extractor produces the record for one beer URL.
type Extractor interface {
	Extract(ctx context.Context, beerURL string) (*model.Record, error)
}

// Builder drives an Extractor over a list of beer URLs.
type Builder struct {
	extractor Extractor
	maxCount  int
	policy    Policy
	observer  model.ProgressFunc
	logger    *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxCount limits the number of URLs attempted. Failed attempts count.
// 0 or a negative value means all URLs.
func WithMaxCount(n int) Option {
	return func(b *Builder) {
		b.maxCount = n
	}
}

// WithPolicy sets the error policy. The default is AbortOnError.
func WithPolicy(p Policy) Option {
	return func(b *Builder) {
		b.policy = p
	}
}

// WithObserver registers a callback invoked after every attempted URL.
func WithObserver(fn model.ProgressFunc) Option {
	return func(b *Builder) {
		b.observer = fn
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// New returns a Builder that uses extractor for every URL.
func New(extractor Extractor, opts ...Option) *Builder {
	b := &Builder{
		extractor: extractor,
		policy:    AbortOnError,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build extracts records for beerURLs in order.
//
// With AbortOnError the first failure is returned and the dataset is nil.
// With SkipOnError failing URLs are left out of the dataset and returned
// as failures. Cancellation of ctx always aborts. A URL listed twice is
// extracted twice and the later record wins.
func (b *Builder) Build(ctx context.Context, beerURLs []string) (*model.Dataset, []model.Failure, error) {
	total := len(beerURLs)
	if b.maxCount > 0 && b.maxCount < total {
		total = b.maxCount
	}

	start := time.Now()
	ds := model.NewDataset()
	var failures []model.Failure

	for i, u := range beerURLs[:total] {
		if err := ctx.Err(); err != nil {
			return nil, failures, err
		}

		record, err := b.extractor.Extract(ctx, u)
		if err != nil {
			if ctx.Err() != nil || b.policy == AbortOnError {
				return nil, failures, fmt.Errorf("build dataset: %w", err)
			}
			f := model.Failure{URL: u, Kind: ClassifyError(err), Message: err.Error()}
			failures = append(failures, f)
			b.logger.Warn("skipping beer", "url", u, "kind", f.Kind, "error", err)
		} else {
			ds.Put(u, record)
		}

		b.notify(model.Progress{
			Stage:   model.StageExtract,
			URL:     u,
			Done:    i + 1,
			Total:   total,
			Elapsed: time.Since(start),
			Err:     err,
		})
	}

	b.logger.Info("extraction finished",
		"attempted", total,
		"records", ds.Len(),
		"failures", len(failures),
		"elapsed", time.Since(start).Round(10*time.Millisecond))

	return ds, failures, nil
}

func (b *Builder) notify(p model.Progress) {
	b.logger.Debug("beer processed",
		"url", p.URL,
		"done", p.Done,
		"total", p.Total,
		"fraction", fmt.Sprintf("%.3f", p.Fraction()))
	if b.observer != nil {
		b.observer(p)
	}
}
