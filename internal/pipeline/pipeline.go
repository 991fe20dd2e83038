package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/brewcrawl/internal/model"
)

// Step is one stage of a run. Steps are executed in sequence and share a
// single *model.Run: each step reads what earlier steps left on the run
// (seed, beer links, dataset, records) and adds its own output.
//
// A step is an interface rather than a function so that it can carry its
// own configuration (output paths, sentinel, store) and report a Name for
// logging and for run.PerformedSteps, which the history database keeps.
type Step interface {
	// Do executes the step. A returned error stops the pipeline unless it
	// was created with WithContinueOnError. Per-beer failures that the
	// run tolerates belong in run.Failures instead.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging and run history.
	Name() string
}

// Pipeline orchestrates the execution of multiple steps.
// It holds an ordered list of steps and runs them one after another on the
// same goroutine; there is no concurrency between steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// continueOnError determines whether later steps still run after one
	// fails. If false, the pipeline stops on the first error.
	continueOnError bool

	// now stamps run.FinishedAt.
	now func() time.Time
}

// Option is a function that configures a Pipeline.
// This follows the functional options pattern used throughout brewcrawl.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing later steps after one fails.
// The first error is still recorded on the run, but Execute returns nil
// and callers inspect run.Err.
//
// The default stops on the first error. A failed crawl leaves no links to
// extract, and an aborted extraction must not produce dataset files, so
// DefaultPipeline never enables this option. It is meant for pipelines
// whose steps are independent, such as re-writing reports from a stored
// run.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep or AddSteps after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
		now:   time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all steps in sequence and logs each step's execution.
//
// Cancellation is checked before each step. Long-running steps (crawl and
// extract) also check ctx between pages, so a cancelled run stops within
// one request. A step is appended to run.PerformedSteps when it completes,
// or when it fails under WithContinueOnError.
//
// run.FinishedAt is stamped when Execute returns, unless a step already
// did (PersistStep stamps it before saving so the stored row is complete).
//
// Execute returns the first error when continueOnError is false, or nil
// otherwise. In both cases the first error is stored in run.Err and
// run.ErrorMessage, which run.Status reports.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	defer func() {
		if run.FinishedAt.IsZero() {
			run.FinishedAt = p.now().UTC()
		}
	}()

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", err,
			)
			p.fail(run, err)
			return err
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"seed", run.SeedURL,
		)

		if err := step.Do(ctx, run); err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"seed", run.SeedURL,
				"error", err,
			)
			p.fail(run, err)
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step completed",
				"step", step.Name(),
				"seed", run.SeedURL,
			)
		}

		run.PerformedSteps = append(run.PerformedSteps, step.Name())
	}
	return nil
}

func (p *Pipeline) fail(run *model.Run, err error) {
	if run.Err != nil {
		return
	}
	run.Err = err
	run.ErrorMessage = err.Error()
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
