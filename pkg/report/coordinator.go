package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// AggregatorFactory creates the Aggregator for one path. Tests replace it to
// observe or delay individual files.
type AggregatorFactory func(path string, products ProductLookup, opts Options) FileAggregator

// FileAggregator is the unit of work the Coordinator runs once per path.
type FileAggregator interface {
	Run() FileSummary
}

// Coordinator fans out one Aggregator per order file and joins them all.
type Coordinator struct {
	products ProductLookup
	opts     Options
	logger   *slog.Logger
	factory  AggregatorFactory
}

// NewCoordinator validates opts and returns a Coordinator sharing products
// read-only with every Aggregator it starts.
func NewCoordinator(products ProductLookup, opts Options) (*Coordinator, error) {
	if products == nil {
		return nil, fmt.Errorf("%w: product catalog cannot be nil", ErrConfigValidation)
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	return &Coordinator{
		products: products,
		opts:     opts,
		logger:   slog.New(opts.Logger).With(slog.String("component", "coordinator")),
		factory:  defaultAggregatorFactory,
	}, nil
}

func defaultAggregatorFactory(path string, products ProductLookup, opts Options) FileAggregator {
	return NewAggregator(path, products, opts)
}

// WithAggregatorFactory replaces the factory used to build per-file Aggregators.
func (c *Coordinator) WithAggregatorFactory(f AggregatorFactory) *Coordinator {
	if f != nil {
		c.factory = f
	}
	return c
}

// Run processes every path concurrently and returns the summaries in paths
// order regardless of completion order. A context cancelled before fan-out
// returns ctx.Err(); once started, Aggregators always run to completion.
// Per-file failures are reported in FileSummary.Err and never fail Run.
func (c *Coordinator) Run(ctx context.Context, paths []string) ([]FileSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startTime := time.Now()
	c.logger.Info("Starting report run",
		slog.Int("files", len(paths)),
		slog.Int("maxParallelFiles", c.opts.MaxParallelFiles),
		slog.Int("lineWorkers", c.opts.LineWorkers),
	)

	summaries := make([]FileSummary, len(paths))
	var g errgroup.Group
	if c.opts.MaxParallelFiles > 0 {
		g.SetLimit(c.opts.MaxParallelFiles)
	}
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			summaries[i] = c.factory(path, c.products, c.opts).Run()
			return nil
		})
	}
	// The join is the happens-before edge for reading summaries.
	_ = g.Wait()

	failed := 0
	for _, s := range summaries {
		if s.Err != nil {
			failed++
		}
	}
	c.logger.Info("Report run finished",
		slog.Duration("duration", time.Since(startTime)),
		slog.Int("files", len(summaries)),
		slog.Int("failedFiles", failed),
	)

	if hookErr := c.opts.Hooks.OnRunComplete(summaries); hookErr != nil {
		c.logger.Warn("OnRunComplete hook returned an error", slog.String("error", hookErr.Error()))
	}
	return summaries, nil
}
