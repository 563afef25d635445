package report

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/stackvity/sales-report/pkg/report/encoding"
)

// Hooks defines callbacks for status updates during a run.
// Implementations MUST be thread-safe as methods are called from every Aggregator concurrently.
type Hooks interface {
	OnFileStarted(path string) error
	OnLineRejected(path string, rejection *LineError) error
	OnFileCompleted(path string, summary FileSummary, duration time.Duration) error
	OnRunComplete(summaries []FileSummary) error
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks interface.
type NoOpHooks struct{}

// OnFileStarted implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileStarted(path string) error { return nil }

// OnLineRejected implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnLineRejected(path string, rejection *LineError) error { return nil }

// OnFileCompleted implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnFileCompleted(path string, summary FileSummary, duration time.Duration) error {
	return nil
}

// OnRunComplete implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnRunComplete(summaries []FileSummary) error { return nil }

// MetricsRecorder receives per-line and per-file counters. Implementations MUST be thread-safe.
type MetricsRecorder interface {
	LineAccepted()
	LineRejected(reason string)
	FileCompleted(status string, duration time.Duration)
}

// NoOpMetrics discards every observation.
type NoOpMetrics struct{}

// LineAccepted implements MetricsRecorder.
func (NoOpMetrics) LineAccepted() {}

// LineRejected implements MetricsRecorder.
func (NoOpMetrics) LineRejected(string) {}

// FileCompleted implements MetricsRecorder.
func (NoOpMetrics) FileCompleted(string, time.Duration) {}

// FileOpener opens an order file for sequential reading.
type FileOpener func(path string) (io.ReadCloser, error)

// OSFileOpener opens files from the local filesystem.
func OSFileOpener(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Options holds the runtime settings of a Coordinator and its Aggregators.
type Options struct {
	// --- Concurrency ---
	MaxParallelFiles int `mapstructure:"maxParallelFiles"` // 0 = one goroutine per file, no limit
	LineWorkers      int `mapstructure:"lineWorkers"`      // Sub-workers per file (1 = sequential)

	// --- Injected Dependencies ---
	Logger  slog.Handler     `mapstructure:"-"` // Required: Logging backend
	Hooks   Hooks            `mapstructure:"-"` // Optional: defaults to NoOpHooks
	Metrics MetricsRecorder  `mapstructure:"-"` // Optional: defaults to NoOpMetrics
	Opener  FileOpener       `mapstructure:"-"` // Optional: defaults to OSFileOpener (testing)
	Decoder encoding.Decoder `mapstructure:"-"` // Optional: defaults to a charset decoder
}

// withDefaults returns a copy of opts with every optional dependency populated.
func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.NewTextHandler(io.Discard, nil)
	}
	if o.Hooks == nil {
		o.Hooks = &NoOpHooks{}
	}
	if o.Metrics == nil {
		o.Metrics = NoOpMetrics{}
	}
	if o.Opener == nil {
		o.Opener = OSFileOpener
	}
	if o.Decoder == nil {
		o.Decoder = encoding.NewCharsetDecoder("")
	}
	if o.LineWorkers == 0 {
		o.LineWorkers = DefaultLineWorkers
	}
	return o
}

// validate rejects settings no Coordinator can run with.
func (o Options) validate() error {
	if o.MaxParallelFiles < 0 {
		return fmt.Errorf("%w: maxParallelFiles cannot be negative (got %d)", ErrConfigValidation, o.MaxParallelFiles)
	}
	if o.LineWorkers < 0 {
		return fmt.Errorf("%w: lineWorkers cannot be negative (got %d)", ErrConfigValidation, o.LineWorkers)
	}
	return nil
}
