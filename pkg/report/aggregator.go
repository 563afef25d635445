package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Aggregator consumes exactly one order file and owns its FileSummary.
type Aggregator struct {
	path     string
	products ProductLookup
	opts     Options
	logger   *slog.Logger
}

// numberedLine carries a raw line to a line sub-worker.
type numberedLine struct {
	text string
	no   int
}

// NewAggregator creates an Aggregator for path. Missing dependencies in opts
// fall back to their defaults.
func NewAggregator(path string, products ProductLookup, opts Options) *Aggregator {
	opts = opts.withDefaults()
	return &Aggregator{
		path:     path,
		products: products,
		opts:     opts,
		logger:   slog.New(opts.Logger).With(slog.String("component", "aggregator"), slog.String("path", path)),
	}
}

// Run scans the file and returns its frozen summary. Per-line problems are
// counted and reported through hooks; an open or read failure ends the scan
// early and is stored in FileSummary.Err next to whatever was accumulated.
func (a *Aggregator) Run() FileSummary {
	startTime := time.Now()
	acc := newAccumulator(a.path)

	if hookErr := a.opts.Hooks.OnFileStarted(a.path); hookErr != nil {
		a.logger.Warn("OnFileStarted hook returned an error", slog.String("error", hookErr.Error()))
	}

	if err := a.scan(acc); err != nil {
		acc.fail(err)
		a.logger.Error("Order file stream failed", slog.String("error", err.Error()))
	}

	summary := acc.snapshot()
	duration := time.Since(startTime)
	a.opts.Metrics.FileCompleted(string(summary.Status()), duration)

	a.logger.Debug("Order file processed",
		slog.String("status", string(summary.Status())),
		slog.Int64("validLines", summary.ValidLines),
		slog.Int("rejectedLines", summary.TotalRejected()),
		slog.Duration("duration", duration),
	)

	if hookErr := a.opts.Hooks.OnFileCompleted(a.path, summary, duration); hookErr != nil {
		a.logger.Warn("OnFileCompleted hook returned an error", slog.String("error", hookErr.Error()))
	}
	return summary
}

// scan streams the file into acc. The returned error always wraps ErrFileStream.
func (a *Aggregator) scan(acc *accumulator) error {
	rc, err := a.opts.Opener(a.path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrFileStream, a.path, err)
	}
	defer rc.Close()

	utf8Reader, encName, err := a.opts.Decoder.NewReader(rc)
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrFileStream, a.path, err)
	}
	a.logger.Debug("Order file encoding detected", slog.String("encoding", encName))

	if a.opts.LineWorkers > 1 {
		err = a.scanParallel(utf8Reader, acc)
	} else {
		err = a.scanSequential(utf8Reader, acc)
	}
	if err != nil {
		return fmt.Errorf("%w: reading %s: %w", ErrFileStream, a.path, err)
	}
	return nil
}

func (a *Aggregator) newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

func (a *Aggregator) scanSequential(r io.Reader, acc *accumulator) error {
	scanner := a.newScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		a.handleLine(acc, scanner.Text(), lineNo)
	}
	return scanner.Err()
}

// scanParallel reads lines in file order and fans them out to LineWorkers
// sub-workers sharing acc. It returns only after every sub-worker is done.
func (a *Aggregator) scanParallel(r io.Reader, acc *accumulator) error {
	lines := make(chan numberedLine, lineQueueDepth*a.opts.LineWorkers)
	var wg sync.WaitGroup
	for i := 0; i < a.opts.LineWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for l := range lines {
				a.handleLine(acc, l.text, l.no)
			}
		}()
	}

	scanner := a.newScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		lines <- numberedLine{text: scanner.Text(), no: lineNo}
	}
	close(lines)
	wg.Wait()
	return scanner.Err()
}

// handleLine parses one line and applies or reports it.
func (a *Aggregator) handleLine(acc *accumulator, line string, lineNo int) {
	rec, err := ParseLine(line, lineNo, a.products)
	if err == nil {
		acc.apply(rec)
		a.opts.Metrics.LineAccepted()
		return
	}

	var lineErr *LineError
	if !errors.As(err, &lineErr) || errors.Is(err, ErrBlankLine) {
		return
	}

	acc.reject(lineErr.Reason)
	a.opts.Metrics.LineRejected(string(lineErr.Reason))
	a.logger.Warn("Skipping order line",
		slog.Int("lineNumber", lineNo),
		slog.String("line", line),
		slog.String("reason", string(lineErr.Reason)),
		slog.String("error", lineErr.Err.Error()),
	)
	if hookErr := a.opts.Hooks.OnLineRejected(a.path, lineErr); hookErr != nil {
		a.logger.Warn("OnLineRejected hook returned an error", slog.String("error", hookErr.Error()))
	}
}
