package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stackvity/sales-report/internal/cli/config"
	"github.com/stackvity/sales-report/internal/cli/hooks"
	"github.com/stackvity/sales-report/internal/cli/ui"
	"github.com/stackvity/sales-report/pkg/report"
	"github.com/stackvity/sales-report/pkg/report/catalog"
	"github.com/stackvity/sales-report/pkg/report/encoding"
	"github.com/stackvity/sales-report/pkg/report/metrics"
	tmpl "github.com/stackvity/sales-report/pkg/report/template"
)

// Run orchestrates one reporting run after configuration loading: it loads
// the catalog, aggregates every order file, and prints the reports to stdout.
// Only catalog failures and cancellation before fan-out are returned as errors;
// per-file failures appear in their report block and in the log.
func Run(ctx context.Context, opts config.Options, logger *slog.Logger) error {
	return run(ctx, opts, logger, os.Stdout, os.Stderr)
}

func run(ctx context.Context, opts config.Options, logger *slog.Logger, stdout, stderr io.Writer) error {
	// Buffered logs are flushed once the TUI has released the terminal.
	defer flushLogBuffer(opts, stderr)

	products, err := catalog.Load(opts.Catalog, catalog.LoadOptions{
		MaxProducts: opts.MaxProducts,
		Decoder:     encoding.NewCharsetDecoder(opts.DefaultEncoding),
		Logger:      opts.LogHandler,
	})
	if err != nil {
		logger.Error("Failed to load product catalog", slog.String("path", opts.Catalog), slog.String("error", err.Error()))
		return err
	}
	logger.Debug("Product catalog loaded", slog.String("path", opts.Catalog), slog.Int("products", products.Len()))

	registry := metrics.NewRegistry()

	// --- Optional TUI ---
	var program *tea.Program
	tuiDone := make(chan error, 1)
	if opts.TuiEnabled {
		model := ui.NewModel(opts.AppVersion, opts.OrderPaths)
		program = tea.NewProgram(&model, tea.WithOutput(stderr))
		go func() {
			_, runErr := program.Run()
			tuiDone <- runErr
		}()
	}
	var tuiProgram hooks.TUIProgram
	if program != nil {
		tuiProgram = program
	}

	reportOpts := opts.ReportOptions()
	reportOpts.Hooks = hooks.NewCLIHooks(logger, opts.TuiEnabled, opts.Verbose, tuiProgram)
	reportOpts.Metrics = registry

	coordinator, err := report.NewCoordinator(products, reportOpts)
	if err != nil {
		stopTUI(program, tuiDone)
		logger.Error("Invalid run options", slog.String("error", err.Error()))
		return err
	}

	summaries, err := coordinator.Run(ctx, opts.OrderPaths)
	if err != nil {
		stopTUI(program, tuiDone)
		logger.Warn("Run cancelled before any order file was read", slog.String("error", err.Error()))
		return err
	}

	if program != nil {
		// RunCompleteMsg makes the model quit on its own.
		if tuiErr := <-tuiDone; tuiErr != nil && !errors.Is(tuiErr, tea.ErrProgramKilled) {
			logger.Warn("Terminal UI exited with error", slog.String("error", tuiErr.Error()))
		}
	}

	if err := tmpl.RenderAll(stdout, opts.Template, summaries); err != nil {
		logger.Error("Failed to render reports", slog.String("error", err.Error()))
		return err
	}

	if opts.MetricsFile != "" {
		if err := registry.WriteTextfile(opts.MetricsFile); err != nil {
			// Metrics export never fails a run whose reports were printed.
			logger.Warn("Metrics export failed", slog.String("path", opts.MetricsFile), slog.String("error", err.Error()))
		} else {
			logger.Debug("Metrics written", slog.String("path", opts.MetricsFile))
		}
	}

	failed := 0
	for _, s := range summaries {
		if s.Err != nil {
			failed++
		}
	}
	logger.Info("Run complete",
		slog.Int("files", len(summaries)),
		slog.Int("failed", failed),
	)
	return nil
}

// stopTUI shuts down a running program and waits for it to exit.
func stopTUI(program *tea.Program, done <-chan error) {
	if program == nil {
		return
	}
	program.Quit()
	<-done
}

func flushLogBuffer(opts config.Options, stderr io.Writer) {
	if opts.LogBuffer == nil || opts.LogBuffer.Len() == 0 {
		return
	}
	if _, err := io.Copy(stderr, opts.LogBuffer); err != nil {
		fmt.Fprintf(stderr, "failed to flush buffered logs: %v\n", err)
	}
}
