package hooks

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stackvity/sales-report/pkg/report"
)

// --- TUI Message Structs ---

// FileStartedMsg signals that an Aggregator began reading a file.
type FileStartedMsg struct{ Path string }

// LineRejectedMsg signals that an order line was skipped.
type LineRejectedMsg struct {
	Path       string
	LineNumber int
	Reason     report.RejectReason
}

// FileCompletedMsg signals that an Aggregator finished its file.
type FileCompletedMsg struct {
	Path       string
	Status     report.Status
	ValidLines int64
	Rejected   int
	Message    string // Stream error, empty on success
	Duration   time.Duration
}

// RunCompleteMsg signals that every Aggregator has joined.
type RunCompleteMsg struct{ Summaries []report.FileSummary }

// --- Hook Implementation ---

// CLIHooks implements the report.Hooks interface, bridging library events
// to the CLI's UI layer (TUI or logger).
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram // Decoupled TUI program interface
}

// TUIProgram defines the interface needed to interact with the Bubble Tea program.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg tea.Msg) {}

// NewCLIHooks creates a new CLIHooks instance.
// Pass nil for tuiProgram if not applicable; a NoOp version will be used.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram) report.Hooks {
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
	}
}

// OnFileStarted handles the start of one file's aggregation.
func (h *CLIHooks) OnFileStarted(path string) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(FileStartedMsg{Path: path})
	} else if h.verboseEnabled {
		h.logger.Debug("Order file started", slog.String("path", path))
	}
	return nil // Library ignores hook errors
}

// OnLineRejected forwards a rejection to the TUI. The Aggregator already
// logs every rejection, so nothing is logged here.
func (h *CLIHooks) OnLineRejected(path string, rejection *report.LineError) error {
	if h.tuiEnabled && rejection != nil {
		h.tuiProgram.Send(LineRejectedMsg{Path: path, LineNumber: rejection.LineNumber, Reason: rejection.Reason})
	}
	return nil
}

// OnFileCompleted handles the end of one file's aggregation.
// This method MUST be thread-safe.
func (h *CLIHooks) OnFileCompleted(path string, summary report.FileSummary, duration time.Duration) error {
	msg := FileCompletedMsg{
		Path:       path,
		Status:     summary.Status(),
		ValidLines: summary.ValidLines,
		Rejected:   summary.TotalRejected(),
		Duration:   duration,
	}
	if summary.Err != nil {
		msg.Message = summary.Err.Error()
	}

	if h.tuiEnabled {
		h.tuiProgram.Send(msg)
		return nil
	}

	if h.verboseEnabled {
		logLevel := slog.LevelInfo
		attrs := []any{
			slog.String("path", path),
			slog.String("status", string(msg.Status)),
			slog.Int64("validLines", msg.ValidLines),
			slog.Int("rejectedLines", msg.Rejected),
			slog.Duration("duration", duration),
		}
		if msg.Message != "" {
			logLevel = slog.LevelError
			attrs = append(attrs, slog.String("error", msg.Message))
		}
		h.logger.Log(context.Background(), logLevel, "Order file completed", attrs...)
	}
	return nil
}

// OnRunComplete sends the final summaries to the TUI.
func (h *CLIHooks) OnRunComplete(summaries []report.FileSummary) error {
	if h.tuiEnabled {
		h.tuiProgram.Send(RunCompleteMsg{Summaries: summaries})
	}
	return nil
}
