package ui

import (
	"errors"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stackvity/sales-report/internal/cli/hooks"
	"github.com/stackvity/sales-report/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestModel returns a sized model pre-populated with paths.
func newTestModel(width, height int, paths ...string) *Model {
	m := NewModel("v0.0.0-test", paths)
	m.width = width
	m.height = height
	listHeight := height - listHeightMargin
	if listHeight < 1 {
		listHeight = 1
	}
	m.list.SetSize(width, listHeight)
	m.initialized = true
	return &m
}

func update(t *testing.T, m *Model, msg tea.Msg) (*Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(*Model)
	require.True(t, ok)
	return updated, cmd
}

func TestNewModel_PrepopulatesPendingFiles(t *testing.T) {
	m := newTestModel(80, 25, "a.txt", "b.txt")
	require.Len(t, m.fileItems, 2)
	assert.Equal(t, 2, m.summary.TotalFiles)
	assert.Equal(t, report.StatusPending, m.fileItems[0].status)
	assert.Equal(t, 1, m.itemMap["b.txt"])
	assert.Len(t, m.list.Items(), 2)
	assert.Equal(t, phaseInitializing, m.phaseMessage)
}

func TestModel_Init(t *testing.T) {
	m := newTestModel(80, 25)
	cmd := m.Init()
	require.NotNil(t, cmd)
	_, ok := cmd().(spinner.TickMsg)
	assert.True(t, ok, "Init should return a command that produces spinner.TickMsg")
}

func TestModel_Update_Quit(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		t.Run(key, func(t *testing.T) {
			var msg tea.KeyMsg
			if key == "ctrl+c" {
				msg = tea.KeyMsg{Type: tea.KeyCtrlC}
			} else {
				msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
			}
			m, cmd := update(t, newTestModel(80, 25), msg)
			require.NotNil(t, cmd)
			assert.True(t, m.quitting)
			assert.Equal(t, tea.Quit(), cmd())
		})
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	m := NewModel("v1", nil)
	updated, cmd := update(t, &m, tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Nil(t, cmd)
	assert.True(t, updated.initialized)
	assert.Equal(t, 100, updated.width)
	assert.Equal(t, 30, updated.height)
	assert.Equal(t, 100, updated.list.Width())
	assert.Equal(t, 30-listHeightMargin, updated.list.Height())
}

func TestModel_Update_WindowSizeTooSmall(t *testing.T) {
	m := NewModel("v1", nil)
	updated, _ := update(t, &m, tea.WindowSizeMsg{Width: 20, Height: 2})
	assert.Equal(t, 1, updated.list.Height())
}

func TestModel_Update_FileStarted(t *testing.T) {
	m := newTestModel(80, 25, "a.txt")
	m, cmd := update(t, m, hooks.FileStartedMsg{Path: "a.txt"})

	require.NotNil(t, cmd, "A debounced list refresh should be scheduled")
	assert.True(t, m.updatePending)
	assert.Equal(t, report.StatusProcessing, m.fileItems[0].status)
	assert.Equal(t, phaseAggregating, m.phaseMessage)
	assert.Equal(t, 1, m.summary.TotalFiles, "Known paths are not counted twice")
}

func TestModel_Update_UnknownFileIsAdded(t *testing.T) {
	m := newTestModel(80, 25)
	m, _ = update(t, m, hooks.FileStartedMsg{Path: "late.txt"})
	require.Len(t, m.fileItems, 1)
	assert.Equal(t, 1, m.summary.TotalFiles)
}

func TestModel_Update_DebounceCoalesces(t *testing.T) {
	m := newTestModel(80, 25, "a.txt")
	m, first := update(t, m, hooks.FileStartedMsg{Path: "a.txt"})
	require.NotNil(t, first)

	m, second := update(t, m, hooks.LineRejectedMsg{Path: "a.txt", LineNumber: 2, Reason: report.RejectFormat})
	assert.Nil(t, second, "No second tick while one is pending")

	m, _ = update(t, m, UpdateListMsg{})
	assert.False(t, m.updatePending)
	item, ok := m.list.Items()[0].(listItem)
	require.True(t, ok)
	assert.Equal(t, 1, item.rejected)

	_, third := update(t, m, hooks.LineRejectedMsg{Path: "a.txt", LineNumber: 3, Reason: report.RejectFormat})
	assert.NotNil(t, third, "A new tick is scheduled after the refresh")
}

func TestModel_Update_LineRejected(t *testing.T) {
	m := newTestModel(80, 25, "a.txt")
	m, _ = update(t, m, hooks.LineRejectedMsg{Path: "a.txt", LineNumber: 2, Reason: report.RejectValidation})
	m, _ = update(t, m, hooks.LineRejectedMsg{Path: "a.txt", LineNumber: 5, Reason: report.RejectFormat})
	assert.Equal(t, 2, m.fileItems[0].rejected)
	assert.Equal(t, 2, m.summary.RejectedLines)
}

func TestModel_Update_FileCompleted(t *testing.T) {
	m := newTestModel(80, 25, "a.txt", "b.txt")

	m, _ = update(t, m, hooks.FileCompletedMsg{
		Path: "a.txt", Status: report.StatusSuccess, ValidLines: 7, Rejected: 1, Duration: 15 * time.Millisecond,
	})
	m, _ = update(t, m, hooks.FileCompletedMsg{
		Path: "b.txt", Status: report.StatusFailed, Message: "order file stream failed: gone",
	})

	assert.Equal(t, report.StatusSuccess, m.fileItems[0].status)
	assert.Equal(t, int64(7), m.fileItems[0].validLines)
	assert.Equal(t, 15*time.Millisecond, m.fileItems[0].duration)
	assert.Equal(t, report.StatusFailed, m.fileItems[1].status)
	assert.Equal(t, "order file stream failed: gone", m.fileItems[1].message)
	assert.Equal(t, 2, m.summary.CompletedCount)
	assert.Equal(t, 1, m.summary.FailedCount)
	assert.Equal(t, int64(7), m.summary.AcceptedLines)

	// A duplicate completion does not skew the counters.
	m, _ = update(t, m, hooks.FileCompletedMsg{Path: "a.txt", Status: report.StatusSuccess, ValidLines: 7})
	assert.Equal(t, 2, m.summary.CompletedCount)
	assert.Equal(t, int64(7), m.summary.AcceptedLines)
}

func TestModel_Update_RunComplete(t *testing.T) {
	m := newTestModel(80, 25, "a.txt", "b.txt")
	summaries := []report.FileSummary{
		{Path: "a.txt", ValidLines: 4, RejectedLines: map[report.RejectReason]int{report.RejectFormat: 2}},
		{Path: "b.txt", Err: errors.New("boom")},
	}

	m, cmd := update(t, m, hooks.RunCompleteMsg{Summaries: summaries})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, phaseComplete, m.phaseMessage)
	assert.Equal(t, 2, m.summary.CompletedCount)
	assert.Equal(t, 1, m.summary.FailedCount)
	assert.Equal(t, int64(4), m.summary.AcceptedLines)
	assert.Equal(t, 2, m.summary.RejectedLines)
}

func TestModel_Update_SpinnerStopsWhenComplete(t *testing.T) {
	m := newTestModel(80, 25)
	m.phaseMessage = phaseComplete
	_, cmd := update(t, m, m.spinner.Tick())
	assert.Nil(t, cmd)
}

func TestModel_Update_KeysIgnoredWhileQuitting(t *testing.T) {
	m := newTestModel(80, 25)
	m.quitting = true
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
}

func TestFormatDuration(t *testing.T) {
	testCases := []struct {
		in       time.Duration
		expected string
	}{
		{0, ""},
		{500 * time.Microsecond, "500µs"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.50s"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, formatDuration(tc.in))
	}
}
