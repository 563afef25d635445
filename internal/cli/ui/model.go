package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stackvity/sales-report/internal/cli/hooks" // Import hooks for message types
	"github.com/stackvity/sales-report/pkg/report"
)

// --- Constants ---

const listHeightMargin = 4 // Header, footer and padding

const (
	phaseInitializing = "Initializing..."
	phaseAggregating  = "Aggregating..."
	phaseComplete     = "Complete"
)

// --- Model Struct ---

// Model represents the state of the TUI application.
// It holds UI components (list, spinner), layout dimensions, run phase,
// aggregated counters, and one list entry per order file.
type Model struct {
	list        list.Model
	spinner     spinner.Model
	width       int
	height      int
	initialized bool
	version     string
	// fileItems holds one entry per order file, in first-seen order.
	fileItems []listItem
	// itemMap maps file paths to their index in fileItems.
	itemMap      map[string]int
	summary      Summary
	phaseMessage string
	quitting     bool
	// updatePending is set while a list refresh tick is scheduled.
	updatePending bool
}

// listItem represents a single order file in the TUI list.
type listItem struct {
	path       string
	status     report.Status
	validLines int64
	rejected   int
	message    string // Stream error for failed files
	duration   time.Duration
}

// Summary holds the aggregated statistics displayed in the TUI footer.
type Summary struct {
	TotalFiles     int
	CompletedCount int
	FailedCount    int
	AcceptedLines  int64
	RejectedLines  int
	StartTime      time.Time
}

// --- Bubble Tea Interface Implementations ---

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages (user input, hook events) and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting || m.phaseMessage == phaseComplete {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	// --- Custom Messages from Library Hooks ---
	case hooks.FileStartedMsg:
		item := m.item(msg.Path)
		item.status = report.StatusProcessing
		m.phaseMessage = phaseAggregating
		cmds = append(cmds, m.scheduleListUpdate())

	case hooks.LineRejectedMsg:
		item := m.item(msg.Path)
		item.rejected++
		m.summary.RejectedLines++
		cmds = append(cmds, m.scheduleListUpdate())

	case hooks.FileCompletedMsg:
		item := m.item(msg.Path)
		if !isFinalStatus(item.status) {
			m.summary.CompletedCount++
			if msg.Status == report.StatusFailed {
				m.summary.FailedCount++
			}
			m.summary.AcceptedLines += msg.ValidLines
		}
		item.status = msg.Status
		item.validLines = msg.ValidLines
		item.rejected = msg.Rejected
		item.message = msg.Message
		item.duration = msg.Duration
		cmds = append(cmds, m.scheduleListUpdate())

	case hooks.RunCompleteMsg:
		m.phaseMessage = phaseComplete
		var rejected int
		var accepted int64
		failed := 0
		for _, s := range msg.Summaries {
			rejected += s.TotalRejected()
			accepted += s.ValidLines
			if s.Err != nil {
				failed++
			}
		}
		// Final counts come from the frozen summaries.
		m.summary.CompletedCount = len(msg.Summaries)
		m.summary.FailedCount = failed
		m.summary.AcceptedLines = accepted
		m.summary.RejectedLines = rejected
		m.refreshList()
		return m, tea.Quit

	case UpdateListMsg:
		m.updatePending = false
		m.refreshList()
	}

	return m, tea.Batch(cmds...)
}

// View renders the current state of the TUI model.
func (m *Model) View() string {
	if m.quitting {
		return "Exiting...\n"
	}
	if !m.initialized {
		return phaseInitializing
	}

	// --- Header ---
	headerLeft := fmt.Sprintf("Sales Report %s", m.version)
	headerRight := m.phaseMessage
	if m.phaseMessage != phaseComplete && m.phaseMessage != phaseInitializing {
		headerRight = m.spinner.View() + " " + m.phaseMessage
	}
	headerCenter := ""
	headerWidth := m.width - lipgloss.Width(headerLeft) - lipgloss.Width(headerRight)
	if headerWidth > 0 {
		headerCenter = lipgloss.PlaceHorizontal(headerWidth, lipgloss.Center, " ")
	}
	header := HeaderStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, headerLeft, headerCenter, headerRight))

	// --- Footer ---
	elapsed := time.Since(m.summary.StartTime).Round(time.Millisecond)
	footerLeft := fmt.Sprintf(
		"Files: %d/%d | Failed: %d | Lines accepted: %d | Rejected: %d | Elapsed: %s",
		m.summary.CompletedCount,
		m.summary.TotalFiles,
		m.summary.FailedCount,
		m.summary.AcceptedLines,
		m.summary.RejectedLines,
		elapsed,
	)
	footerRight := "q: quit"
	footerWidth := m.width - lipgloss.Width(footerLeft) - lipgloss.Width(footerRight)
	footerCenter := ""
	if footerWidth > 0 {
		footerCenter = lipgloss.PlaceHorizontal(footerWidth, lipgloss.Center, " ")
	}
	footer := FooterStyle.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Bottom, footerLeft, footerCenter, footerRight))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.list.View(),
		footer,
	)
}

// --- Helper Methods ---

// NewModel creates the initial model for the TUI. paths pre-populates the
// list so files appear as pending before their Aggregator starts.
func NewModel(version string, paths []string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusProcessing)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings() // Use our own quit logic

	m := Model{
		list:         l,
		spinner:      s,
		version:      version,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: phaseInitializing,
		fileItems:    make([]listItem, 0, len(paths)),
		itemMap:      make(map[string]int, len(paths)),
	}
	for _, p := range paths {
		m.item(p)
	}
	m.refreshList()
	return m
}

// item returns the entry for path, adding a pending one if it is new.
func (m *Model) item(path string) *listItem {
	if idx, ok := m.itemMap[path]; ok {
		return &m.fileItems[idx]
	}
	m.fileItems = append(m.fileItems, listItem{path: path, status: report.StatusPending})
	m.itemMap[path] = len(m.fileItems) - 1
	m.summary.TotalFiles++
	return &m.fileItems[len(m.fileItems)-1]
}

// refreshList copies fileItems into the list component.
func (m *Model) refreshList() {
	items := make([]list.Item, len(m.fileItems))
	for i, item := range m.fileItems {
		items[i] = item
	}
	m.list.SetItems(items)
}

// isFinalStatus checks if a status represents a terminal state for a file.
func isFinalStatus(status report.Status) bool {
	return status == report.StatusSuccess || status == report.StatusFailed
}

// --- List Item Interface ---

// FilterValue implements the list.Item interface.
func (i listItem) FilterValue() string { return i.path }

// Title implements the list.Item interface.
func (i listItem) Title() string { return i.path }

// Description implements the list.Item interface.
func (i listItem) Description() string {
	var statusStyle lipgloss.Style
	var statusIcon string
	switch i.status {
	case report.StatusSuccess:
		statusStyle = StatusStyleSuccess
		statusIcon = "✓"
	case report.StatusFailed:
		statusStyle = StatusStyleFailed
		statusIcon = "✗"
	case report.StatusProcessing:
		statusStyle = StatusStyleProcessing
		statusIcon = "…"
	default:
		statusStyle = StatusStylePending
		statusIcon = " "
	}
	statusStr := statusStyle.Render(fmt.Sprintf("[%s]", statusIcon))

	details := ""
	switch i.status {
	case report.StatusFailed:
		details = i.message
	case report.StatusSuccess:
		details = fmt.Sprintf("%d accepted, %d rejected", i.validLines, i.rejected)
		if d := formatDuration(i.duration); d != "" {
			details += " in " + d
		}
	case report.StatusProcessing:
		if i.rejected > 0 {
			details = fmt.Sprintf("%d rejected so far", i.rejected)
		}
	}
	return fmt.Sprintf("%s %s", statusStr, details)
}

// formatDuration formats duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// --- Update Debouncing ---

// UpdateListMsg signals that the list component should update its items.
type UpdateListMsg struct{}

const listUpdateDebounceDuration = 50 * time.Millisecond // Update list ~20 times/sec max

// scheduleListUpdate returns a tick producing UpdateListMsg, or nil when one
// is already pending.
func (m *Model) scheduleListUpdate() tea.Cmd {
	if m.updatePending {
		return nil
	}
	m.updatePending = true
	return tea.Tick(listUpdateDebounceDuration, func(time.Time) tea.Msg {
		return UpdateListMsg{}
	})
}

// --- Styles ---

const (
	ColorHeaderFg = lipgloss.Color("252") // Light Gray
	ColorHeaderBg = lipgloss.Color("62")  // Purple

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56") // Dark Pink/Purple

	ColorNormalFg     = lipgloss.Color("250") // Off-white
	ColorNormalDescFg = lipgloss.Color("244") // Dim gray

	ColorSelectedFg     = lipgloss.Color("255") // White
	ColorSelectedBg     = lipgloss.Color("56")  // Dark Pink/Purple
	ColorSelectedDescFg = lipgloss.Color("248") // Lighter Gray

	ColorStatusSuccess    = lipgloss.Color("40")  // Green
	ColorStatusFailed     = lipgloss.Color("196") // Red
	ColorStatusPending    = lipgloss.Color("244") // Dim gray
	ColorStatusProcessing = lipgloss.Color("205") // Pink (matches spinner)
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSuccess    = lipgloss.NewStyle().Foreground(ColorStatusSuccess)
	StatusStyleFailed     = lipgloss.NewStyle().Foreground(ColorStatusFailed)
	StatusStylePending    = lipgloss.NewStyle().Foreground(ColorStatusPending)
	StatusStyleProcessing = lipgloss.NewStyle().Foreground(ColorStatusProcessing)
)
