package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ghmirror/pkg/ui"
)

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model of a running crawl. It is only touched from
// the program's event loop.
type Model struct {
	title   string
	spinner spinner.Model
	bars    map[string]progress.Model
	tracker *ui.Tracker

	started        time.Time
	width          int
	showHelp       bool
	interrupted    bool
	onInterrupt    func()
	logMessages    []LogMessage
	maxLogMessages int
}

// NewModel creates a model titled with the repository being mirrored.
// onInterrupt, when set, runs once if the user quits before the crawl ends.
func NewModel(title string, onInterrupt func()) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return &Model{
		title:          title,
		spinner:        s,
		bars:           make(map[string]progress.Model),
		tracker:        ui.NewTracker(),
		started:        time.Now(),
		onInterrupt:    onInterrupt,
		maxLogMessages: 8,
	}
}

// Init starts the spinner
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Resources returns the progress of every resource seen so far
func (m *Model) Resources() []ui.ResourceProgress {
	return m.tracker.Snapshot()
}

// Interrupted reports whether the user quit the crawl
func (m *Model) Interrupted() bool {
	return m.interrupted
}

// Finished reports whether every known resource has finished
func (m *Model) Finished() bool {
	res := m.tracker.Snapshot()
	if len(res) == 0 {
		return false
	}
	for _, r := range res {
		if !r.Finished {
			return false
		}
	}
	return true
}

func (m *Model) bar(resource string) progress.Model {
	b, ok := m.bars[resource]
	if !ok {
		b = progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
		b.Width = 40
		m.bars[resource] = b
	}
	return b
}

// AddLogMessage appends a log line, keeping the most recent ones
func (m *Model) AddLogMessage(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}
