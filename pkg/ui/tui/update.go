package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ResourceStartMsg is sent when the first page of a resource arrives
type ResourceStartMsg struct {
	Resource string
	Total    int
}

// ResourceAdvanceMsg is sent after each page of a resource
type ResourceAdvanceMsg struct {
	Resource string
	N        int
}

// ResourceFinishMsg is sent when a resource crawl ends
type ResourceFinishMsg struct {
	Resource string
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ResourceStartMsg:
		m.tracker.OnStart(msg.Resource, msg.Total)
		m.bar(msg.Resource)
		return m, nil

	case ResourceAdvanceMsg:
		m.tracker.OnAdvance(msg.Resource, msg.N)
		return m, nil

	case ResourceFinishMsg:
		m.tracker.OnFinish(msg.Resource)
		for _, r := range m.tracker.Snapshot() {
			if r.Resource == msg.Resource {
				m.AddLogMessage("SUCCESS", fmt.Sprintf("%s: %d records scanned", r.Resource, r.Done))
			}
		}
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if !m.Finished() && !m.interrupted {
			m.interrupted = true
			if m.onInterrupt != nil {
				m.onInterrupt()
			}
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}
