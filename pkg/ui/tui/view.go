package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the progress panel
func (m *Model) View() string {
	var sections []string

	header := titleStyle.Render(" MIRRORING " + strings.ToUpper(m.title) + " ")
	elapsed := time.Since(m.started).Round(time.Second)
	sections = append(sections, header+"  "+countStyle.Render(elapsed.String()))

	sections = append(sections, panelStyle.Render(m.renderResources()))

	if logs := m.renderLogs(); logs != "" {
		sections = append(sections, logs)
	}

	if m.showHelp {
		sections = append(sections, helpStyle.Render("q / ctrl+c  stop after the current page\nctrl+l      clear log\n?           toggle help"))
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m *Model) renderResources() string {
	resources := m.tracker.Snapshot()
	if len(resources) == 0 {
		return m.spinner.View() + " waiting for the first page..."
	}

	lines := make([]string, 0, len(resources))
	for _, r := range resources {
		status := m.spinner.View()
		if r.Finished {
			status = doneStyle.Render("✓")
		}
		bar := m.bar(r.Resource)
		lines = append(lines, fmt.Sprintf("%s %s %s %s",
			status,
			resourceStyle.Render(r.Resource),
			bar.ViewAs(r.Percent()),
			countStyle.Render(fmt.Sprintf("%d/%d", r.Done, r.Total)),
		))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderLogs() string {
	if len(m.logMessages) == 0 {
		return ""
	}
	lines := make([]string, 0, len(m.logMessages))
	for _, msg := range m.logMessages {
		lines = append(lines, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(msg.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(msg.Color).Render(msg.Level),
			logMessageStyle.Render(msg.Message),
		))
	}
	return strings.Join(lines, "\n")
}
