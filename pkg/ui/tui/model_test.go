package tui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelTracksResources(t *testing.T) {
	m := NewModel("mui-org/material-ui-pickers", nil)

	m.Update(ResourceStartMsg{Resource: "issues", Total: 200})
	m.Update(ResourceStartMsg{Resource: "releases", Total: 12})
	m.Update(ResourceAdvanceMsg{Resource: "issues", N: 100})
	m.Update(ResourceFinishMsg{Resource: "releases"})

	res := m.Resources()
	require.Len(t, res, 2)
	assert.Equal(t, 100, res[0].Done)
	assert.True(t, res[1].Finished)
	assert.False(t, m.Finished())

	m.Update(ResourceFinishMsg{Resource: "issues"})
	assert.True(t, m.Finished())
	require.Len(t, m.logMessages, 2)
	assert.Equal(t, "issues: 100 records scanned", m.logMessages[1].Message)
}

func TestModelView(t *testing.T) {
	m := NewModel("mui-org/pickers", nil)
	assert.Contains(t, m.View(), "waiting for the first page")

	m.Update(ResourceStartMsg{Resource: "milestones", Total: 4})
	m.Update(ResourceAdvanceMsg{Resource: "milestones", N: 3})
	view := m.View()
	assert.Contains(t, view, "MIRRORING MUI-ORG/PICKERS")
	assert.Contains(t, view, "milestones")
	assert.Contains(t, view, "3/4")
	assert.Contains(t, view, "Press ? for help")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Contains(t, m.View(), "stop after the current page")
}

func TestModelQuitInterruptsRunningCrawl(t *testing.T) {
	calls := 0
	m := NewModel("o/r", func() { calls++ })
	m.Update(ResourceStartMsg{Resource: "issues", Total: 10})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Interrupted())
	assert.Equal(t, 1, calls)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.Equal(t, 1, calls)
}

func TestModelQuitAfterFinishIsNotAnInterrupt(t *testing.T) {
	calls := 0
	m := NewModel("o/r", func() { calls++ })
	m.Update(ResourceStartMsg{Resource: "issues"})
	m.Update(ResourceFinishMsg{Resource: "issues"})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.False(t, m.Interrupted())
	assert.Zero(t, calls)
}

func TestModelKeepsRecentLogs(t *testing.T) {
	m := NewModel("o/r", nil)
	for i := 0; i < 20; i++ {
		m.Update(LogMsg{Level: "INFO", Message: strings.Repeat("x", i)})
	}
	assert.Len(t, m.logMessages, m.maxLogMessages)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.logMessages)
}

func TestReporterHeadless(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter("o/r", nil,
		tea.WithInput(nil),
		tea.WithOutput(&out),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	r.Start()

	r.OnStart("issues", 3)
	r.OnAdvance("issues", 3)
	r.OnFinish("issues")
	r.Log("WARN", "rate limit at %d%%", 90)
	require.NoError(t, r.Stop())

	res := r.Model().Resources()
	require.Len(t, res, 1)
	assert.Equal(t, 3, res[0].Done)
	assert.True(t, r.Model().Finished())
	assert.Equal(t, "rate limit at 90%", r.Model().logMessages[len(r.Model().logMessages)-1].Message)
}

func TestLogWriterFeedsPanelUntilStopped(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter("o/r", nil,
		tea.WithInput(nil),
		tea.WithOutput(&out),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	r.Start()

	var fallback bytes.Buffer
	w := r.LogWriter(&fallback)
	event := `{"level":"warn","resource":"releases","error":"timeout","message":"retrying request"}` + "\n"
	n, err := w.Write([]byte(event))
	require.NoError(t, err)
	assert.Equal(t, len(event), n)

	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())

	last := r.Model().logMessages[len(r.Model().logMessages)-1]
	assert.Equal(t, "WARN", last.Level)
	assert.Equal(t, "releases: retrying request: timeout", last.Message)
	assert.Empty(t, fallback.String())

	late := `{"level":"info","message":"after stop"}` + "\n"
	_, err = w.Write([]byte(late))
	require.NoError(t, err)
	assert.Equal(t, late, fallback.String())
}
