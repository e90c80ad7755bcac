package tui

import (
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"ghmirror/pkg/crawler"
)

// Reporter shows crawl progress in a bubbletea program. It implements
// crawler.Progress; Start must be called before the crawl begins.
type Reporter struct {
	program *tea.Program
	model   *Model
	done    chan struct{}
	err     error
	stop    sync.Once
}

var _ crawler.Progress = (*Reporter)(nil)

// NewReporter creates a Reporter for the repository named title.
// onInterrupt runs when the user quits before the crawl finishes.
func NewReporter(title string, onInterrupt func(), opts ...tea.ProgramOption) *Reporter {
	model := NewModel(title, onInterrupt)
	return &Reporter{
		program: tea.NewProgram(model, opts...),
		model:   model,
		done:    make(chan struct{}),
	}
}

// Start runs the program in the background
func (r *Reporter) Start() {
	go func() {
		defer close(r.done)
		_, r.err = r.program.Run()
	}()
}

// Stop quits the program and waits for it to restore the terminal. Later
// calls return the same result.
func (r *Reporter) Stop() error {
	r.stop.Do(func() {
		r.program.Quit()
		<-r.done
	})
	return r.err
}

// Model returns the reporter's model. Read it only after Stop.
func (r *Reporter) Model() *Model {
	return r.model
}

func (r *Reporter) OnStart(resource string, total int) {
	r.program.Send(ResourceStartMsg{Resource: resource, Total: total})
}

func (r *Reporter) OnAdvance(resource string, n int) {
	r.program.Send(ResourceAdvanceMsg{Resource: resource, N: n})
}

func (r *Reporter) OnFinish(resource string) {
	r.program.Send(ResourceFinishMsg{Resource: resource})
}

// Log adds a line to the log panel
func (r *Reporter) Log(level, format string, args ...interface{}) {
	r.program.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
