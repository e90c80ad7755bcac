package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"ghmirror/pkg/crawler"
)

// LineReporter prints crawl progress as plain text. In live mode it keeps
// redrawing a single status line; otherwise it prints one line per
// finished resource, which suits logs and pipes.
type LineReporter struct {
	*Tracker

	mu       sync.Mutex
	out      io.Writer
	live     bool
	barWidth int
}

var _ crawler.Progress = (*LineReporter)(nil)

// NewLineReporter creates a LineReporter writing to out
func NewLineReporter(out io.Writer, live bool) *LineReporter {
	return &LineReporter{
		Tracker:  NewTracker(),
		out:      out,
		live:     live,
		barWidth: 20,
	}
}

func (r *LineReporter) OnStart(resource string, total int) {
	r.Tracker.OnStart(resource, total)
	r.redraw()
}

func (r *LineReporter) OnAdvance(resource string, n int) {
	r.Tracker.OnAdvance(resource, n)
	r.redraw()
}

func (r *LineReporter) OnFinish(resource string) {
	r.Tracker.OnFinish(resource)
	if r.live {
		r.redraw()
		return
	}

	for _, p := range r.Snapshot() {
		if p.Resource == resource {
			r.mu.Lock()
			fmt.Fprintf(r.out, "%s %s %d/%d\n", Green("✓"), p.Resource, p.Done, p.Total)
			r.mu.Unlock()
			return
		}
	}
}

// Complete ends the live status line
func (r *LineReporter) Complete() {
	if !r.live {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out)
}

func (r *LineReporter) redraw() {
	if !r.live {
		return
	}

	parts := make([]string, 0, 4)
	for _, p := range r.Snapshot() {
		parts = append(parts, fmt.Sprintf("%s [%s] %d/%d", Cyan(p.Resource), Bar(p.Percent(), r.barWidth), p.Done, p.Total))
	}
	line := strings.Join(parts, " • ")

	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "\r\033[K%s", line)
}
