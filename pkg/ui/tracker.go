package ui

import (
	"strings"
	"sync"
	"time"
)

const (
	barFilled = "━"
	barEmpty  = "─"
)

// ResourceProgress is the progress of one resource crawl
type ResourceProgress struct {
	Resource string
	Total    int
	Done     int
	Finished bool
	Started  time.Time
}

// Percent returns completion in [0, 1]. A finished resource is complete
// even when fewer items than the remote total were newer than the
// watermark.
func (p ResourceProgress) Percent() float64 {
	if p.Finished {
		return 1
	}
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Done) / float64(p.Total)
	if pct > 1 {
		pct = 1
	}
	return pct
}

// Tracker records progress notifications for any number of resources.
// It implements crawler.Progress and is safe for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	order  []string
	byName map[string]*ResourceProgress
	now    func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{byName: make(map[string]*ResourceProgress), now: time.Now}
}

// get returns the entry for resource, creating it on first use. Callers
// hold t.mu.
func (t *Tracker) get(resource string) *ResourceProgress {
	p, ok := t.byName[resource]
	if !ok {
		p = &ResourceProgress{Resource: resource, Started: t.now()}
		t.byName[resource] = p
		t.order = append(t.order, resource)
	}
	return p
}

func (t *Tracker) OnStart(resource string, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(resource).Total = total
}

func (t *Tracker) OnAdvance(resource string, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(resource).Done += n
}

func (t *Tracker) OnFinish(resource string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(resource).Finished = true
}

// Snapshot returns a copy of every resource in the order first seen
func (t *Tracker) Snapshot() []ResourceProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ResourceProgress, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.byName[name])
	}
	return out
}

// Bar renders pct as a fixed-width text bar
func Bar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, width-filled)
}
