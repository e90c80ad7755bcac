// Package notify announces finished crawls on the desktop and to an AMQP
// broker.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"ghmirror/pkg/crawler"
)

// ResourceEvent is the outcome of one resource in an Event
type ResourceEvent struct {
	Resource    string `json:"resource"`
	Count       int    `json:"count"`
	SizeInBytes int64  `json:"size_in_bytes"`
	Error       string `json:"error,omitempty"`
}

// Event describes one finished crawl
type Event struct {
	Repository      string          `json:"repository"`
	Succeeded       bool            `json:"succeeded"`
	TotalCount      int             `json:"total_count"`
	TotalBytes      int64           `json:"total_bytes"`
	Watermark       time.Time       `json:"watermark"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	DestinationRoot string          `json:"destination_root"`
	Resources       []ResourceEvent `json:"resources"`
}

// NewEvent builds the Event of a crawl summary
func NewEvent(repository string, s *crawler.Summary) Event {
	e := Event{
		Repository:      repository,
		Succeeded:       s.Succeeded(),
		TotalCount:      s.TotalCount(),
		TotalBytes:      s.TotalBytes(),
		Watermark:       s.Watermark,
		StartedAt:       s.StartedAt,
		FinishedAt:      s.FinishedAt,
		DestinationRoot: s.DestinationRoot,
		Resources:       make([]ResourceEvent, 0, len(s.Statistics)),
	}
	for _, st := range s.Statistics {
		e.Resources = append(e.Resources, ResourceEvent{
			Resource:    st.Resource,
			Count:       st.Count,
			SizeInBytes: st.SizeInBytes,
			Error:       st.ErrorMessage(),
		})
	}
	return e
}

// Title is a one-line headline for the event
func (e Event) Title() string {
	if e.Succeeded {
		return "Mirror of " + e.Repository + " updated"
	}
	return "Mirror of " + e.Repository + " failed"
}

// Message summarizes the event for humans
func (e Event) Message() string {
	msg := fmt.Sprintf("%d new items, %s", e.TotalCount, humanize.Bytes(uint64(e.TotalBytes)))
	for _, r := range e.Resources {
		if r.Error != "" {
			msg += fmt.Sprintf("; %s: %s", r.Resource, r.Error)
		}
	}
	return msg
}

// Notifier delivers an Event somewhere
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Multi delivers to every notifier and joins their errors
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
