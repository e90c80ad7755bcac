package crawler_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ghmirror/pkg/crawler"
)

type fakeQuery struct {
	name string
	dir  crawler.OrderDirection
	err  error
}

func (q fakeQuery) Direction() (crawler.OrderDirection, error) {
	return q.dir, q.err
}

func issuesPlan() crawler.Plan {
	return crawler.Plan{
		Resource:       "issues",
		Query:          fakeQuery{name: "issues", dir: crawler.Ascending},
		Order:          crawler.Ascending,
		TimestampField: "updatedAt",
		FilenameOf:     crawler.FieldFilename("number"),
	}
}

func plan(resource string) crawler.Plan {
	p := issuesPlan()
	p.Resource = resource
	p.Query = fakeQuery{name: resource, dir: crawler.Ascending}
	return p
}

func target(watermark string) crawler.Target {
	t := crawler.Target{Owner: "mui-org", Name: "material-ui-pickers", DestinationRoot: "/tmp/mirror"}
	if watermark != "" {
		t.Watermark = mustTime(watermark)
	}
	return t
}

func mustTime(s string) time.Time {
	if len(s) == len("2006-01-02") {
		s += "T00:00:00Z"
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return ts
}

func record(number int, updatedAt string) crawler.Record {
	if len(updatedAt) == len("2006-01-02") {
		updatedAt += "T00:00:00Z"
	}
	return crawler.Record{
		"number":    float64(number),
		"title":     "item",
		"updatedAt": updatedAt,
	}
}

func vars(cursor string) crawler.Variables {
	return crawler.Variables{Owner: "mui-org", Name: "material-ui-pickers", Cursor: cursor, PageSize: crawler.DefaultPageSize}
}

// memorySink keeps serialized records in memory
type memorySink struct {
	mu     sync.Mutex
	files  map[string][]byte
	writes int
	failOn string
}

func newMemorySink() *memorySink {
	return &memorySink{files: map[string][]byte{}}
}

func (s *memorySink) Write(_ context.Context, resource, filename string, r crawler.Record) (int64, error) {
	if filename == s.failOn {
		return 0, errors.New("disk full")
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[resource+"/"+filename] = data
	s.writes++
	return int64(len(data)), nil
}

func (s *memorySink) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for name := range s.files {
		out = append(out, name)
	}
	return out
}
