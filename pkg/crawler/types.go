package crawler

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTarget = errors.New("invalid repository target")
	ErrInvalidPlan   = errors.New("invalid fetch plan")
	ErrOrderMismatch = errors.New("declared order does not match query")
	ErrBadTimestamp  = errors.New("record has no usable update timestamp")
	ErrMissingCursor = errors.New("page reports more data but no cursor")
	ErrDuplicatePlan = errors.New("duplicate resource name")
)

// Target identifies the remote repository and the local mirror root.
// Records updated at or after Watermark are fresh.
type Target struct {
	Owner           string
	Name            string
	Watermark       time.Time
	DestinationRoot string
}

// Slug returns "owner/name"
func (t Target) Slug() string {
	return t.Owner + "/" + t.Name
}

// Validate checks that every field needed by a crawl is present
func (t Target) Validate() error {
	switch {
	case t.Owner == "":
		return fmt.Errorf("%w: owner is empty", ErrInvalidTarget)
	case t.Name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidTarget)
	case t.DestinationRoot == "":
		return fmt.Errorf("%w: destination root is empty", ErrInvalidTarget)
	}
	return nil
}

// Variables are bound into a Query for one page request
type Variables struct {
	Owner    string
	Name     string
	Cursor   string
	PageSize int
}

// Page is one slice of a resource as returned by an Executor
type Page struct {
	Items      []Record
	TotalCount int
	// NextCursor resumes at the slice preceding this one in history
	NextCursor string
	HasMore    bool
}

// Record is one untyped issue, pull request, release or milestone
type Record map[string]any

// Timestamp parses field as an RFC 3339 timestamp
func (r Record) Timestamp(field string) (time.Time, error) {
	switch v := r[field].(type) {
	case time.Time:
		return v, nil
	case string:
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %s=%q", ErrBadTimestamp, field, v)
		}
		return ts, nil
	case nil:
		return time.Time{}, fmt.Errorf("%w: %s is missing", ErrBadTimestamp, field)
	default:
		return time.Time{}, fmt.Errorf("%w: %s has type %T", ErrBadTimestamp, field, v)
	}
}

// Statistic is the outcome of crawling one resource
type Statistic struct {
	Resource    string
	Count       int
	SizeInBytes int64
	Elapsed     time.Duration
	// Err is nil on success. On failure Count and SizeInBytes still hold
	// what was written before the failure.
	Err error
}

func (s Statistic) Failed() bool {
	return s.Err != nil
}

func (s Statistic) ElapsedMillis() int64 {
	return s.Elapsed.Milliseconds()
}

// ErrorMessage returns Err's text, or "" on success
func (s Statistic) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// ResourceError ties a failure to the resource that produced it
type ResourceError struct {
	Resource string
	Err      error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// Summary aggregates one run over all plans
type Summary struct {
	// Statistics are in plan registration order
	Statistics      []Statistic
	FirstError      error
	DestinationRoot string
	Watermark       time.Time
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Succeeded reports whether no resource failed
func (s *Summary) Succeeded() bool {
	return s.FirstError == nil
}

func (s *Summary) TotalCount() int {
	n := 0
	for _, st := range s.Statistics {
		n += st.Count
	}
	return n
}

func (s *Summary) TotalBytes() int64 {
	var n int64
	for _, st := range s.Statistics {
		n += st.SizeInBytes
	}
	return n
}

func summarize(target Target, stats []Statistic, started time.Time) *Summary {
	summary := &Summary{
		Statistics:      stats,
		DestinationRoot: target.DestinationRoot,
		Watermark:       target.Watermark,
		StartedAt:       started,
		FinishedAt:      time.Now(),
	}
	for _, st := range stats {
		if st.Err != nil {
			summary.FirstError = &ResourceError{Resource: st.Resource, Err: st.Err}
			break
		}
	}
	return summary
}
