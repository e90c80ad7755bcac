package github

import (
	"fmt"
	"regexp"

	"github.com/shurcooL/githubv4"

	"ghmirror/pkg/crawler"
)

// Walk is the direction a connection is paged in
type Walk int

const (
	// Backward pages with last/before, reading pageInfo.startCursor
	Backward Walk = iota
	// Forward pages with first/after, reading pageInfo.endCursor
	Forward
)

func (w Walk) String() string {
	if w == Forward {
		return "forward"
	}
	return "backward"
}

var (
	orderByRe = regexp.MustCompile(`orderBy\s*:\s*\{[^}]*direction\s*:\s*([A-Za-z]+)`)
	walkRe    = regexp.MustCompile(`\b(first|last)\s*:\s*\$`)
)

// Query is a GraphQL document paging one connection of a repository. The
// document must declare $owner, $name, $cursor and $pageSize.
type Query struct {
	// Connection is the field under repository holding the nodes
	Connection string
	Document   string
}

var _ crawler.Query = Query{}

// Walk reports whether the document pages backward or forward
func (q Query) Walk() (Walk, error) {
	m := walkRe.FindStringSubmatch(q.Document)
	if m == nil {
		return 0, fmt.Errorf("query %s: no first/last pagination argument", q.Connection)
	}
	if m[1] == "first" {
		return Forward, nil
	}
	return Backward, nil
}

// Direction returns the orderBy direction the document requests. It fails
// unless the combination of direction and walk yields the newest records
// first: ascending order paged backward, or descending order paged forward.
func (q Query) Direction() (crawler.OrderDirection, error) {
	m := orderByRe.FindStringSubmatch(q.Document)
	if m == nil {
		return "", fmt.Errorf("query %s: no orderBy direction", q.Connection)
	}
	walk, err := q.Walk()
	if err != nil {
		return "", err
	}

	var dir crawler.OrderDirection
	switch githubv4.OrderDirection(m[1]) {
	case githubv4.OrderDirectionAsc:
		dir = crawler.Ascending
	case githubv4.OrderDirectionDesc:
		dir = crawler.Descending
	default:
		return "", fmt.Errorf("query %s: unknown order direction %q", q.Connection, m[1])
	}

	newestFirst := (dir == crawler.Ascending && walk == Backward) ||
		(dir == crawler.Descending && walk == Forward)
	if !newestFirst {
		return "", fmt.Errorf("query %s: %s order paged %s returns oldest records first", q.Connection, dir, walk)
	}
	return dir, nil
}
