package github

import (
	"fmt"

	"ghmirror/pkg/crawler"
)

const issuesQuery = `
query issues($owner: String!, $name: String!, $cursor: String, $pageSize: Int!) {
  repository(owner: $owner, name: $name) {
    issues(last: $pageSize, orderBy: {field: UPDATED_AT, direction: ASC}, before: $cursor) {
      totalCount
      nodes {
        id
        number
        url
        createdAt
        updatedAt
        title
        body
        author {
          avatarUrl(size: 160)
          login
          url
        }
        comments(last: 100) {
          nodes {
            body
            createdAt
            url
            author {
              avatarUrl(size: 160)
              login
              url
            }
          }
        }
        labels(last: 100) {
          nodes {
            name
          }
        }
      }
      pageInfo {
        startCursor
        hasPreviousPage
      }
    }
  }
}`

const pullRequestsQuery = `
query pullRequests($owner: String!, $name: String!, $cursor: String, $pageSize: Int!) {
  repository(owner: $owner, name: $name) {
    pullRequests(last: $pageSize, orderBy: {field: UPDATED_AT, direction: ASC}, before: $cursor) {
      totalCount
      nodes {
        id
        number
        additions
        body
        url
        createdAt
        updatedAt
        title
        author {
          avatarUrl(size: 160)
          login
          url
        }
        comments(last: 100) {
          nodes {
            body
            createdAt
            url
          }
        }
        labels(last: 100) {
          nodes {
            name
          }
        }
      }
      pageInfo {
        startCursor
        hasPreviousPage
      }
    }
  }
}`

const releasesQuery = `
query releases($owner: String!, $name: String!, $cursor: String, $pageSize: Int!) {
  repository(owner: $owner, name: $name) {
    releases(last: $pageSize, orderBy: {field: CREATED_AT, direction: ASC}, before: $cursor) {
      totalCount
      nodes {
        id
        createdAt
        updatedAt
        description
        name
        tagName
        url
        author {
          avatarUrl(size: 160)
          login
          url
        }
      }
      pageInfo {
        startCursor
        hasPreviousPage
      }
    }
  }
}`

const milestonesQuery = `
query milestones($owner: String!, $name: String!, $cursor: String, $pageSize: Int!) {
  repository(owner: $owner, name: $name) {
    milestones(last: $pageSize, orderBy: {field: CREATED_AT, direction: ASC}, before: $cursor) {
      totalCount
      nodes {
        id
        number
        title
        description
        state
        closed
        closedAt
        dueOn
        createdAt
        updatedAt
        url
        resourcePath
        creator {
          avatarUrl(size: 100)
          login
          url
        }
      }
      pageInfo {
        startCursor
        hasPreviousPage
      }
    }
  }
}`

// Issues mirrors issues by last update, named <number>.json
func Issues() crawler.Plan {
	return crawler.Plan{
		Resource:       "issues",
		Query:          Query{Connection: "issues", Document: issuesQuery},
		Order:          crawler.Ascending,
		TimestampField: "updatedAt",
		FilenameOf:     crawler.FieldFilename("number"),
	}
}

// PullRequests mirrors pull requests by last update, named <number>.json
func PullRequests() crawler.Plan {
	return crawler.Plan{
		Resource:       "pullRequests",
		Query:          Query{Connection: "pullRequests", Document: pullRequestsQuery},
		Order:          crawler.Ascending,
		TimestampField: "updatedAt",
		FilenameOf:     crawler.FieldFilename("number"),
	}
}

// Releases mirrors releases by creation, named <tagName>.json
func Releases() crawler.Plan {
	return crawler.Plan{
		Resource:       "releases",
		Query:          Query{Connection: "releases", Document: releasesQuery},
		Order:          crawler.Ascending,
		TimestampField: "createdAt",
		FilenameOf:     crawler.FieldFilename("tagName"),
	}
}

// Milestones mirrors milestones by creation, named <number>.json
func Milestones() crawler.Plan {
	return crawler.Plan{
		Resource:       "milestones",
		Query:          Query{Connection: "milestones", Document: milestonesQuery},
		Order:          crawler.Ascending,
		TimestampField: "createdAt",
		FilenameOf:     crawler.FieldFilename("number"),
	}
}

// DefaultPlans returns every built-in plan in registration order
func DefaultPlans() []crawler.Plan {
	return []crawler.Plan{Issues(), PullRequests(), Releases(), Milestones()}
}

// PlansFor selects built-in plans by resource name, keeping the order of
// names. Unknown names are reported together.
func PlansFor(names []string) ([]crawler.Plan, error) {
	byName := make(map[string]crawler.Plan)
	for _, p := range DefaultPlans() {
		byName[p.Resource] = p
	}

	plans := make([]crawler.Plan, 0, len(names))
	var unknown []string
	for _, name := range names {
		p, ok := byName[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		plans = append(plans, p)
	}
	if len(unknown) > 0 {
		return nil, &UnknownResourceError{Names: unknown}
	}
	return plans, nil
}

// UnknownResourceError lists resource names with no built-in plan
type UnknownResourceError struct {
	Names []string
}

func (e *UnknownResourceError) Error() string {
	return fmt.Sprintf("unknown resources: %q", e.Names)
}
