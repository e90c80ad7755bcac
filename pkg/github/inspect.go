package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shurcooL/githubv4"
)

// ErrRepositoryNotFound is returned by Inspect for missing or hidden repositories
var ErrRepositoryNotFound = errors.New("repository not found")

// RepositoryInfo is what Inspect learns about a repository
type RepositoryInfo struct {
	NameWithOwner string
	IsPrivate     bool
	IsArchived    bool
	PushedAt      time.Time
}

// Inspector checks a repository before crawling it
type Inspector struct {
	client *githubv4.Client
}

// NewInspector creates an Inspector. An empty endpoint or DefaultEndpoint uses
// api.github.com.
func NewInspector(httpClient *http.Client, endpoint string) *Inspector {
	if endpoint == "" || endpoint == DefaultEndpoint {
		return &Inspector{client: githubv4.NewClient(httpClient)}
	}
	return &Inspector{client: githubv4.NewEnterpriseClient(endpoint, httpClient)}
}

type repositoryQuery struct {
	Repository *struct {
		NameWithOwner githubv4.String
		IsPrivate     githubv4.Boolean
		IsArchived    githubv4.Boolean
		PushedAt      *githubv4.DateTime
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// Inspect fetches basic repository metadata
func (i *Inspector) Inspect(ctx context.Context, owner, name string) (*RepositoryInfo, error) {
	var q repositoryQuery
	vars := map[string]interface{}{
		"owner": githubv4.String(owner),
		"name":  githubv4.String(name),
	}
	if err := i.client.Query(ctx, &q, vars); err != nil {
		if strings.Contains(err.Error(), "Could not resolve to a Repository") {
			return nil, fmt.Errorf("%w: %s/%s", ErrRepositoryNotFound, owner, name)
		}
		return nil, fmt.Errorf("inspect %s/%s: %w", owner, name, err)
	}
	if q.Repository == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrRepositoryNotFound, owner, name)
	}

	info := &RepositoryInfo{
		NameWithOwner: string(q.Repository.NameWithOwner),
		IsPrivate:     bool(q.Repository.IsPrivate),
		IsArchived:    bool(q.Repository.IsArchived),
	}
	if q.Repository.PushedAt != nil {
		info.PushedAt = q.Repository.PushedAt.Time
	}
	return info, nil
}
