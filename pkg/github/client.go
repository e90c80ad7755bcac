package github

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultEndpoint is the public GitHub GraphQL endpoint
	DefaultEndpoint = "https://api.github.com/graphql"

	DefaultUserAgent = "ghmirror"
)

// NewHTTPClient returns a client that authenticates with token and sends
// userAgent on every request. An empty token yields an anonymous client,
// which GitHub's GraphQL API rejects with 401.
func NewHTTPClient(ctx context.Context, token, userAgent string, timeout time.Duration) *http.Client {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	var client *http.Client
	if token != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	} else {
		client = &http.Client{}
	}

	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = &userAgentTransport{base: base, userAgent: userAgent}
	client.Timeout = timeout
	return client
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(req)
}
