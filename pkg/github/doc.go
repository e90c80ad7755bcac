// Package github talks to the GitHub GraphQL API on behalf of the crawler.
//
// Executor runs the paged queries declared by the resource plans and turns
// each response into a crawler.Page. Inspector checks that a repository exists
// before a crawl starts. Both share the oauth2 HTTP client built by
// NewHTTPClient.
package github
