package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"ghmirror/pkg/crawler"
	errs "ghmirror/pkg/errors"
	"ghmirror/pkg/logger"
	"ghmirror/pkg/ratelimit"
	"ghmirror/pkg/retry"
)

// Executor runs paged GraphQL queries against a GitHub endpoint
type Executor struct {
	httpClient *http.Client
	endpoint   string
	limiter    *ratelimit.Limiter
	retry      *retry.Config
	logger     logger.Logger
}

var _ crawler.Executor = (*Executor)(nil)

// ExecutorOption configures an Executor
type ExecutorOption func(*Executor)

// WithEndpoint points the executor at a GitHub Enterprise or test server
func WithEndpoint(url string) ExecutorOption {
	return func(e *Executor) {
		if url != "" {
			e.endpoint = url
		}
	}
}

func WithLimiter(l *ratelimit.Limiter) ExecutorOption {
	return func(e *Executor) { e.limiter = l }
}

// WithRetry enables retrying of network, rate limit and server failures
func WithRetry(cfg *retry.Config) ExecutorOption {
	return func(e *Executor) {
		if cfg != nil {
			e.retry = cfg
		}
	}
}

func WithExecutorLogger(l logger.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an Executor sending requests through httpClient
func NewExecutor(httpClient *http.Client, opts ...ExecutorOption) *Executor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	e := &Executor{
		httpClient: httpClient,
		endpoint:   DefaultEndpoint,
		retry:      retry.NoRetry(),
		logger:     logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Execute fetches one page. Failures are *errors.Error values.
func (e *Executor) Execute(ctx context.Context, query crawler.Query, vars crawler.Variables) (*crawler.Page, error) {
	q, ok := query.(Query)
	if !ok {
		return nil, fmt.Errorf("unsupported query type %T", query)
	}
	walk, err := q.Walk()
	if err != nil {
		return nil, err
	}

	var cursor any
	if vars.Cursor != "" {
		cursor = vars.Cursor
	}
	body, err := json.Marshal(request{
		Query: q.Document,
		Variables: map[string]any{
			"owner":    vars.Owner,
			"name":     vars.Name,
			"cursor":   cursor,
			"pageSize": vars.PageSize,
		},
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to encode request")
	}

	return retry.DoWithResult(ctx, e.retry, func(ctx context.Context) (*crawler.Page, error) {
		data, err := e.post(ctx, body)
		if err != nil {
			return nil, err
		}
		return decodePage(data, q.Connection, walk)
	})
}

// post sends one request and returns the body of a 200 response
func (e *Executor) post(ctx context.Context, body []byte) ([]byte, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeUnknown, err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.WithError(err).DebugWithFields("GraphQL request failed", map[string]interface{}{
			"endpoint": e.endpoint,
			"duration": duration,
		})
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "request failed")
	}
	defer resp.Body.Close()

	if e.limiter != nil {
		e.limiter.Observe(resp.Header)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeNetwork, err, "failed to read response body")
	}

	e.logger.DebugWithFields("GraphQL request completed", map[string]interface{}{
		"endpoint":  e.endpoint,
		"status":    resp.StatusCode,
		"duration":  duration,
		"bytes":     len(data),
		"remaining": resp.Header.Get(ratelimit.HeaderRemaining),
	})

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, data)
	}
	return data, nil
}

func statusError(resp *http.Response, body []byte) error {
	t := errs.FromStatus(resp.StatusCode)
	// A 403 is only a rate limit when GitHub says so
	if t == errs.ErrorTypeRateLimit && !errs.IsRetryableStatusCode(resp.StatusCode) &&
		resp.Header.Get(ratelimit.HeaderRemaining) != "0" &&
		!strings.Contains(strings.ToLower(string(body)), "rate limit") {
		t = errs.ErrorTypeAuth
	}

	msg := gjson.GetBytes(body, "message").String()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return errs.New(t, resp.StatusCode, "%s", msg)
}

// decodePage turns a GraphQL response body into a page of connection
func decodePage(body []byte, connection string, walk Walk) (*crawler.Page, error) {
	if !gjson.ValidBytes(body) {
		return nil, errs.New(errs.ErrorTypeParsing, http.StatusOK, "response is not valid JSON")
	}
	res := gjson.ParseBytes(body)

	if gqlErrs := res.Get("errors"); gqlErrs.IsArray() && len(gqlErrs.Array()) > 0 {
		return nil, graphQLError(gqlErrs.Array())
	}

	repo := res.Get("data.repository")
	if !repo.Exists() || repo.Type == gjson.Null {
		return nil, errs.New(errs.ErrorTypeNotFound, http.StatusOK, "repository not found")
	}
	conn := repo.Get(connection)
	if !conn.IsObject() {
		return nil, errs.New(errs.ErrorTypeParsing, http.StatusOK, "response has no %q connection", connection)
	}

	nodes := conn.Get("nodes").Array()
	page := &crawler.Page{
		Items:      make([]crawler.Record, 0, len(nodes)),
		TotalCount: int(conn.Get("totalCount").Int()),
	}
	for i, node := range nodes {
		m, ok := node.Value().(map[string]interface{})
		if !ok {
			return nil, errs.New(errs.ErrorTypeParsing, http.StatusOK, "%s node %d is not an object", connection, i)
		}
		page.Items = append(page.Items, crawler.Record(m))
	}

	info := conn.Get("pageInfo")
	if walk == Forward {
		page.NextCursor = info.Get("endCursor").String()
		page.HasMore = info.Get("hasNextPage").Bool()
	} else {
		page.NextCursor = info.Get("startCursor").String()
		page.HasMore = info.Get("hasPreviousPage").Bool()
	}
	return page, nil
}

func graphQLError(list []gjson.Result) error {
	t := errs.ErrorTypeGraphQL
	msgs := make([]string, 0, len(list))
	for _, e := range list {
		switch e.Get("type").String() {
		case "NOT_FOUND":
			t = errs.ErrorTypeNotFound
		case "RATE_LIMITED":
			t = errs.ErrorTypeRateLimit
		}
		msgs = append(msgs, e.Get("message").String())
	}
	return errs.New(t, http.StatusOK, "%s", strings.Join(msgs, "; "))
}
