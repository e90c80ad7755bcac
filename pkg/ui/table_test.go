package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ghmirror/pkg/crawler"
	"ghmirror/pkg/history"
)

func testSummary() *crawler.Summary {
	start := time.Date(2020, 3, 2, 10, 0, 0, 0, time.UTC)
	return &crawler.Summary{
		Statistics: []crawler.Statistic{
			{Resource: "issues", Count: 2, SizeInBytes: 3400, Elapsed: 1600 * time.Millisecond},
			{Resource: "pullRequests", Count: 0, Elapsed: 200 * time.Millisecond, Err: errors.New("rate_limit error (code 403): API rate limit exceeded")},
		},
		DestinationRoot: "tmp/ghmirror/mui-org/material-ui-pickers",
		Watermark:       time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		StartedAt:       start,
		FinishedAt:      start.Add(2 * time.Second),
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(testSummary())
	lines := strings.Split(out, "\n")

	assert.Equal(t, "Fetching new items since 2020-01-01T00:00:00Z finished:", lines[0])
	for _, want := range []string{"Task", "Count", "Size", "Time", "issues", "3.4 kB", "2s", "pullRequests", "0 B", "0s", "Total"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, out, "Files written to tmp/ghmirror/mui-org/material-ui-pickers")
}

func TestRenderSummaryFromBeginning(t *testing.T) {
	s := testSummary()
	s.Watermark = time.Time{}
	assert.True(t, strings.HasPrefix(RenderSummary(s), "Fetching new items since beginning finished:"))
}

func TestPrintSummary(t *testing.T) {
	var out, errOut bytes.Buffer
	PrintSummary(&out, &errOut, testSummary())

	assert.Equal(t, "Error while fetching pullRequests: rate_limit error (code 403): API rate limit exceeded\n", errOut.String())
	assert.Contains(t, out.String(), "issues")
}

func TestSinceLabel(t *testing.T) {
	assert.Equal(t, "beginning", SinceLabel(time.Time{}))
	loc := time.FixedZone("CET", 3600)
	assert.Equal(t, "2020-01-01T00:00:00Z", SinceLabel(time.Date(2020, 1, 1, 1, 0, 0, 0, loc)))
}

func TestRenderHistory(t *testing.T) {
	runs := []history.Run{
		{
			Repository: "mui-org/material-ui-pickers",
			StartedAt:  time.Date(2020, 3, 2, 10, 0, 0, 0, time.UTC),
			Succeeded:  true,
			Resources:  []history.ResourceResult{{Resource: "issues", Count: 3, SizeInBytes: 1500}},
		},
		{
			Repository: "mui-org/material-ui-pickers",
			Watermark:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			StartedAt:  time.Date(2020, 3, 1, 10, 0, 0, 0, time.UTC),
			Resources:  []history.ResourceResult{{Resource: "issues", Error: "timeout"}},
		},
	}

	out := RenderHistory(runs)
	for _, want := range []string{"Started", "Repository", "Status", "mui-org/material-ui-pickers", "beginning", "2020-01-01T00:00:00Z", "1.5 kB", "ok", "failed"} {
		assert.Contains(t, out, want)
	}
}
