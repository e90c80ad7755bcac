package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghmirror/pkg/crawler"
	"ghmirror/pkg/history"
)

func TestParseSince(t *testing.T) {
	last := time.Date(2020, 3, 1, 12, 0, 0, 0, time.UTC)
	lastFn := func() (time.Time, error) { return last, nil }

	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{name: "empty means beginning", value: ""},
		{name: "beginning", value: "beginning"},
		{name: "rfc3339", value: "2020-01-01T10:30:00Z", want: time.Date(2020, 1, 1, 10, 30, 0, 0, time.UTC)},
		{name: "date", value: "2020-01-01", want: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{name: "last", value: " Last ", want: last},
		{name: "garbage", value: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSince(tt.value, lastFn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseSinceLastError(t *testing.T) {
	_, err := parseSince("last", func() (time.Time, error) { return time.Time{}, errors.New("boom") })
	assert.EqualError(t, err, "boom")
}

func TestLastWatermark(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "a", "b")
	issues := []crawler.Plan{{Resource: "issues"}}

	_, err := lastWatermark(ctx, nil, "a/b", root, issues)
	assert.Error(t, err)

	store, err := history.OpenBolt(filepath.Join(t.TempDir(), "history.bolt"))
	require.NoError(t, err)
	defer store.Close()

	got, err := lastWatermark(ctx, store, "a/b", root, issues)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	started := time.Date(2020, 3, 2, 10, 0, 0, 0, time.UTC)
	run := history.NewRun("a/b", &crawler.Summary{
		Statistics:      []crawler.Statistic{{Resource: "issues", Count: 4}},
		DestinationRoot: root,
		StartedAt:       started,
		FinishedAt:      started.Add(time.Minute),
	})
	require.NoError(t, store.Record(ctx, run))

	got, err = lastWatermark(ctx, store, "a/b", root, issues)
	require.NoError(t, err)
	assert.True(t, started.Equal(got))
}

func TestLastWatermarkIssuesOnlyRunDoesNotCoverReleases(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "a", "b")

	store, err := history.OpenBolt(filepath.Join(t.TempDir(), "history.bolt"))
	require.NoError(t, err)
	defer store.Close()

	started := time.Date(2021, 7, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Record(ctx, history.NewRun("a/b", &crawler.Summary{
		Statistics:      []crawler.Statistic{{Resource: "issues", Count: 2}},
		DestinationRoot: root,
		StartedAt:       started,
		FinishedAt:      started.Add(time.Minute),
	})))

	got, err := lastWatermark(ctx, store, "a/b", root, []crawler.Plan{{Resource: "releases"}})
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = lastWatermark(ctx, store, "a/b", root, []crawler.Plan{{Resource: "issues"}, {Resource: "releases"}})
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	got, err = lastWatermark(ctx, store, "a/b", filepath.Join(t.TempDir(), "elsewhere"), []crawler.Plan{{Resource: "issues"}})
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestProgressMode(t *testing.T) {
	mode, err := progressMode("auto", true)
	require.NoError(t, err)
	assert.Equal(t, "tui", mode)

	mode, err = progressMode("", false)
	require.NoError(t, err)
	assert.Equal(t, "plain", mode)

	mode, err = progressMode("LINE", false)
	require.NoError(t, err)
	assert.Equal(t, "line", mode)

	_, err = progressMode("fancy", true)
	assert.Error(t, err)
}

func TestCrawlFlagsOnlyIncludesChangedFlags(t *testing.T) {
	cmd := &cobra.Command{}
	f := cmd.Flags()
	f.StringVarP(&crawlToken, "token", "t", "", "")
	f.IntVar(&crawlConcurrency, "concurrency", 1, "")
	f.BoolVar(&crawlSkipCheck, "skip-check", false, "")
	f.StringSliceVarP(&crawlResources, "resources", "r", nil, "")

	require.NoError(t, f.Parse([]string{"--concurrency", "3", "--skip-check", "-r", "issues,releases"}))

	flags := crawlFlags(cmd, []string{"mui-org/pickers", "ghp_arg"})
	assert.Equal(t, map[string]interface{}{
		"token":       "ghp_arg",
		"concurrency": 3,
		"check":       false,
		"resources":   []string{"issues", "releases"},
	}, flags)
}
