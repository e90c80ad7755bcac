package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghmirror/pkg/crawler"
)

func TestDefaultPlansAreValid(t *testing.T) {
	plans := DefaultPlans()
	require.NoError(t, crawler.ValidatePlans(plans))

	names := make([]string, 0, len(plans))
	for _, p := range plans {
		names = append(names, p.Resource)

		q, ok := p.Query.(Query)
		require.True(t, ok)
		assert.Equal(t, p.Resource, q.Connection)
		assert.Equal(t, crawler.Ascending, p.Order, "%s is ordered oldest first", p.Resource)
		assert.Contains(t, q.Document, "before: $cursor", "%s pages backward", p.Resource)
		for _, v := range []string{"$owner", "$name", "$cursor", "$pageSize"} {
			assert.Contains(t, q.Document, v, "%s query declares %s", p.Resource, v)
		}
	}
	assert.Equal(t, []string{"issues", "pullRequests", "releases", "milestones"}, names)
}

func TestPlanFilenamesAndTimestamps(t *testing.T) {
	tests := []struct {
		plan      crawler.Plan
		record    crawler.Record
		wantName  string
		wantField string
	}{
		{Issues(), crawler.Record{"number": float64(1234)}, "1234.json", "updatedAt"},
		{PullRequests(), crawler.Record{"number": float64(77)}, "77.json", "updatedAt"},
		{Releases(), crawler.Record{"tagName": "v4.0.0-alpha.1"}, "v4.0.0-alpha.1.json", "createdAt"},
		{Milestones(), crawler.Record{"number": float64(3)}, "3.json", "createdAt"},
	}

	for _, tt := range tests {
		t.Run(tt.plan.Resource, func(t *testing.T) {
			name, err := tt.plan.FilenameOf(tt.record)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantField, tt.plan.TimestampField)
		})
	}
}

func TestPlansFor(t *testing.T) {
	plans, err := PlansFor([]string{"releases", "issues"})
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "releases", plans[0].Resource)
	assert.Equal(t, "issues", plans[1].Resource)

	_, err = PlansFor([]string{"issues", "wikis", "gists"})
	var unknown *UnknownResourceError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"wikis", "gists"}, unknown.Names)
	assert.Equal(t, `unknown resources: ["wikis" "gists"]`, err.Error())
}
