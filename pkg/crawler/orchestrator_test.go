package crawler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ghmirror/pkg/crawler"
	"ghmirror/pkg/crawler/mocks"
	"ghmirror/pkg/logger"
)

func TestOrchestratorIsolatesResourceFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := mocks.NewMockExecutor(ctrl)
	boom := errors.New("connection reset")

	issues := plan("issues")
	pulls := plan("pullRequests")

	gomock.InOrder(
		exec.EXPECT().Execute(gomock.Any(), issues.Query, vars("")).Return(&crawler.Page{
			Items:      []crawler.Record{record(1, "2022-01-01"), record(2, "2022-01-02")},
			NextCursor: "c1",
			HasMore:    true,
		}, nil),
		exec.EXPECT().Execute(gomock.Any(), issues.Query, vars("c1")).Return(nil, boom),
		exec.EXPECT().Execute(gomock.Any(), pulls.Query, vars("")).Return(&crawler.Page{
			Items: []crawler.Record{record(9, "2022-05-01")},
		}, nil),
	)

	log := logger.NewTestLogger()
	orch := crawler.NewOrchestrator(crawler.New(exec, newMemorySink()), crawler.WithOrchestratorLogger(log))
	summary, err := orch.Run(context.Background(), target(""), []crawler.Plan{issues, pulls})
	require.NoError(t, err)

	require.Len(t, summary.Statistics, 2)
	assert.Equal(t, "issues", summary.Statistics[0].Resource)
	assert.ErrorIs(t, summary.Statistics[0].Err, boom)
	assert.Equal(t, 2, summary.Statistics[0].Count)

	assert.Equal(t, "pullRequests", summary.Statistics[1].Resource)
	assert.NoError(t, summary.Statistics[1].Err)
	assert.Equal(t, 1, summary.Statistics[1].Count)

	assert.False(t, summary.Succeeded())
	var resErr *crawler.ResourceError
	require.ErrorAs(t, summary.FirstError, &resErr)
	assert.Equal(t, "issues", resErr.Resource)
	assert.ErrorIs(t, summary.FirstError, boom)
	assert.Equal(t, 3, summary.TotalCount())
	assert.Equal(t, "/tmp/mirror", summary.DestinationRoot)
	assert.True(t, log.HasMessage("crawl finished with errors"))
}

func TestOrchestratorFirstErrorFollowsRegistrationOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ crawler.Target, p crawler.Plan) crawler.Statistic {
			switch p.Resource {
			case "pullRequests":
				// finishes last but is registered first among the failures
				time.Sleep(20 * time.Millisecond)
				return crawler.Statistic{Resource: p.Resource, Err: errors.New("pulls failed")}
			case "releases":
				return crawler.Statistic{Resource: p.Resource, Err: errors.New("releases failed")}
			default:
				return crawler.Statistic{Resource: p.Resource, Count: 4, SizeInBytes: 400}
			}
		}).Times(4)

	plans := []crawler.Plan{plan("issues"), plan("pullRequests"), plan("releases"), plan("milestones")}
	summary, err := crawler.NewOrchestrator(runner, crawler.WithConcurrency(4)).
		Run(context.Background(), target(""), plans)
	require.NoError(t, err)

	var resErr *crawler.ResourceError
	require.ErrorAs(t, summary.FirstError, &resErr)
	assert.Equal(t, "pullRequests", resErr.Resource)
	assert.Equal(t, "pullRequests: pulls failed", summary.FirstError.Error())

	names := make([]string, 0, len(summary.Statistics))
	for _, st := range summary.Statistics {
		names = append(names, st.Resource)
	}
	assert.Equal(t, []string{"issues", "pullRequests", "releases", "milestones"}, names)
	assert.Equal(t, 8, summary.TotalCount())
	assert.Equal(t, int64(800), summary.TotalBytes())
}

func TestOrchestratorRunsConcurrently(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	var started sync.WaitGroup
	started.Add(2)
	release := make(chan struct{})
	go func() {
		started.Wait()
		close(release)
	}()

	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ crawler.Target, p crawler.Plan) crawler.Statistic {
			started.Done()
			select {
			case <-release:
				return crawler.Statistic{Resource: p.Resource}
			case <-time.After(5 * time.Second):
				return crawler.Statistic{Resource: p.Resource, Err: errors.New("runs were serialized")}
			}
		}).Times(2)

	summary, err := crawler.NewOrchestrator(runner, crawler.WithConcurrency(2)).
		Run(context.Background(), target(""), []crawler.Plan{plan("issues"), plan("releases")})
	require.NoError(t, err)
	assert.True(t, summary.Succeeded())
}

func TestOrchestratorSequentialByDefault(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)

	var order []string
	runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ crawler.Target, p crawler.Plan) crawler.Statistic {
			order = append(order, p.Resource)
			return crawler.Statistic{Resource: p.Resource}
		}).Times(3)

	plans := []crawler.Plan{plan("milestones"), plan("issues"), plan("releases")}
	summary, err := crawler.NewOrchestrator(runner).Run(context.Background(), target("2021-01-01"), plans)
	require.NoError(t, err)

	assert.Equal(t, []string{"milestones", "issues", "releases"}, order)
	assert.True(t, summary.Succeeded())
	assert.Nil(t, summary.FirstError)
	assert.Equal(t, mustTime("2021-01-01"), summary.Watermark)
	assert.False(t, summary.FinishedAt.Before(summary.StartedAt))
}

func TestOrchestratorRejectsInvalidInput(t *testing.T) {
	mismatched := plan("pullRequests")
	mismatched.Query = fakeQuery{dir: crawler.Descending}

	tests := []struct {
		name   string
		target crawler.Target
		plans  []crawler.Plan
		want   error
	}{
		{
			name:   "missing owner",
			target: crawler.Target{Name: "repo", DestinationRoot: "/tmp"},
			plans:  []crawler.Plan{plan("issues")},
			want:   crawler.ErrInvalidTarget,
		},
		{
			name:   "missing destination",
			target: crawler.Target{Owner: "o", Name: "repo"},
			plans:  []crawler.Plan{plan("issues")},
			want:   crawler.ErrInvalidTarget,
		},
		{
			name:   "duplicate resource",
			target: target(""),
			plans:  []crawler.Plan{plan("issues"), plan("issues")},
			want:   crawler.ErrDuplicatePlan,
		},
		{
			name:   "order mismatch",
			target: target(""),
			plans:  []crawler.Plan{plan("issues"), mismatched},
			want:   crawler.ErrOrderMismatch,
		},
		{
			name:   "no plans",
			target: target(""),
			want:   crawler.ErrInvalidPlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			// no expectations: any crawl fails the test
			runner := mocks.NewMockRunner(ctrl)

			summary, err := crawler.NewOrchestrator(runner).Run(context.Background(), tt.target, tt.plans)
			assert.Nil(t, summary)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
