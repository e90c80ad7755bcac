package crawler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ghmirror/pkg/logger"
)

// DefaultPageSize is the number of records requested per page
const DefaultPageSize = 100

// Crawler drives a single resource kind from the newest page backwards
type Crawler struct {
	executor   Executor
	sink       Sink
	progress   Progress
	logger     logger.Logger
	pageSize   int
	writeLimit int
}

// Option configures a Crawler
type Option func(*Crawler)

// WithProgress sets the progress reporter. nil keeps the no-op reporter.
func WithProgress(p Progress) Option {
	return func(c *Crawler) {
		if p != nil {
			c.progress = p
		}
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Crawler) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithPageSize(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithWriteLimit bounds how many writes of one page run at once.
// n <= 0 writes the whole page at once.
func WithWriteLimit(n int) Option {
	return func(c *Crawler) { c.writeLimit = n }
}

// New creates a Crawler reading through executor and writing to sink
func New(executor Executor, sink Sink, opts ...Option) *Crawler {
	c := &Crawler{
		executor: executor,
		sink:     sink,
		progress: NopProgress{},
		logger:   logger.NewNopLogger(),
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run crawls plan for target and returns its statistic. It never panics or
// returns early without a statistic: fetch failures, write failures and
// cancellation all end up in Statistic.Err alongside the partial counts.
//
// Cancellation is observed only between pages, so a page is either fully
// written and counted or not fetched at all.
func (c *Crawler) Run(ctx context.Context, target Target, plan Plan) (stat Statistic) {
	start := time.Now()
	stat.Resource = plan.Resource
	log := c.logger.WithFields(map[string]interface{}{
		"resource":   plan.Resource,
		"repository": target.Slug(),
	})

	var (
		cursor  string
		started bool
	)

	defer func() {
		stat.Elapsed = time.Since(start)
		if !started {
			c.progress.OnStart(plan.Resource, 0)
		}
		c.progress.OnFinish(plan.Resource)
		logger.LogStatistic(log, stat.Resource, stat.Count, stat.SizeInBytes, stat.Elapsed, stat.Err)
	}()

	for {
		if err := ctx.Err(); err != nil {
			stat.Err = err
			return stat
		}

		page, err := c.executor.Execute(ctx, plan.Query, Variables{
			Owner:    target.Owner,
			Name:     target.Name,
			Cursor:   cursor,
			PageSize: c.pageSize,
		})
		if err != nil {
			stat.Err = err
			return stat
		}
		if page == nil {
			page = &Page{}
		}

		if !started {
			c.progress.OnStart(plan.Resource, page.TotalCount)
			started = true
		}

		fresh, err := partition(page.Items, plan.TimestampField, target.Watermark)
		if err != nil {
			stat.Err = err
			return stat
		}

		written, size, err := c.writePage(ctx, plan, fresh)
		stat.Count += written
		stat.SizeInBytes += size
		if err != nil {
			stat.Err = err
			return stat
		}

		more := len(fresh) == len(page.Items) && page.HasMore
		logger.LogPage(log, plan.Resource, len(page.Items), len(fresh), page.HasMore)
		c.progress.OnAdvance(plan.Resource, len(page.Items))

		if !more {
			return stat
		}
		if page.NextCursor == "" {
			stat.Err = ErrMissingCursor
			return stat
		}
		cursor = page.NextCursor
	}
}

// partition returns the records at or after watermark, keeping their order
func partition(items []Record, field string, watermark time.Time) ([]Record, error) {
	fresh := make([]Record, 0, len(items))
	for _, item := range items {
		ts, err := item.Timestamp(field)
		if err != nil {
			return nil, err
		}
		if !ts.Before(watermark) {
			fresh = append(fresh, item)
		}
	}
	return fresh, nil
}

// writePage persists records concurrently and waits for all of them. The
// first failure cancels the writes not yet started; the returned count and
// size cover only writes that completed.
func (c *Crawler) writePage(ctx context.Context, plan Plan, records []Record) (int, int64, error) {
	if len(records) == 0 {
		return 0, 0, nil
	}

	// Writes are detached from caller cancellation so a page is never cut
	// short; only a failing sibling aborts them.
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	if c.writeLimit > 0 {
		g.SetLimit(c.writeLimit)
	}

	var count, size atomic.Int64
	for _, record := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name, err := plan.FilenameOf(record)
			if err != nil {
				return fmt.Errorf("derive %s filename: %w", plan.Resource, err)
			}
			n, err := c.sink.Write(gctx, plan.Resource, name, record)
			if err != nil {
				return fmt.Errorf("write %s/%s: %w", plan.Resource, name, err)
			}
			count.Add(1)
			size.Add(n)
			return nil
		})
	}

	err := g.Wait()
	return int(count.Load()), size.Load(), err
}
