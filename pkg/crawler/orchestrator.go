package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ghmirror/pkg/logger"
)

// Orchestrator runs one crawl per plan against a single target
type Orchestrator struct {
	runner      Runner
	concurrency int
	logger      logger.Logger
}

// OrchestratorOption configures an Orchestrator
type OrchestratorOption func(*Orchestrator)

// WithConcurrency sets how many resources are crawled at once. 1, the
// default, crawls them one after another, which suits GitHub's limits on
// concurrent GraphQL requests.
func WithConcurrency(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithOrchestratorLogger(l logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an Orchestrator around runner
func NewOrchestrator(runner Runner, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		runner:      runner,
		concurrency: 1,
		logger:      logger.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run validates the target and plans, crawls every plan and returns the
// summary. The error return is reserved for validation failures detected
// before any crawl starts; resource failures are reported in the summary.
func (o *Orchestrator) Run(ctx context.Context, target Target, plans []Plan) (*Summary, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := ValidatePlans(plans); err != nil {
		return nil, err
	}

	started := time.Now()
	o.logger.InfoWithFields("crawl started", map[string]interface{}{
		"repository":  target.Slug(),
		"watermark":   target.Watermark,
		"resources":   len(plans),
		"concurrency": o.concurrency,
	})

	stats := make([]Statistic, len(plans))
	if o.concurrency <= 1 {
		for i, plan := range plans {
			stats[i] = o.runner.Run(ctx, target, plan)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(o.concurrency)
		for i, plan := range plans {
			g.Go(func() error {
				stats[i] = o.runner.Run(ctx, target, plan)
				return nil
			})
		}
		_ = g.Wait()
	}

	summary := summarize(target, stats, started)
	fields := map[string]interface{}{
		"repository": target.Slug(),
		"count":      summary.TotalCount(),
		"bytes":      summary.TotalBytes(),
		"elapsed":    summary.FinishedAt.Sub(started),
	}
	if summary.FirstError != nil {
		o.logger.WithError(summary.FirstError).WarnWithFields("crawl finished with errors", fields)
	} else {
		o.logger.InfoWithFields("crawl finished", fields)
	}
	return summary, nil
}

// ValidatePlans checks each plan and that resource names are unique
func ValidatePlans(plans []Plan) error {
	var errs []error
	seen := make(map[string]bool, len(plans))
	for _, p := range plans {
		if err := p.Validate(); err != nil {
			errs = append(errs, err)
		}
		if p.Resource != "" && seen[p.Resource] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicatePlan, p.Resource))
		}
		seen[p.Resource] = true
	}
	if len(plans) == 0 {
		errs = append(errs, fmt.Errorf("%w: no plans given", ErrInvalidPlan))
	}
	return errors.Join(errs...)
}
