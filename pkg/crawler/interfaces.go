package crawler

import "context"

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_crawler.go -package=mocks

// Executor fetches one page of a resource. It does not retry; a returned
// error ends the resource's crawl.
type Executor interface {
	Execute(ctx context.Context, query Query, vars Variables) (*Page, error)
}

// Sink persists one record and returns the exact number of bytes written.
// Writing the same filename again must overwrite, not duplicate.
type Sink interface {
	Write(ctx context.Context, resource, filename string, record Record) (int64, error)
}

// Progress receives page-boundary notifications. Calls for different
// resources may arrive concurrently. Every resource gets exactly one OnStart
// before its OnFinish; a resource that fails before its first page starts
// with a total of 0.
type Progress interface {
	OnStart(resource string, total int)
	OnAdvance(resource string, n int)
	OnFinish(resource string)
}

// Runner crawls a single plan. *Crawler is the production implementation.
type Runner interface {
	Run(ctx context.Context, target Target, plan Plan) Statistic
}

// NopProgress discards all progress notifications
type NopProgress struct{}

func (NopProgress) OnStart(string, int)   {}
func (NopProgress) OnAdvance(string, int) {}
func (NopProgress) OnFinish(string)       {}
