// Package crawler implements the incremental crawl engine.
//
// A Crawler walks one resource kind page by page, newest history first. It
// writes every record whose update timestamp is at or after the target's
// watermark, and stops as soon as a page contains a stale record or the
// source has no more pages. An Orchestrator runs one Crawler pass per Plan
// and folds the per-resource Statistics into a Summary.
//
// The engine knows nothing about GraphQL or files: queries are opaque Query
// values handed to an Executor, and records are persisted through a Sink.
package crawler
