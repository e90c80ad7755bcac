package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, config map[string]interface{}) {
	l = l.WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Debug("component started")
}

// LogPage records one fetched page of a resource at debug level
func LogPage(l Logger, resource string, items, fresh int, hasMore bool) {
	l.DebugWithFields("page fetched", map[string]interface{}{
		"resource": resource,
		"items":    items,
		"fresh":    fresh,
		"has_more": hasMore,
	})
}

// LogStatistic records the outcome of one resource crawl
func LogStatistic(l Logger, resource string, count int, bytes int64, elapsed time.Duration, err error) {
	fields := map[string]interface{}{
		"resource": resource,
		"count":    count,
		"bytes":    bytes,
		"elapsed":  elapsed,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("resource crawl failed", fields)
		return
	}
	l.InfoWithFields("resource crawl finished", fields)
}

// NewNopLogger returns a Logger that discards everything
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                                   {}
func (nopLogger) Info(string)                                    {}
func (nopLogger) Warn(string)                                    {}
func (nopLogger) Error(string)                                   {}
func (nopLogger) Fatal(string)                                   {}
func (n nopLogger) WithField(string, interface{}) Logger         { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger     { return n }
func (n nopLogger) WithError(error) Logger                       { return n }
func (n nopLogger) WithContext(context.Context) Logger           { return n }
func (nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (nopLogger) ErrorWithFields(string, map[string]interface{}) {}
func (nopLogger) FatalWithFields(string, map[string]interface{}) {}

func (nopLogger) GetZerolog() *zerolog.Logger {
	nop := zerolog.Nop()
	return &nop
}
