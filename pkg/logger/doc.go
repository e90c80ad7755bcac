// Package logger provides the structured logging interface used across ghmirror.
//
// It wraps zerolog. Console output is a colored ConsoleWriter on stderr so that
// it never interleaves with result tables on stdout; when a log file is
// configured, output goes to a lumberjack-rotated file instead.
//
//	logger.Initialize(&cfg.Logging)
//	logger.WithField("resource", "issues").Info("crawl started")
//
// Libraries accept a Logger and default to NewNopLogger when none is given.
// Tests use NewTestLogger to assert on emitted messages.
package logger
