// Package ui renders crawl progress and results for the terminal.
//
// LineReporter and the bubbletea Reporter in the tui subpackage implement
// crawler.Progress. RenderSummary prints the final per-resource table.
package ui
