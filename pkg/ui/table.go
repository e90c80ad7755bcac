package ui

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"ghmirror/pkg/crawler"
	"ghmirror/pkg/history"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failedStyle = cellStyle.Foreground(lipgloss.Color("1"))
)

// SinceLabel renders a watermark for humans. The zero time means the
// whole history was requested.
func SinceLabel(watermark time.Time) string {
	if watermark.IsZero() {
		return "beginning"
	}
	return watermark.UTC().Format(time.RFC3339)
}

// RenderSummary renders the per-resource result table of a crawl
func RenderSummary(s *crawler.Summary) string {
	rows := make([][]string, 0, len(s.Statistics)+1)
	for _, st := range s.Statistics {
		rows = append(rows, []string{
			st.Resource,
			strconv.Itoa(st.Count),
			humanize.Bytes(uint64(st.SizeInBytes)),
			formatSeconds(st.Elapsed),
		})
	}
	rows = append(rows, []string{
		"Total",
		strconv.Itoa(s.TotalCount()),
		humanize.Bytes(uint64(s.TotalBytes())),
		formatSeconds(s.FinishedAt.Sub(s.StartedAt)),
	})

	stats := s.Statistics
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Task", "Count", "Size", "Time").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(stats) && stats[row].Failed():
				return failedStyle
			}
			return cellStyle
		})

	return fmt.Sprintf("Fetching new items since %s finished:\n%s\nFiles written to %s\n",
		SinceLabel(s.Watermark), t.String(), s.DestinationRoot)
}

// PrintSummary writes the result table to out and one line per failed
// resource to errOut
func PrintSummary(out, errOut io.Writer, s *crawler.Summary) {
	for _, st := range s.Statistics {
		if st.Failed() {
			fmt.Fprintf(errOut, "Error while fetching %s: %s\n", st.Resource, st.ErrorMessage())
		}
	}
	fmt.Fprint(out, RenderSummary(s))
}

// RenderHistory renders recorded runs, newest first
func RenderHistory(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		status := "ok"
		if !r.Succeeded {
			status = "failed"
		}
		var bytes int64
		for _, res := range r.Resources {
			bytes += res.SizeInBytes
		}
		rows = append(rows, []string{
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Repository,
			SinceLabel(r.Watermark),
			strconv.Itoa(r.TotalCount()),
			humanize.Bytes(uint64(bytes)),
			status,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Started", "Repository", "Since", "Count", "Size", "Status").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(runs) && !runs[row].Succeeded:
				return failedStyle
			}
			return cellStyle
		})
	return t.String() + "\n"
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%ds", int64(d.Round(time.Second)/time.Second))
}
