package log

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// WriteSummary renders the outcome counts of a run.
func WriteSummary(w io.Writer, meta Metadata) error {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault
	title := "Run summary"
	if meta.Mode != ModeLive {
		title = fmt.Sprintf("Run summary (%s, nothing was moved)", meta.Mode)
	}
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Processed", "Relocated", "Skipped", "Quarantined", "Failed"})
	s := meta.Summary
	tw.AppendRow(table.Row{s.Processed, s.Relocated, s.Skipped, s.Quarantined, s.Failed})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

// WriteEntries renders one row per file: source name, outcome, confidence and
// destination.
func WriteEntries(w io.Writer, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault
	tw.AppendHeader(table.Row{"File", "Outcome", "Confidence", "Destination"})
	for _, e := range entries {
		dest := e.Destination
		if e.Error != "" {
			dest = "error: " + e.Error
		} else if dest == "" && e.Reason != "" {
			dest = e.Reason
		}
		tw.AppendRow(table.Row{filepath.Base(e.Source), string(e.Outcome), strconv.Itoa(e.Confidence), dest})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 60},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, WidthMax: 80},
	})
	_, err := fmt.Fprintln(w, tw.Render())
	return err
}

// FormatRelativeTime renders t relative to now for listings.
func FormatRelativeTime(t time.Time) string {
	duration := time.Since(t)
	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		mins := int(duration.Minutes())
		return fmt.Sprintf("%d minute%s ago", mins, plural(mins))
	case duration < 24*time.Hour:
		hours := int(duration.Hours())
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case duration < 7*24*time.Hour:
		days := int(duration.Hours() / 24)
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
