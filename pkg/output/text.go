package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ccollicutt/auditexport/pkg/exporter"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		_, err := fmt.Fprintf(w, "auditexport: %s\n", report.Summary.Message)
		return err
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== Audit Export Report ===")
	fmt.Fprintln(w)

	if report.Run.State == exporter.StateNothingToDo {
		fmt.Fprintln(w, "Nothing to do: every day in the lookback window is already exported.")
	} else {
		fmt.Fprintf(w, "Day: %s\n", report.Summary.Day)
		if win := report.Run.Window; win != nil {
			fmt.Fprintf(w, "Window: %s to %s\n", win.Start.Format(time.RFC3339), win.End.Format(time.RFC3339))
		}
		fmt.Fprintln(w)

		for i := range report.Run.Categories {
			f.formatCategory(&report.Run.Categories[i], w)
		}
	}

	fmt.Fprintln(w, "---")
	_, err := fmt.Fprintf(w, "Summary: %s\n", report.Summary.Message)
	if err != nil {
		return err
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "Run ID: %s\n", report.Run.RunID)
		fmt.Fprintf(w, "Records fetched: %d\n", report.Summary.RecordsFetched)
		fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(1e6))
	}

	return nil
}

func (f *TextFormatter) formatCategory(c *exporter.CategoryResult, w io.Writer) {
	fmt.Fprintf(w, "[%s] %-22s %6d rows", strings.ToUpper(string(c.Status)), c.Category, c.RowsWritten)
	if f.opts.Verbose {
		fmt.Fprintf(w, "  (%d records, %d pages, archive %d rows)", c.RecordsFetched, c.Pages, c.ArchiveRows)
	}
	fmt.Fprintln(w)

	if c.FetchError != "" {
		fmt.Fprintf(w, "  fetch: %s\n", c.FetchError)
	}
	if c.MergeError != "" {
		fmt.Fprintf(w, "  merge: %s\n", c.MergeError)
	}
	if f.opts.Verbose && c.ArchivePath != "" {
		fmt.Fprintf(w, "  archive: %s\n", c.ArchivePath)
	}
}
