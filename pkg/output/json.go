package output

import (
	"context"
	"encoding/json"
	"io"
)

// JSONFormatter formats reports as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

// runLine is the single-line record written in quiet mode. Scheduled runs
// can append it to a JSON Lines history file.
type runLine struct {
	RunID string `json:"run_id,omitempty"`
	Summary
	Incomplete []string `json:"incomplete,omitempty"`
}

// Format renders the report as JSON. Quiet mode writes one compact line per
// run; otherwise the full report is indented.
func (f *JSONFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)

	if f.opts.Quiet {
		line := runLine{Summary: report.Summary}
		if report.Run != nil {
			line.RunID = report.Run.RunID
			for _, c := range report.Run.Failed() {
				line.Incomplete = append(line.Incomplete, c.Category)
			}
		}
		return encoder.Encode(line)
	}

	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
