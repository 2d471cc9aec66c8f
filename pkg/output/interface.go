package output

import (
	"context"
	"io"
)

// Formatter renders run reports in a specific format.
type Formatter interface {
	// Format renders the report to the given writer.
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose adds archive paths and page counts.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool
}

// New returns the formatter for name, or nil if name is unknown.
func New(name string, opts FormatOptions) Formatter {
	switch name {
	case "text", "":
		return NewTextFormatter(opts)
	case "json":
		return NewJSONFormatter(opts)
	default:
		return nil
	}
}
