// Package source provides access to remote audit activity: the LogSource
// interface, a paginating fetcher, and the Admin SDK Reports implementation.
package source

import (
	"context"

	"github.com/ccollicutt/auditexport/pkg/activity"
)

// LogSource lists raw activity records for one category and time window.
// Authentication and transport are the implementation's concern.
type LogSource interface {
	// List returns one page of records. An empty pageToken requests the
	// first page. Page.NextPageToken is empty on the last page.
	List(ctx context.Context, category string, window Window, pageToken string) (Page, error)
}

// Page is one response from a LogSource.
type Page struct {
	Records       []activity.Record
	NextPageToken string
}
