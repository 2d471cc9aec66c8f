package source

import (
	"context"

	"go.uber.org/zap"

	"github.com/ccollicutt/auditexport/pkg/activity"
)

// FetchStatus summarizes how a category fetch ended.
type FetchStatus string

const (
	// FetchOK means every page was retrieved.
	FetchOK FetchStatus = "ok"
	// FetchPartial means an error stopped pagination after some records arrived.
	FetchPartial FetchStatus = "partial"
	// FetchError means an error occurred before any record arrived.
	FetchError FetchStatus = "error"
)

// FetchResult holds everything a fetch accumulated, including the error
// that stopped it, if any.
type FetchResult struct {
	Category string
	Records  []activity.Record
	Pages    int
	Err      error
}

// Status classifies the result.
func (r *FetchResult) Status() FetchStatus {
	switch {
	case r.Err == nil:
		return FetchOK
	case len(r.Records) > 0:
		return FetchPartial
	default:
		return FetchError
	}
}

// Fetcher drives a LogSource across pages.
type Fetcher struct {
	log *zap.Logger
}

// NewFetcher creates a Fetcher. A nil logger disables logging.
func NewFetcher(log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{log: log}
}

// Fetch retrieves all records for category within window. Pagination
// continues while the source returns a continuation token. An error stops
// the fetch for this category only: the records gathered so far are kept
// and the error is recorded in the result instead of being returned.
func (f *Fetcher) Fetch(ctx context.Context, src LogSource, category string, window Window) *FetchResult {
	result := &FetchResult{Category: category}
	token := ""

	for {
		page, err := src.List(ctx, category, window, token)
		if err != nil {
			result.Err = err
			f.log.Warn("fetch aborted",
				zap.String("category", category),
				zap.Int("pages", result.Pages),
				zap.Int("records", len(result.Records)),
				zap.Error(err))
			return result
		}

		result.Pages++
		result.Records = append(result.Records, page.Records...)

		token = page.NextPageToken
		if token == "" {
			break
		}
	}

	f.log.Debug("fetch complete",
		zap.String("category", category),
		zap.Int("pages", result.Pages),
		zap.Int("records", len(result.Records)))
	return result
}
