package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	admin "google.golang.org/api/admin/reports/v1"

	"github.com/ccollicutt/auditexport/pkg/activity"
)

// DefaultPageSize is the largest page the Reports API accepts.
const DefaultPageSize = 1000

// ReportsSource implements LogSource on the Admin SDK Reports API.
type ReportsSource struct {
	svc      *admin.Service
	userKey  string
	pageSize int64
}

// ReportsOption configures a ReportsSource.
type ReportsOption func(*ReportsSource)

// WithPageSize sets maxResults for each request.
func WithPageSize(n int) ReportsOption {
	return func(s *ReportsSource) {
		if n > 0 {
			s.pageSize = int64(n)
		}
	}
}

// NewReportsSource wraps an authenticated Reports service.
func NewReportsSource(svc *admin.Service, opts ...ReportsOption) *ReportsSource {
	s := &ReportsSource{
		svc:      svc,
		userKey:  "all",
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List fetches one page of activities for the category (application name).
func (s *ReportsSource) List(ctx context.Context, category string, window Window, pageToken string) (Page, error) {
	call := s.svc.Activities.List(s.userKey, category).
		StartTime(window.Start.UTC().Format(time.RFC3339)).
		EndTime(window.End.UTC().Format(time.RFC3339)).
		MaxResults(s.pageSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return Page{}, fmt.Errorf("listing %s activities: %w", category, err)
	}

	page := Page{
		Records:       make([]activity.Record, 0, len(resp.Items)),
		NextPageToken: resp.NextPageToken,
	}
	for _, item := range resp.Items {
		if item == nil {
			continue
		}
		page.Records = append(page.Records, toRecord(item))
	}
	return page, nil
}

func toRecord(a *admin.Activity) activity.Record {
	rec := activity.Record{IPAddress: a.IpAddress}
	if a.Id != nil {
		rec.Time = a.Id.Time
	}
	if a.Actor != nil {
		rec.ActorEmail = a.Actor.Email
	}
	for _, ev := range a.Events {
		if ev == nil {
			continue
		}
		rec.Events = append(rec.Events, toEvent(ev))
	}
	return rec
}

func toEvent(ev *admin.ActivityEvents) activity.Event {
	out := activity.Event{Name: ev.Name, Type: ev.Type}
	for _, p := range ev.Parameters {
		if p == nil {
			continue
		}
		out.Parameters = append(out.Parameters, toParameter(p))
	}
	return out
}

// toParameter maps the typed API parameter onto the scalar/multi-value
// pair. Integer and boolean values are rendered as strings; a zero or
// false value is indistinguishable from an absent one after decoding.
func toParameter(p *admin.ActivityEventsParameters) activity.Parameter {
	param := activity.Parameter{
		Name:       p.Name,
		Value:      p.Value,
		MultiValue: p.MultiValue,
	}
	if param.Value != "" || len(param.MultiValue) > 0 {
		return param
	}

	switch {
	case len(p.MultiIntValue) > 0:
		vals := make([]string, len(p.MultiIntValue))
		for i, v := range p.MultiIntValue {
			vals[i] = strconv.FormatInt(v, 10)
		}
		param.MultiValue = vals
	case p.IntValue != 0:
		param.Value = strconv.FormatInt(p.IntValue, 10)
	case p.BoolValue:
		param.Value = strconv.FormatBool(p.BoolValue)
	}
	return param
}
