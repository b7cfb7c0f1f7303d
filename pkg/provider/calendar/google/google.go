// Package google implements the calendar.Provider interface against the
// Google Calendar v3 API using service-account credentials.
package google

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
)

// Provider implements calendar.Provider backed by a single Google calendar.
type Provider struct {
	service    *gcal.Service
	calendarID string
}

// Compile-time interface assertion.
var _ calendar.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	calendarID string
	httpClient *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithCalendarID selects the calendar to operate on. Default: "primary".
func WithCalendarID(id string) Option {
	return func(c *config) {
		c.calendarID = id
	}
}

// WithHTTPClient overrides the authenticated HTTP client. Intended for tests
// that point the service at a local fake.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// New creates a Provider authenticated with the service-account JSON key at
// credentialsPath. The service account must have access to the target
// calendar (share the calendar with the account's client email).
func New(ctx context.Context, credentialsPath string, opts ...Option) (*Provider, error) {
	cfg := &config{calendarID: "primary"}
	for _, o := range opts {
		o(cfg)
	}

	client := cfg.httpClient
	if client == nil {
		data, err := os.ReadFile(credentialsPath)
		if err != nil {
			return nil, fmt.Errorf("google calendar: read credentials %q: %w", credentialsPath, err)
		}
		jwtCfg, err := google.JWTConfigFromJSON(data, gcal.CalendarScope)
		if err != nil {
			return nil, fmt.Errorf("google calendar: parse credentials: %w", err)
		}
		client = jwtCfg.Client(ctx)
	}

	service, err := gcal.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("google calendar: create service: %w", err)
	}

	return &Provider{service: service, calendarID: cfg.calendarID}, nil
}

// CreateEvent implements calendar.Provider.
func (p *Provider) CreateEvent(ctx context.Context, title string, start, end time.Time) (calendar.EventID, error) {
	event := &gcal.Event{
		Summary: title,
		Start: &gcal.EventDateTime{
			DateTime: start.Format(time.RFC3339),
		},
		End: &gcal.EventDateTime{
			DateTime: end.Format(time.RFC3339),
		},
	}

	created, err := p.service.Events.Insert(p.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("google calendar: insert event: %w", err)
	}
	return calendar.EventID(created.Id), nil
}

// ListEvents implements calendar.Provider. Recurring events are expanded to
// single instances and returned in start-time order.
func (p *Provider) ListEvents(ctx context.Context, r calendar.TimeRange) ([]calendar.Event, error) {
	resp, err := p.service.Events.List(p.calendarID).
		TimeMin(r.From.Format(time.RFC3339)).
		TimeMax(r.To.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("google calendar: list events: %w", err)
	}

	var out []calendar.Event
	for _, item := range resp.Items {
		out = append(out, convertEvent(item))
	}
	return out, nil
}

// FindConflicts implements calendar.Provider. It lists events within
// [start, end) and filters for true overlap, since the API's TimeMin/TimeMax
// window alone also returns events merely touching the boundary.
func (p *Provider) FindConflicts(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	events, err := p.ListEvents(ctx, calendar.TimeRange{From: start, To: end})
	if err != nil {
		return nil, err
	}

	var conflicts []calendar.Event
	for _, e := range events {
		if e.Overlaps(start, end) {
			conflicts = append(conflicts, e)
		}
	}
	return conflicts, nil
}

// CancelEvent implements calendar.Provider. A 404 or 410 from the API is
// mapped to [calendar.ErrNotFound] so re-cancelling an already-removed event
// is reported cleanly.
func (p *Provider) CancelEvent(ctx context.Context, id calendar.EventID) error {
	err := p.service.Events.Delete(p.calendarID, string(id)).Context(ctx).Do()
	if err != nil {
		if gerr, ok := err.(*googleapi.Error); ok &&
			(gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone) {
			return calendar.ErrNotFound
		}
		return fmt.Errorf("google calendar: delete event: %w", err)
	}
	return nil
}

// convertEvent maps a Google API event to the provider-neutral Event.
// All-day events carry only a date; they are parsed at midnight with a
// zero End left for the caller to interpret.
func convertEvent(item *gcal.Event) calendar.Event {
	e := calendar.Event{
		ID:          calendar.EventID(item.Id),
		Title:       item.Summary,
		Description: item.Description,
		Location:    item.Location,
	}
	if item.Start != nil {
		e.Start = parseEventTime(item.Start)
	}
	if item.End != nil {
		e.End = parseEventTime(item.End)
	}
	return e
}

func parseEventTime(t *gcal.EventDateTime) time.Time {
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		if err == nil {
			return parsed
		}
	}
	if t.Date != "" {
		parsed, err := time.Parse("2006-01-02", t.Date)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}
