// Package calendar defines the Provider interface for calendar backends.
//
// A calendar provider wraps an externally hosted calendar service (e.g.,
// Google Calendar) behind four operations consumed by the dialog state
// machine: create, list, conflict lookup, and cancel. The core depends only
// on this interface shape, never on a vendor's request/response schema. The
// provider is the source of truth and arbiter of conflicts; the core never
// retries a failed mutation and never resolves a conflict on its own.
//
// Implementors must be safe for concurrent use.
package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by [Provider.CancelEvent] when no event exists
// with the given ID. Re-submitting a cancellation for an already-removed
// event must yield this error, never a crash or a provider fault.
var ErrNotFound = errors.New("calendar: event not found")

// EventID identifies an event within the provider's calendar.
type EventID string

// Event is the provider-neutral representation of a calendar entry.
type Event struct {
	// ID is the provider-assigned event identifier.
	ID EventID

	// Title is the event summary shown to the user.
	Title string

	// Start and End bound the event. End is always after Start for events
	// the core creates; providers may return zero End for all-day entries.
	Start time.Time
	End   time.Time

	// Description and Location are optional free-text fields.
	Description string
	Location    string
}

// TimeRange is a half-open interval [From, To) used for event queries.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Overlaps reports whether the event overlaps the interval [start, end).
func (e Event) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// Provider is the abstraction over any calendar backend.
type Provider interface {
	// CreateEvent inserts a new event and returns its provider-assigned ID.
	CreateEvent(ctx context.Context, title string, start, end time.Time) (EventID, error)

	// ListEvents returns all events within r, ordered by start time.
	ListEvents(ctx context.Context, r TimeRange) ([]Event, error)

	// FindConflicts returns the events that overlap [start, end).
	FindConflicts(ctx context.Context, start, end time.Time) ([]Event, error)

	// CancelEvent removes the event with the given ID.
	// Returns [ErrNotFound] when no such event exists.
	CancelEvent(ctx context.Context, id EventID) error
}
