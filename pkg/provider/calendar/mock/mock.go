// Package mock provides a test double for the calendar.Provider interface.
//
// Provider keeps events in an in-memory slice so state-machine tests can
// drive full book/list/cancel flows without a live backend. Error fields
// override the in-memory behavior when set.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
)

// CreateCall records a single invocation of CreateEvent.
type CreateCall struct {
	Title string
	Start time.Time
	End   time.Time
}

// Provider is an in-memory mock implementation of calendar.Provider.
type Provider struct {
	mu     sync.Mutex
	nextID int

	// Events is the current event set. May be pre-seeded by tests.
	Events []calendar.Event

	// CreateErr, ListErr, ConflictsErr, CancelErr inject errors into the
	// corresponding methods when non-nil.
	CreateErr    error
	ListErr      error
	ConflictsErr error
	CancelErr    error

	// CreateCalls records every CreateEvent invocation in order.
	CreateCalls []CreateCall

	// CancelCalls records every CancelEvent invocation in order.
	CancelCalls []calendar.EventID
}

// Compile-time interface assertion.
var _ calendar.Provider = (*Provider)(nil)

// CreateEvent implements calendar.Provider.
func (p *Provider) CreateEvent(_ context.Context, title string, start, end time.Time) (calendar.EventID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CreateCalls = append(p.CreateCalls, CreateCall{Title: title, Start: start, End: end})
	if p.CreateErr != nil {
		return "", p.CreateErr
	}

	p.nextID++
	id := calendar.EventID(fmt.Sprintf("evt-%d", p.nextID))
	p.Events = append(p.Events, calendar.Event{
		ID:    id,
		Title: title,
		Start: start,
		End:   end,
	})
	return id, nil
}

// ListEvents implements calendar.Provider.
func (p *Provider) ListEvents(_ context.Context, r calendar.TimeRange) ([]calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ListErr != nil {
		return nil, p.ListErr
	}

	var out []calendar.Event
	for _, e := range p.Events {
		if e.Overlaps(r.From, r.To) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// FindConflicts implements calendar.Provider.
func (p *Provider) FindConflicts(_ context.Context, start, end time.Time) ([]calendar.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ConflictsErr != nil {
		return nil, p.ConflictsErr
	}

	var out []calendar.Event
	for _, e := range p.Events {
		if e.Overlaps(start, end) {
			out = append(out, e)
		}
	}
	return out, nil
}

// CancelEvent implements calendar.Provider.
func (p *Provider) CancelEvent(_ context.Context, id calendar.EventID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.CancelCalls = append(p.CancelCalls, id)
	if p.CancelErr != nil {
		return p.CancelErr
	}

	for i, e := range p.Events {
		if e.ID == id {
			p.Events = append(p.Events[:i], p.Events[i+1:]...)
			return nil
		}
	}
	return calendar.ErrNotFound
}
