package dialog

import (
	"context"
	"errors"
	"time"

	"github.com/tailortalk/tailortalk/internal/intent"
	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
)

// This file is the only place the machine talks to the calendar
// provider. Provider errors never leave as Go errors; they become
// OperationResult values and the transaction ends.

// dispatchQuery answers an availability question. With a date it lists
// the free slots of that day inside business hours; without one it
// lists the upcoming appointments.
func (m *Machine) dispatchQuery(ctx context.Context, st *State, now time.Time) string {
	st.Phase = PhaseDispatching
	defer st.endTransaction()

	if !st.Slots.Start.IsZero() {
		day := startOfDay(st.Slots.Start)
		events, err := m.cal.ListEvents(ctx, calendar.TimeRange{From: day, To: day.AddDate(0, 0, 1)})
		if err != nil {
			return formatResult(intent.IntentQuery, providerFailure(err))
		}
		opens := day.Add(time.Duration(m.openHour) * time.Hour)
		closes := day.Add(time.Duration(m.closeHour) * time.Hour)
		return freeSlotsReply(day, calendar.FreeSlots(events, opens, closes, 30*time.Minute))
	}

	events, err := m.cal.ListEvents(ctx, calendar.TimeRange{From: now, To: now.Add(m.lookahead)})
	if err != nil {
		return formatResult(intent.IntentQuery, providerFailure(err))
	}
	return upcomingReply(events)
}

// dispatchCreate books the completed slot map. A conflict does not end
// the transaction: the start is cleared and the title retained, and the
// user is asked for another time.
func (m *Machine) dispatchCreate(ctx context.Context, st *State) string {
	s := st.Slots
	end := s.End
	if end.IsZero() {
		d := s.Duration
		if d == 0 {
			d = m.eventDuration
		}
		end = s.Start.Add(d)
	}

	st.Phase = PhaseDispatching
	conflicts, err := m.cal.FindConflicts(ctx, s.Start, end)
	if err != nil {
		st.endTransaction()
		return formatResult(intent.IntentCreate, providerFailure(err))
	}
	if len(conflicts) > 0 {
		alternatives := m.suggestAlternatives(ctx, s.Start, end.Sub(s.Start))
		st.Phase = PhaseCollectingSlots
		st.Slots.Start = time.Time{}
		st.Slots.End = time.Time{}
		st.Slots.StartAmbiguous = false
		st.Slots.StartTimeOnly = false
		return formatResult(intent.IntentCreate, OperationResult{
			Kind:         ResultConflict,
			Conflicts:    conflicts,
			Alternatives: alternatives,
		})
	}

	id, err := m.cal.CreateEvent(ctx, s.Title, s.Start, end)
	if err != nil {
		st.endTransaction()
		return formatResult(intent.IntentCreate, providerFailure(err))
	}
	ev := calendar.Event{ID: id, Title: s.Title, Start: s.Start, End: end}
	st.endTransaction()
	return formatResult(intent.IntentCreate, OperationResult{Kind: ResultSuccess, EventID: id, Event: &ev})
}

// suggestAlternatives lists up to three free start times on the day of
// the rejected booking. Best effort: a listing failure just means no
// suggestions, the conflict reply stands on its own.
func (m *Machine) suggestAlternatives(ctx context.Context, start time.Time, length time.Duration) []time.Time {
	day := startOfDay(start)
	events, err := m.cal.ListEvents(ctx, calendar.TimeRange{From: day, To: day.AddDate(0, 0, 1)})
	if err != nil {
		return nil
	}
	opens := day.Add(time.Duration(m.openHour) * time.Hour)
	closes := day.Add(time.Duration(m.closeHour) * time.Hour)
	return calendar.SuggestSlots(events, opens, closes, length, 3)
}

// dispatchDestructive executes a confirmed cancel or reschedule against
// the resolved target. Reschedule is cancel-then-create; a failure
// between the two is surfaced as-is, the provider being the arbiter.
func (m *Machine) dispatchDestructive(ctx context.Context, st *State) string {
	it := st.Intent
	target := *st.Target
	st.Phase = PhaseDispatching
	newStart := st.Slots.Start
	st.endTransaction()

	if err := m.cal.CancelEvent(ctx, target.ID); err != nil {
		if errors.Is(err, calendar.ErrNotFound) {
			return formatResult(it, OperationResult{Kind: ResultNotFound})
		}
		return formatResult(it, providerFailure(err))
	}
	if it == intent.IntentCancel {
		return formatResult(it, OperationResult{Kind: ResultSuccess, EventID: target.ID, Event: &target})
	}

	length := target.End.Sub(target.Start)
	if length <= 0 {
		length = m.eventDuration
	}
	newEnd := newStart.Add(length)
	id, err := m.cal.CreateEvent(ctx, target.Title, newStart, newEnd)
	if err != nil {
		return formatResult(it, providerFailure(err))
	}
	moved := calendar.Event{ID: id, Title: target.Title, Start: newStart, End: newEnd}
	return formatResult(it, OperationResult{Kind: ResultSuccess, EventID: id, Event: &moved})
}

// resolveTarget finds the events a cancel/reschedule refers to. The
// start slot keys the lookup window only when it actually identifies
// the target; for a reschedule with a title or event id, the start is
// the new time and the lookahead window is searched instead.
func (m *Machine) resolveTarget(ctx context.Context, it intent.Intent, s intent.Slots, now time.Time) ([]calendar.Event, *OperationResult) {
	startIsKey := !s.Start.IsZero() &&
		(it != intent.IntentReschedule || (s.Title == "" && s.TargetEventID == ""))

	window := calendar.TimeRange{From: now, To: now.Add(m.lookahead)}
	if startIsKey {
		day := startOfDay(s.Start)
		window = calendar.TimeRange{From: day, To: day.AddDate(0, 0, 1)}
	}

	events, err := m.cal.ListEvents(ctx, window)
	if err != nil {
		res := providerFailure(err)
		return nil, &res
	}

	if s.TargetEventID != "" {
		for _, ev := range events {
			if ev.ID == calendar.EventID(s.TargetEventID) {
				return []calendar.Event{ev}, nil
			}
		}
		return nil, nil
	}

	if startIsKey && !dateOnly(s.Start) {
		var exact []calendar.Event
		for _, ev := range events {
			if ev.Start.Equal(s.Start) {
				exact = append(exact, ev)
			}
		}
		if len(exact) > 0 {
			events = exact
		}
	}

	if s.Title != "" {
		return m.matcher.Match(s.Title, events), nil
	}
	return events, nil
}

func providerFailure(err error) OperationResult {
	return OperationResult{Kind: ResultProviderError, Detail: err.Error()}
}
