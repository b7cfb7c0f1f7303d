// Package intent turns a single user utterance into a scheduling intent
// and a set of appointment slots. Temporal values always come from the
// deterministic extractor; a language model, when one is reachable,
// contributes the intent category and the appointment title.
package intent

import "time"

// Intent is the scheduling action a user is asking for.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentCreate
	IntentQuery
	IntentCancel
	IntentReschedule
)

func (i Intent) String() string {
	switch i {
	case IntentCreate:
		return "create"
	case IntentQuery:
		return "query"
	case IntentCancel:
		return "cancel"
	case IntentReschedule:
		return "reschedule"
	default:
		return "unknown"
	}
}

// Destructive reports whether dispatching i removes or replaces an
// existing appointment and therefore needs explicit confirmation.
func (i Intent) Destructive() bool {
	return i == IntentCancel || i == IntentReschedule
}

// Slots holds the appointment details collected so far. Every field is
// filled-or-missing; the zero value means missing.
type Slots struct {
	Title         string
	Start         time.Time
	End           time.Time
	Duration      time.Duration
	TargetEventID string

	// StartAmbiguous marks Start as derived from an expression with more
	// than one plausible reading. It travels with Start: overwriting
	// Start replaces it.
	StartAmbiguous bool

	// StartTimeOnly marks Start as inferred from a bare clock time with
	// no date in the utterance. It travels with Start like StartAmbiguous.
	StartTimeOnly bool
}

// Merge overlays the filled fields of in onto s and returns the result.
// A filled field of s is only ever replaced by a filled field of in,
// never cleared.
func (s Slots) Merge(in Slots) Slots {
	if in.Title != "" {
		s.Title = in.Title
	}
	if !in.Start.IsZero() {
		s.Start = in.Start
		s.StartAmbiguous = in.StartAmbiguous
		s.StartTimeOnly = in.StartTimeOnly
	}
	if !in.End.IsZero() {
		s.End = in.End
	}
	if in.Duration != 0 {
		s.Duration = in.Duration
	}
	if in.TargetEventID != "" {
		s.TargetEventID = in.TargetEventID
	}
	return s
}

// MissingForDispatch returns the follow-up slot still needed before the
// given intent can be dispatched, or "" when the slots suffice.
func (s Slots) MissingForDispatch(i Intent) string {
	switch i {
	case IntentCreate:
		if s.Start.IsZero() {
			return "start"
		}
	case IntentCancel, IntentReschedule:
		if s.TargetEventID == "" && s.Start.IsZero() && s.Title == "" {
			return "target"
		}
	}
	return ""
}
