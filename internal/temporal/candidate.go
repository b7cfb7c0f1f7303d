// Package temporal extracts date/time expressions from free-form text and
// normalizes them against a reference instant.
//
// The extractor is a pure function: no clock access, no network, no state.
// Given the same text and reference instant it always produces the same
// candidates, and every relative expression resolves to the present or the
// future, never the past. Unparseable text is not an error, it simply
// yields no candidates.
package temporal

import (
	"errors"
	"time"
)

// ErrZeroReference is returned by [Extract] when the reference instant is the
// zero time. It is the only failure mode of the extractor.
var ErrZeroReference = errors.New("temporal: reference instant must not be zero")

// Precision states how much of a Candidate's Start the source text actually
// pinned down.
type Precision int

const (
	// PrecisionDate means only the calendar day is known; Start is midnight
	// in the reference location.
	PrecisionDate Precision = iota

	// PrecisionDateTime means both the day and the clock time are known.
	PrecisionDateTime
)

// String returns the human-readable name of the precision.
func (p Precision) String() string {
	switch p {
	case PrecisionDate:
		return "date"
	case PrecisionDateTime:
		return "date-time"
	default:
		return "unknown"
	}
}

// Span marks the source bytes in the utterance that produced a candidate,
// as a half-open interval [Start, End).
type Span struct {
	Start int
	End   int
}

// Candidate is one parsed, normalized date/time value. Candidates are
// immutable after creation; multiple candidates may coexist for a single
// utterance when the input is ambiguous.
type Candidate struct {
	// Start is the resolved instant in the reference instant's location.
	Start time.Time

	// End is the resolved end instant, zero when the text gave no end.
	End time.Time

	// Duration is the explicit duration found in the text ("for 2 hours"),
	// zero when absent. When both Duration and a time are known, End is
	// Start + Duration.
	Duration time.Duration

	// Precision reports whether a clock time was present.
	Precision Precision

	// Span locates the source expression within the utterance.
	Span Span

	// Text is the matched source text, as written by the user.
	Text string

	// Ambiguous is set when the expression has more than one plausible
	// reading (e.g. "3/4": March 4th or April 3rd). Consumers must ask a
	// clarifying question rather than silently guessing.
	Ambiguous bool

	// TimeOnly is set when the text gave a clock time but no date, so the
	// calendar day was inferred (soonest present-or-future occurrence).
	// Consumers holding a pending date can re-anchor the clock time onto it.
	TimeOnly bool
}
