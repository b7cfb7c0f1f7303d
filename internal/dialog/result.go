package dialog

import (
	"time"

	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
)

// ResultKind classifies the outcome of a dispatched calendar operation.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultConflict
	ResultNotFound
	ResultProviderError
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultConflict:
		return "conflict"
	case ResultNotFound:
		return "not_found"
	default:
		return "provider_error"
	}
}

// OperationResult is what dispatching an intent produced. The formatter
// turns it into reply text; nothing else consumes it.
type OperationResult struct {
	Kind    ResultKind
	EventID calendar.EventID

	// Event is the appointment the operation acted on, when known.
	Event *calendar.Event

	// Conflicts holds the overlapping events behind a ResultConflict.
	Conflicts []calendar.Event

	// Alternatives holds free start times offered alongside a
	// ResultConflict. Best effort; may be empty.
	Alternatives []time.Time

	// Detail is the provider's error text for ResultProviderError.
	Detail string
}
