// Package dialog sequences conversation turns: it collects missing
// appointment slots through follow-up questions, confirms destructive
// operations, dispatches completed intents to the calendar provider,
// and renders structured results back into natural language.
package dialog

import (
	"github.com/tailortalk/tailortalk/internal/intent"
	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
	"github.com/tailortalk/tailortalk/pkg/provider/llm"
)

// Phase is where a session stands in its current booking transaction.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCollectingSlots
	PhaseAwaitingConfirmation
	PhaseDispatching
)

func (p Phase) String() string {
	switch p {
	case PhaseCollectingSlots:
		return "collecting_slots"
	case PhaseAwaitingConfirmation:
		return "awaiting_confirmation"
	case PhaseDispatching:
		return "dispatching"
	default:
		return "idle"
	}
}

// historyLimit bounds the stored conversation history per session. The
// interpreter sends an even smaller window with each model request.
const historyLimit = 20

// State is the per-session conversation state. At most one pending
// intent exists at a time; the slot map is cleared only on entry to
// PhaseIdle and is monotonically filled while collecting.
//
// State is owned by the session store, which serializes access to it.
// The machine never retains a State between calls.
type State struct {
	Phase  Phase
	Intent intent.Intent
	Slots  intent.Slots

	// Target is the calendar event a pending cancel or reschedule
	// resolved to, held while awaiting the user's confirmation.
	Target *calendar.Event

	// TitlePrompted records that the title follow-up was already asked
	// once; after that an unanswered title defaults to a generic label.
	TitlePrompted bool

	History []llm.Message
}

// endTransaction clears the pending transaction and returns the
// session to idle. The conversation history survives.
func (s *State) endTransaction() {
	s.Phase = PhaseIdle
	s.Intent = intent.IntentUnknown
	s.Slots = intent.Slots{}
	s.Target = nil
	s.TitlePrompted = false
}

// remember appends one exchange to the history, trimming the oldest
// turns beyond the limit.
func (s *State) remember(utterance, reply string) {
	s.History = append(s.History,
		llm.Message{Role: llm.RoleUser, Content: utterance},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)
	if len(s.History) > historyLimit {
		s.History = s.History[len(s.History)-historyLimit:]
	}
}
