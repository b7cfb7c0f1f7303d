package dialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tailortalk/tailortalk/internal/intent"
	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
)

// Defaults mirroring the hosted calendar's booking policy.
const (
	defaultOpenHour      = 6
	defaultCloseHour     = 22
	defaultEventDuration = 60 * time.Minute
	defaultLookahead     = 7 * 24 * time.Hour
	defaultTitle         = "Appointment"
)

// Machine drives one conversation turn at a time. It owns no session
// state itself; callers pass the session's State in and the machine
// mutates it. All calendar and model calls are synchronous with the
// caller's context and are never retried here.
type Machine struct {
	classifier *intent.Classifier
	cal        calendar.Provider
	matcher    *calendar.TitleMatcher
	now        func() time.Time
	log        *slog.Logger

	openHour      int
	closeHour     int
	eventDuration time.Duration
	lookahead     time.Duration
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) MachineOption {
	return func(m *Machine) { m.now = now }
}

// WithMachineLogger sets the logger. Defaults to slog.Default().
func WithMachineLogger(log *slog.Logger) MachineOption {
	return func(m *Machine) { m.log = log }
}

// WithBusinessHours sets the bookable window as whole hours of the day.
func WithBusinessHours(open, close int) MachineOption {
	return func(m *Machine) { m.openHour, m.closeHour = open, close }
}

// WithDefaultDuration sets the event length used when the user gives
// neither an end nor a duration.
func WithDefaultDuration(d time.Duration) MachineOption {
	return func(m *Machine) { m.eventDuration = d }
}

// WithLookahead sets how far ahead upcoming-appointment queries and
// target lookups without a date reach.
func WithLookahead(d time.Duration) MachineOption {
	return func(m *Machine) { m.lookahead = d }
}

func NewMachine(classifier *intent.Classifier, cal calendar.Provider, opts ...MachineOption) *Machine {
	m := &Machine{
		classifier:    classifier,
		cal:           cal,
		matcher:       calendar.NewTitleMatcher(),
		now:           time.Now,
		log:           slog.Default(),
		openHour:      defaultOpenHour,
		closeHour:     defaultCloseHour,
		eventDuration: defaultEventDuration,
		lookahead:     defaultLookahead,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Reply is one formatted assistant turn.
type Reply struct {
	Text string

	// Degraded is set when the language model was unreachable this turn.
	// The notice is already part of Text.
	Degraded bool
}

// HandleTurn advances the session by one utterance and returns the
// reply to render. Calendar failures are not errors here; they become
// reply text and return the session to idle; the only error is a
// broken reference clock.
func (m *Machine) HandleTurn(ctx context.Context, st *State, utterance string) (Reply, error) {
	now := m.now()
	res, err := m.classifier.Classify(ctx, utterance, st.History, now)
	if err != nil {
		return Reply{}, fmt.Errorf("dialog: handle turn: %w", err)
	}

	var text string
	if st.Phase == PhaseAwaitingConfirmation {
		text = m.resolveConfirmation(ctx, st, utterance)
	} else {
		text = m.advance(ctx, st, utterance, res, now)
	}
	if res.Degraded {
		text += degradedNotice
	}

	st.remember(utterance, text)
	m.log.Debug("turn handled",
		"intent", st.Intent.String(),
		"phase", st.Phase.String(),
		"degraded", res.Degraded,
	)
	return Reply{Text: text, Degraded: res.Degraded}, nil
}

// advance folds this turn's classification into the pending transaction
// and moves the machine forward from Idle or CollectingSlots.
func (m *Machine) advance(ctx context.Context, st *State, utterance string, res intent.Result, now time.Time) string {
	if st.Phase == PhaseIdle {
		st.Intent = res.Intent
		st.Slots = res.Slots
	} else {
		m.mergeTurn(st, utterance, res)
	}

	switch st.Intent {
	case intent.IntentQuery:
		if clarify := m.clarifyStart(st); clarify != "" {
			return clarify
		}
		return m.dispatchQuery(ctx, st, now)
	case intent.IntentCreate:
		return m.advanceCreate(ctx, st, now)
	case intent.IntentCancel, intent.IntentReschedule:
		return m.advanceDestructive(ctx, st, now)
	default:
		st.endTransaction()
		return unknownReply
	}
}

// mergeTurn merges a CollectingSlots turn into the pending slot map.
// Filled slots are never discarded; a recognized intent different from
// the pending one starts the transaction over.
func (m *Machine) mergeTurn(st *State, utterance string, res intent.Result) {
	if res.Intent != intent.IntentUnknown && res.Intent != st.Intent {
		st.Intent = res.Intent
		st.Slots = res.Slots
		st.Target = nil
		st.TitlePrompted = false
		return
	}

	incoming := res.Slots
	// A bare clock time answers "what time?" for an already-known day.
	if incoming.StartTimeOnly && !st.Slots.Start.IsZero() && dateOnly(st.Slots.Start) {
		day := st.Slots.Start
		incoming.Start = time.Date(day.Year(), day.Month(), day.Day(),
			incoming.Start.Hour(), incoming.Start.Minute(), 0, 0, day.Location())
		incoming.StartTimeOnly = false
	}
	st.Slots = st.Slots.Merge(incoming)

	// A free-text reply to the title prompt is the title, even when it
	// happens to contain a booking keyword ("marketing meeting"). Only a
	// reply that brings a new datetime is something else: a correction.
	answersTitlePrompt := st.TitlePrompted && st.Slots.Title == "" &&
		(res.Intent == intent.IntentUnknown || res.Intent == st.Intent) &&
		res.Slots.Start.IsZero()
	if answersTitlePrompt {
		if t := strings.Trim(strings.Join(strings.Fields(utterance), " "), " ,."); t != "" {
			st.Slots.Title = t
		}
	}
}

func (m *Machine) advanceCreate(ctx context.Context, st *State, now time.Time) string {
	if clarify := m.clarifyStart(st); clarify != "" {
		return clarify
	}
	s := &st.Slots
	if s.Start.IsZero() {
		st.Phase = PhaseCollectingSlots
		return askStart(st.Intent)
	}
	if dateOnly(s.Start) {
		st.Phase = PhaseCollectingSlots
		return askTimeOnDate(s.Start)
	}
	if s.Title == "" {
		if !st.TitlePrompted {
			st.TitlePrompted = true
			st.Phase = PhaseCollectingSlots
			return askTitle()
		}
		s.Title = defaultTitle
	}
	if reject := m.validateStart(st, s.Start, now); reject != "" {
		return reject
	}
	return m.dispatchCreate(ctx, st)
}

func (m *Machine) advanceDestructive(ctx context.Context, st *State, now time.Time) string {
	if clarify := m.clarifyStart(st); clarify != "" {
		return clarify
	}
	if st.Slots.MissingForDispatch(st.Intent) != "" {
		st.Phase = PhaseCollectingSlots
		return askTarget()
	}

	if st.Target == nil {
		matches, errRes := m.resolveTarget(ctx, st.Intent, st.Slots, now)
		if errRes != nil {
			it := st.Intent
			st.endTransaction()
			return formatResult(it, *errRes)
		}
		switch len(matches) {
		case 0:
			it := st.Intent
			st.endTransaction()
			return formatResult(it, OperationResult{Kind: ResultNotFound})
		case 1:
			st.Target = &matches[0]
		default:
			st.Phase = PhaseCollectingSlots
			return askClarifyTarget(matches)
		}
	}

	if st.Intent == intent.IntentCancel {
		st.Phase = PhaseAwaitingConfirmation
		return confirmCancel(*st.Target)
	}

	// Reschedule also needs the new time. The start slot doubles as the
	// lookup key, so a start matching the target itself does not count.
	newStart := st.Slots.Start
	if newStart.IsZero() || dateOnly(newStart) || newStart.Equal(st.Target.Start) {
		st.Phase = PhaseCollectingSlots
		return askStart(st.Intent)
	}
	if reject := m.validateStart(st, newStart, now); reject != "" {
		return reject
	}
	st.Phase = PhaseAwaitingConfirmation
	return confirmReschedule(*st.Target, newStart)
}

// clarifyStart asks about an ambiguous date before it is used, naming
// both readings. Returns "" when no clarification is needed.
func (m *Machine) clarifyStart(st *State) string {
	s := st.Slots
	if s.Start.IsZero() || !s.StartAmbiguous {
		return ""
	}
	st.Phase = PhaseCollectingSlots
	alt := time.Date(s.Start.Year(), time.Month(s.Start.Day()), int(s.Start.Month()),
		0, 0, 0, 0, s.Start.Location())
	return askClarifyDate(s.Start, alt)
}

// validateStart rejects instants the calendar would never accept.
// Rejection ends the transaction; the user re-issues the request.
func (m *Machine) validateStart(st *State, start, now time.Time) string {
	if !start.After(now) {
		st.endTransaction()
		return pastStartReply()
	}
	if h := start.Hour(); h < m.openHour || h >= m.closeHour {
		st.endTransaction()
		return outsideHoursReply(m.openHour, m.closeHour)
	}
	return ""
}

// resolveConfirmation settles a pending destructive operation. Anything
// short of an affirmative aborts the transaction.
func (m *Machine) resolveConfirmation(ctx context.Context, st *State, utterance string) string {
	if !affirmative(utterance) {
		st.endTransaction()
		return abortedReply()
	}
	return m.dispatchDestructive(ctx, st)
}

var affirmatives = map[string]bool{
	"y": true, "yes": true, "yeah": true, "yep": true, "sure": true,
	"ok": true, "okay": true, "confirm": true, "confirmed": true,
	"correct": true, "do it": true, "go ahead": true, "please do": true,
}

func affirmative(utterance string) bool {
	u := strings.ToLower(strings.TrimRight(strings.TrimSpace(utterance), ".!"))
	return affirmatives[u] || strings.HasPrefix(u, "yes")
}

// dateOnly reports whether t carries no clock time. Midnight is the
// extractor's encoding for date-only values.
func dateOnly(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
