package intent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/tailortalk/tailortalk/internal/temporal"
	"github.com/tailortalk/tailortalk/pkg/provider/llm"
)

// Result is the outcome of classifying one utterance.
type Result struct {
	Intent Intent
	Slots  Slots

	// Degraded is set when the language model was unreachable and the
	// intent came from the keyword heuristic alone. The user is told.
	Degraded bool
}

// Classifier combines the temporal extractor, a keyword heuristic, and
// an optional language-model interpreter. The extractor always wins on
// temporal values; the interpreter, when reachable, wins on the intent
// category and the title.
type Classifier struct {
	interp *Interpreter
	log    *slog.Logger
}

// ClassifierOption configures a Classifier.
type ClassifierOption func(*Classifier)

// WithInterpreter attaches a language-model interpreter.
func WithInterpreter(i *Interpreter) ClassifierOption {
	return func(c *Classifier) { c.interp = i }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) ClassifierOption {
	return func(c *Classifier) { c.log = log }
}

func NewClassifier(opts ...ClassifierOption) *Classifier {
	c := &Classifier{log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify analyzes one utterance against the reference instant now.
// history carries prior turns for the interpreter; it may be nil. The
// only error is a zero now.
func (c *Classifier) Classify(ctx context.Context, utterance string, history []llm.Message, now time.Time) (Result, error) {
	candidates, err := temporal.Extract(utterance, now)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Intent: keywordIntent(utterance),
		Slots:  slotsFromText(utterance, candidates),
	}

	if c.interp == nil {
		return res, nil
	}

	hint, err := c.interp.Interpret(ctx, utterance, history, now)
	switch {
	case errors.Is(err, ErrBadPayload):
		// The model answered but not in the agreed shape. The keyword
		// heuristic stands; the session is not degraded.
		c.log.Warn("interpreter payload unusable, keeping keyword intent", "error", err)
	case err != nil:
		c.log.Warn("interpreter unavailable, falling back to keywords", "error", err)
		res.Degraded = true
	default:
		res.Intent = hint.Intent
		if hint.Title != "" {
			res.Slots.Title = hint.Title
		}
	}
	return res, nil
}

// slotsFromText builds the slot set for one utterance: temporal values
// from the first extractor candidate, the title from the pattern scan
// with temporal expressions scrubbed out first.
func slotsFromText(utterance string, candidates []temporal.Candidate) Slots {
	var s Slots
	if len(candidates) > 0 {
		first := candidates[0]
		s.Start = first.Start
		s.End = first.End
		s.Duration = first.Duration
		s.StartAmbiguous = first.Ambiguous
		s.StartTimeOnly = first.TimeOnly
	}

	s.Title = scanTitle(scrubSpans(utterance, candidates))
	return s
}

// scrubSpans blanks the source spans of the given candidates so date
// words do not bleed into the extracted title.
func scrubSpans(text string, candidates []temporal.Candidate) string {
	if len(candidates) == 0 {
		return text
	}
	b := []byte(text)
	for _, c := range candidates {
		for i := c.Span.Start; i < c.Span.End && i < len(b); i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

// Keyword groups for the heuristic fallback, checked in order.
// Destructive groups come first so "cancel the scheduled call" cancels
// instead of booking; the query group outranks create because the
// create group carries bare nouns ("when is my dentist appointment?"
// is a question, not a booking).
var keywordGroups = []struct {
	intent Intent
	words  []string
}{
	{IntentReschedule, []string{"reschedule", "move", "rebook"}},
	{IntentCancel, []string{"cancel", "delete", "remove"}},
	{IntentQuery, []string{"available", "free", "when", "availability", "list", "show", "upcoming"}},
	{IntentCreate, []string{"book", "schedule", "reserve", "appointment", "meeting"}},
}

// keywordIntent classifies by whole-word keyword lookup.
func keywordIntent(utterance string) Intent {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(utterance), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		words[w] = true
	}
	for _, g := range keywordGroups {
		for _, w := range g.words {
			if words[w] {
				return g.intent
			}
		}
	}
	return IntentUnknown
}
