package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tailortalk/tailortalk/pkg/provider/llm"
)

// ErrBadPayload is returned by Interpret when the model answered but
// the reply could not be read as the agreed JSON shape.
var ErrBadPayload = errors.New("intent: malformed interpreter payload")

// historyWindow is how many prior turns are sent with each request.
const historyWindow = 10

const interpreterPrompt = `You are the intent reader of an appointment-scheduling assistant.
Classify the user's latest message and reply with a single JSON object,
nothing else:

{"intent": "<create|query|cancel|reschedule|unknown>", "title": "<appointment title, or empty>"}

Rules:
- "create": the user wants a new appointment booked.
- "query": the user asks about availability or existing appointments.
- "cancel": the user wants an existing appointment removed.
- "reschedule": the user wants an existing appointment moved.
- "unknown": anything else, including small talk.
- "title" is the subject of the appointment only. Never put dates or
  times in it; those are handled elsewhere.

Current date and time: %s`

// Interpreter asks a language model for the intent category and title
// of an utterance. Temporal values are deliberately not requested;
// those come from the deterministic extractor.
type Interpreter struct {
	provider    llm.Provider
	temperature float64
	maxTokens   int
}

// InterpreterOption configures an Interpreter.
type InterpreterOption func(*Interpreter)

// WithTemperature overrides the sampling temperature. Defaults to 0 for
// reproducible classification.
func WithTemperature(t float64) InterpreterOption {
	return func(i *Interpreter) { i.temperature = t }
}

// WithMaxTokens caps the reply length. Defaults to 128.
func WithMaxTokens(n int) InterpreterOption {
	return func(i *Interpreter) { i.maxTokens = n }
}

func NewInterpreter(provider llm.Provider, opts ...InterpreterOption) *Interpreter {
	i := &Interpreter{provider: provider, maxTokens: 128}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Hint is the model's advisory reading of an utterance.
type Hint struct {
	Intent Intent
	Title  string
}

// Interpret classifies utterance, sending up to the last historyWindow
// turns of history for context. A transport or provider failure is
// returned as-is; a reply outside the agreed shape is ErrBadPayload.
func (i *Interpreter) Interpret(ctx context.Context, utterance string, history []llm.Message, now time.Time) (Hint, error) {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: utterance})

	resp, err := i.provider.Complete(ctx, llm.CompletionRequest{
		Messages:     messages,
		SystemPrompt: fmt.Sprintf(interpreterPrompt, now.Format("2006-01-02 15:04 Monday")),
		Temperature:  i.temperature,
		MaxTokens:    i.maxTokens,
	})
	if err != nil {
		return Hint{}, fmt.Errorf("intent: interpret: %w", err)
	}
	return parseHint(resp.Content)
}

// parseHint reads the model reply. Models wrap JSON in prose or code
// fences often enough that the parser just takes the outermost braces.
func parseHint(content string) (Hint, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Hint{}, fmt.Errorf("%w: no JSON object in %q", ErrBadPayload, content)
	}

	var raw struct {
		Intent string `json:"intent"`
		Title  string `json:"title"`
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return Hint{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	h := Hint{Title: strings.TrimSpace(raw.Title)}
	switch strings.ToLower(strings.TrimSpace(raw.Intent)) {
	case "create":
		h.Intent = IntentCreate
	case "query":
		h.Intent = IntentQuery
	case "cancel":
		h.Intent = IntentCancel
	case "reschedule":
		h.Intent = IntentReschedule
	case "unknown", "":
		h.Intent = IntentUnknown
	default:
		return Hint{}, fmt.Errorf("%w: intent %q", ErrBadPayload, raw.Intent)
	}
	return h, nil
}
