package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
	"github.com/tailortalk/tailortalk/pkg/provider/llm"
)

// Provider decorators. Every outbound LLM and calendar call records its
// duration and outcome to [Metrics]; the wrapped provider is otherwise
// untouched. Wrap each chain entry individually so the provider
// attribute names the backend that actually served the call.

type instrumentedLLM struct {
	next llm.Provider
	name string
	m    *Metrics
}

// InstrumentLLM wraps next so Complete calls record duration and
// request/error counters under the given provider name.
func InstrumentLLM(next llm.Provider, name string, m *Metrics) llm.Provider {
	if name == "" {
		name = "llm"
	}
	return &instrumentedLLM{next: next, name: name, m: m}
}

func (p *instrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	start := time.Now()
	resp, err := p.next.Complete(ctx, req)

	p.m.LLMDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(Attr("provider", p.name)))
	status := "ok"
	if err != nil {
		status = "error"
		p.m.RecordProviderError(ctx, p.name, "llm")
	}
	p.m.RecordProviderRequest(ctx, p.name, "llm", status)
	return resp, err
}

// CountTokens is a local estimate, not an outbound call; it passes
// through unrecorded.
func (p *instrumentedLLM) CountTokens(messages []llm.Message) (int, error) {
	return p.next.CountTokens(messages)
}

type instrumentedCalendar struct {
	next calendar.Provider
	name string
	m    *Metrics
}

// InstrumentCalendar wraps next so every calendar operation records
// duration and request/error counters under the given provider name.
func InstrumentCalendar(next calendar.Provider, name string, m *Metrics) calendar.Provider {
	if name == "" {
		name = "calendar"
	}
	return &instrumentedCalendar{next: next, name: name, m: m}
}

func (p *instrumentedCalendar) record(ctx context.Context, op string, start time.Time, err error) {
	p.m.CalendarDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(Attr("provider", p.name), Attr("op", op)))
	status := "ok"
	if err != nil {
		status = "error"
		p.m.RecordProviderError(ctx, p.name, "calendar")
	}
	p.m.RecordProviderRequest(ctx, p.name, "calendar", status)
}

func (p *instrumentedCalendar) CreateEvent(ctx context.Context, title string, start, end time.Time) (calendar.EventID, error) {
	begin := time.Now()
	id, err := p.next.CreateEvent(ctx, title, start, end)
	p.record(ctx, "create", begin, err)
	return id, err
}

func (p *instrumentedCalendar) ListEvents(ctx context.Context, r calendar.TimeRange) ([]calendar.Event, error) {
	begin := time.Now()
	events, err := p.next.ListEvents(ctx, r)
	p.record(ctx, "list", begin, err)
	return events, err
}

func (p *instrumentedCalendar) FindConflicts(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	begin := time.Now()
	events, err := p.next.FindConflicts(ctx, start, end)
	p.record(ctx, "conflicts", begin, err)
	return events, err
}

func (p *instrumentedCalendar) CancelEvent(ctx context.Context, id calendar.EventID) error {
	begin := time.Now()
	err := p.next.CancelEvent(ctx, id)
	p.record(ctx, "cancel", begin, err)
	return err
}
