package observe

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
	calendarmock "github.com/tailortalk/tailortalk/pkg/provider/calendar/mock"
	"github.com/tailortalk/tailortalk/pkg/provider/llm"
	llmmock "github.com/tailortalk/tailortalk/pkg/provider/llm/mock"
)

// sumForStatus returns the datapoint value of a Sum metric whose
// attribute set carries status=want, or -1 when absent.
func sumForStatus(t *testing.T, met *metricdata.Metrics, want string) int64 {
	t.Helper()
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", met.Name)
	}
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attribute.Key("status")); found && v.AsString() == want {
			return dp.Value
		}
	}
	return -1
}

func TestInstrumentLLM_RecordsDurationAndRequest(t *testing.T) {
	m, reader := newTestMetrics(t)
	inner := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `{"intent":"create"}`},
	}
	p := InstrumentLLM(inner, "openai", m)

	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(inner.CompleteCalls) != 1 {
		t.Fatalf("CompleteCalls = %d, want 1 (call must reach the wrapped provider)", len(inner.CompleteCalls))
	}

	rm := collect(t, reader)
	met := findMetric(rm, "tailortalk.llm.duration")
	if met == nil {
		t.Fatal("llm duration metric not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok || len(hist.DataPoints) == 0 {
		t.Fatal("llm duration has no samples")
	}
	if hist.DataPoints[0].Count != 1 {
		t.Errorf("duration sample count = %d, want 1", hist.DataPoints[0].Count)
	}

	reqs := findMetric(rm, "tailortalk.provider.requests")
	if reqs == nil {
		t.Fatal("provider requests metric not recorded")
	}
	if got := sumForStatus(t, reqs, "ok"); got != 1 {
		t.Errorf("ok requests = %d, want 1", got)
	}
}

func TestInstrumentLLM_ErrorCountsAsProviderError(t *testing.T) {
	m, reader := newTestMetrics(t)
	inner := &llmmock.Provider{CompleteErr: errors.New("model endpoint unreachable")}
	p := InstrumentLLM(inner, "openai", m)

	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
		t.Fatal("expected the wrapped error to pass through")
	}

	rm := collect(t, reader)
	reqs := findMetric(rm, "tailortalk.provider.requests")
	if reqs == nil {
		t.Fatal("provider requests metric not recorded")
	}
	if got := sumForStatus(t, reqs, "error"); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}
	errs := findMetric(rm, "tailortalk.provider.errors")
	if errs == nil {
		t.Fatal("provider errors metric not recorded")
	}
}

func TestInstrumentLLM_CountTokensPassesThrough(t *testing.T) {
	m, reader := newTestMetrics(t)
	p := InstrumentLLM(&llmmock.Provider{TokenCount: 42}, "openai", m)

	n, err := p.CountTokens([]llm.Message{{Role: llm.RoleUser, Content: "hi"}})
	if err != nil || n != 42 {
		t.Fatalf("CountTokens = %d, %v, want 42, nil", n, err)
	}

	rm := collect(t, reader)
	if met := findMetric(rm, "tailortalk.provider.requests"); met != nil {
		t.Error("CountTokens must not count as a provider request")
	}
}

func TestInstrumentCalendar_RecordsPerOperation(t *testing.T) {
	m, reader := newTestMetrics(t)
	inner := &calendarmock.Provider{}
	p := InstrumentCalendar(inner, "google", m)
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	if _, err := p.CreateEvent(ctx, "Team sync", now, now.Add(time.Hour)); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if _, err := p.ListEvents(ctx, calendar.TimeRange{From: now, To: now.Add(24 * time.Hour)}); err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(inner.CreateCalls) != 1 {
		t.Fatalf("CreateCalls = %d, want 1 (call must reach the wrapped provider)", len(inner.CreateCalls))
	}

	rm := collect(t, reader)
	met := findMetric(rm, "tailortalk.calendar.duration")
	if met == nil {
		t.Fatal("calendar duration metric not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("calendar duration is not a histogram")
	}
	// One datapoint per op attribute.
	if len(hist.DataPoints) != 2 {
		t.Errorf("duration datapoints = %d, want 2 (create + list)", len(hist.DataPoints))
	}
	reqs := findMetric(rm, "tailortalk.provider.requests")
	if reqs == nil {
		t.Fatal("provider requests metric not recorded")
	}
	if got := sumForStatus(t, reqs, "ok"); got != 2 {
		t.Errorf("ok requests = %d, want 2", got)
	}
}

func TestInstrumentCalendar_ErrorCountsAsProviderError(t *testing.T) {
	m, reader := newTestMetrics(t)
	inner := &calendarmock.Provider{ListErr: errors.New("calendar api unavailable")}
	p := InstrumentCalendar(inner, "google", m)

	if _, err := p.ListEvents(context.Background(), calendar.TimeRange{}); err == nil {
		t.Fatal("expected the wrapped error to pass through")
	}

	rm := collect(t, reader)
	if got := sumForStatus(t, findMetric(rm, "tailortalk.provider.requests"), "error"); got != 1 {
		t.Errorf("error requests = %d, want 1", got)
	}
	if findMetric(rm, "tailortalk.provider.errors") == nil {
		t.Error("provider errors metric not recorded")
	}
}
