package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tailortalk/tailortalk/internal/app"
	"github.com/tailortalk/tailortalk/internal/config"
	"github.com/tailortalk/tailortalk/internal/dialog"
	"github.com/tailortalk/tailortalk/internal/session"
	calendarmock "github.com/tailortalk/tailortalk/pkg/provider/calendar/mock"
)

// newTestApp builds an App with an in-memory session store, a mock
// calendar, and no LLM (the classifier runs on keywords alone).
func newTestApp(t *testing.T, cfg *config.Config) (*app.App, *calendarmock.Provider) {
	t.Helper()
	if cfg == nil {
		cfg = &config.Config{}
	}
	cal := &calendarmock.Provider{}
	a, err := app.New(context.Background(), cfg,
		&app.Providers{Calendar: cal},
		app.WithSessionStore(session.NewMemoryStore()),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.Shutdown(ctx)
	})
	return a, cal
}

func turn(t *testing.T, a *app.App, sessionID, msg string) dialog.Reply {
	t.Helper()
	reply, err := a.Turn(context.Background(), sessionID, msg)
	if err != nil {
		t.Fatalf("Turn(%q): %v", msg, err)
	}
	return reply
}

func TestNew_RequiresCalendar(t *testing.T) {
	t.Parallel()
	_, err := app.New(context.Background(), &config.Config{}, &app.Providers{})
	if err == nil {
		t.Fatal("expected error without a calendar provider")
	}
}

func TestTurn_BookingFlow(t *testing.T) {
	t.Parallel()
	a, cal := newTestApp(t, nil)

	reply := turn(t, a, "s1", "book a meeting tomorrow at 2pm")
	if !strings.Contains(reply.Text, "call this meeting") {
		t.Fatalf("expected title prompt, got %q", reply.Text)
	}

	reply = turn(t, a, "s1", "Team sync")
	if !strings.Contains(reply.Text, "booked") {
		t.Fatalf("expected booking confirmation, got %q", reply.Text)
	}
	if len(cal.CreateCalls) != 1 {
		t.Fatalf("CreateEvent calls = %d, want 1", len(cal.CreateCalls))
	}
	if cal.CreateCalls[0].Title != "Team sync" {
		t.Errorf("created title = %q, want Team sync", cal.CreateCalls[0].Title)
	}
}

func TestTurn_SessionsAreIsolated(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t, nil)

	turn(t, a, "alice", "book a meeting tomorrow at 2pm")

	// Bob's session must start Idle, not inherit Alice's pending slots.
	reply := turn(t, a, "bob", "hello there")
	if strings.Contains(reply.Text, "call this meeting") {
		t.Errorf("bob's session leaked alice's state: %q", reply.Text)
	}
}

func TestEndSession_DiscardsState(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t, nil)

	turn(t, a, "s1", "book a meeting tomorrow at 2pm")
	if err := a.EndSession(context.Background(), "s1"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}

	// After ending, a title-looking utterance must not complete the old
	// booking.
	reply := turn(t, a, "s1", "Team sync")
	if strings.Contains(reply.Text, "booked") {
		t.Errorf("ended session should not carry pending slots, got %q", reply.Text)
	}
}

func TestTurn_StoreErrorPropagates(t *testing.T) {
	t.Parallel()
	cal := &calendarmock.Provider{}
	a, err := app.New(context.Background(), &config.Config{},
		&app.Providers{Calendar: cal},
		app.WithSessionStore(&failingStore{err: errors.New("store down")}),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := a.Turn(context.Background(), "s1", "hello"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}

func TestApplyBooking_ChangesHours(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t, nil)

	reply := turn(t, a, "s1", "book a team sync tomorrow at 11pm")
	if !strings.Contains(reply.Text, "between") {
		t.Fatalf("expected out-of-hours rejection, got %q", reply.Text)
	}

	a.ApplyBooking(config.BookingConfig{OpenHour: 6, CloseHour: 24})

	reply = turn(t, a, "s2", "book a team sync tomorrow at 11pm")
	if strings.Contains(reply.Text, "between") {
		t.Errorf("reloaded hours should allow 11pm, got %q", reply.Text)
	}
}

// failingStore always errors, for exercising the Turn error path.
type failingStore struct{ err error }

func (f *failingStore) Update(context.Context, string, func(*dialog.State) error) error {
	return f.err
}
func (f *failingStore) End(context.Context, string) error { return f.err }
func (f *failingStore) Sweep(context.Context, time.Duration) (int, error) {
	return 0, f.err
}
func (f *failingStore) Close() error { return nil }
