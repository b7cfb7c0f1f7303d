package calendar

import (
	"testing"
	"time"
)

// day builds a time on a fixed reference date.
func day(hour, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

func TestFreeSlots_EmptyCalendar(t *testing.T) {
	t.Parallel()

	slots := FreeSlots(nil, day(9, 0), day(17, 0), 0)
	if len(slots) != 1 {
		t.Fatalf("expected one full-day slot, got %d", len(slots))
	}
	if !slots[0].From.Equal(day(9, 0)) || !slots[0].To.Equal(day(17, 0)) {
		t.Errorf("slot = %v–%v, want 09:00–17:00", slots[0].From, slots[0].To)
	}
}

func TestFreeSlots_GapsBetweenEvents(t *testing.T) {
	t.Parallel()

	events := []Event{
		{ID: "1", Title: "standup", Start: day(10, 0), End: day(10, 30)},
		{ID: "2", Title: "review", Start: day(14, 0), End: day(15, 0)},
	}

	slots := FreeSlots(events, day(9, 0), day(17, 0), 0)
	want := []TimeRange{
		{From: day(9, 0), To: day(10, 0)},
		{From: day(10, 30), To: day(14, 0)},
		{From: day(15, 0), To: day(17, 0)},
	}
	if len(slots) != len(want) {
		t.Fatalf("got %d slots, want %d: %v", len(slots), len(want), slots)
	}
	for i, s := range slots {
		if !s.From.Equal(want[i].From) || !s.To.Equal(want[i].To) {
			t.Errorf("slot[%d] = %v–%v, want %v–%v", i, s.From, s.To, want[i].From, want[i].To)
		}
	}
}

func TestFreeSlots_OverlappingEventsMerge(t *testing.T) {
	t.Parallel()

	events := []Event{
		{ID: "1", Start: day(9, 0), End: day(11, 0)},
		{ID: "2", Start: day(10, 0), End: day(12, 0)},
	}

	slots := FreeSlots(events, day(9, 0), day(17, 0), 0)
	if len(slots) != 1 {
		t.Fatalf("got %d slots, want 1: %v", len(slots), slots)
	}
	if !slots[0].From.Equal(day(12, 0)) {
		t.Errorf("slot starts %v, want 12:00", slots[0].From)
	}
}

func TestFreeSlots_FullyBooked(t *testing.T) {
	t.Parallel()

	events := []Event{{ID: "1", Start: day(8, 0), End: day(18, 0)}}
	if slots := FreeSlots(events, day(9, 0), day(17, 0), 0); len(slots) != 0 {
		t.Errorf("expected no slots, got %v", slots)
	}
}

func TestFreeSlots_MinLenFiltersShortGaps(t *testing.T) {
	t.Parallel()

	events := []Event{
		{ID: "1", Start: day(9, 15), End: day(17, 0)},
	}
	// The 15-minute gap before the event is below a 30-minute minimum.
	if slots := FreeSlots(events, day(9, 0), day(17, 0), 30*time.Minute); len(slots) != 0 {
		t.Errorf("expected short gap to be filtered, got %v", slots)
	}
}

func TestFreeSlots_InvertedWindow(t *testing.T) {
	t.Parallel()

	if slots := FreeSlots(nil, day(17, 0), day(9, 0), 0); slots != nil {
		t.Errorf("expected nil for inverted window, got %v", slots)
	}
}

func TestSuggestSlots(t *testing.T) {
	t.Parallel()

	events := []Event{
		{ID: "1", Start: day(9, 0), End: day(10, 0)},
		{ID: "2", Start: day(11, 0), End: day(12, 0)},
	}

	got := SuggestSlots(events, day(9, 0), day(17, 0), time.Hour, 3)
	want := []time.Time{day(10, 0), day(12, 0), day(13, 0)}
	if len(got) != len(want) {
		t.Fatalf("got %d suggestions, want %d: %v", len(got), len(want), got)
	}
	for i := range got {
		if !got[i].Equal(want[i]) {
			t.Errorf("suggestion[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSuggestSlots_ZeroMax(t *testing.T) {
	t.Parallel()

	if got := SuggestSlots(nil, day(9, 0), day(17, 0), time.Hour, 0); got != nil {
		t.Errorf("expected nil for max=0, got %v", got)
	}
}

func TestEventOverlaps(t *testing.T) {
	t.Parallel()

	e := Event{Start: day(10, 0), End: day(11, 0)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"fully inside", day(10, 15), day(10, 45), true},
		{"spanning", day(9, 0), day(12, 0), true},
		{"partial front", day(9, 30), day(10, 30), true},
		{"partial back", day(10, 30), day(11, 30), true},
		{"touching start", day(9, 0), day(10, 0), false},
		{"touching end", day(11, 0), day(12, 0), false},
		{"disjoint", day(13, 0), day(14, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := e.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}
