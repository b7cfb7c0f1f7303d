package temporal

import (
	"errors"
	"testing"
	"time"
)

// refNow is Monday, March 2nd 2026, 09:00 UTC.
var refNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func date(day int) time.Time {
	return time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC)
}

func TestExtract(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		want []Candidate
	}{
		{
			name: "tomorrow with clock time",
			text: "book a meeting tomorrow at 2pm",
			want: []Candidate{{
				Start:     time.Date(2026, time.March, 3, 14, 0, 0, 0, time.UTC),
				Precision: PrecisionDateTime,
				Span:      Span{15, 23},
				Text:      "tomorrow",
			}},
		},
		{
			name: "today date only",
			text: "anything free today?",
			want: []Candidate{{
				Start:     date(2),
				Precision: PrecisionDate,
				Span:      Span{14, 19},
				Text:      "today",
			}},
		},
		{
			name: "bare weekday is strictly future",
			text: "see you monday",
			want: []Candidate{{
				Start:     date(9),
				Precision: PrecisionDate,
				Span:      Span{8, 14},
				Text:      "monday",
			}},
		},
		{
			name: "this weekday may be today",
			text: "this monday works",
			want: []Candidate{{
				Start:     date(2),
				Precision: PrecisionDate,
				Span:      Span{0, 11},
				Text:      "this monday",
			}},
		},
		{
			name: "next weekday skips today",
			text: "next monday works",
			want: []Candidate{{
				Start:     date(9),
				Precision: PrecisionDate,
				Span:      Span{0, 11},
				Text:      "next monday",
			}},
		},
		{
			name: "next week",
			text: "push it to next week",
			want: []Candidate{{
				Start:     date(9),
				Precision: PrecisionDate,
				Span:      Span{11, 20},
				Text:      "next week",
			}},
		},
		{
			name: "in n days",
			text: "remind me in 3 days",
			want: []Candidate{{
				Start:     date(5),
				Precision: PrecisionDate,
				Span:      Span{10, 19},
				Text:      "in 3 days",
			}},
		},
		{
			name: "iso date",
			text: "block 2026-04-15 please",
			want: []Candidate{{
				Start:     time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC),
				Precision: PrecisionDate,
				Span:      Span{6, 16},
				Text:      "2026-04-15",
			}},
		},
		{
			name: "month day rolls to next year when past",
			text: "off on jan 5",
			want: []Candidate{{
				Start:     time.Date(2027, time.January, 5, 0, 0, 0, 0, time.UTC),
				Precision: PrecisionDate,
				Span:      Span{7, 12},
				Text:      "jan 5",
			}},
		},
		{
			name: "day of month",
			text: "the 15th of March",
			want: []Candidate{{
				Start:     date(15),
				Precision: PrecisionDate,
				Span:      Span{4, 17},
				Text:      "15th of March",
			}},
		},
		{
			name: "slash date both readings plausible",
			text: "how about 3/4",
			want: []Candidate{{
				Start:     date(4),
				Precision: PrecisionDate,
				Span:      Span{10, 13},
				Text:      "3/4",
				Ambiguous: true,
			}},
		},
		{
			name: "slash date day first when over twelve",
			text: "how about 15/4",
			want: []Candidate{{
				Start:     time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC),
				Precision: PrecisionDate,
				Span:      Span{10, 14},
				Text:      "15/4",
			}},
		},
		{
			name: "slash date same number not ambiguous",
			text: "how about 4/4",
			want: []Candidate{{
				Start:     time.Date(2026, time.April, 4, 0, 0, 0, 0, time.UTC),
				Precision: PrecisionDate,
				Span:      Span{10, 13},
				Text:      "4/4",
			}},
		},
		{
			name: "bare clock time later today",
			text: "cancel my 3pm",
			want: []Candidate{{
				Start:     time.Date(2026, time.March, 2, 15, 0, 0, 0, time.UTC),
				Precision: PrecisionDateTime,
				Span:      Span{10, 13},
				Text:      "3pm",
				TimeOnly:  true,
			}},
		},
		{
			name: "bare clock time already past rolls to tomorrow",
			text: "my 8am slot",
			want: []Candidate{{
				Start:     time.Date(2026, time.March, 3, 8, 0, 0, 0, time.UTC),
				Precision: PrecisionDateTime,
				Span:      Span{3, 6},
				Text:      "8am",
				TimeOnly:  true,
			}},
		},
		{
			name: "24 hour clock",
			text: "meet at 14:30",
			want: []Candidate{{
				Start:     time.Date(2026, time.March, 2, 14, 30, 0, 0, time.UTC),
				Precision: PrecisionDateTime,
				Span:      Span{8, 13},
				Text:      "14:30",
				TimeOnly:  true,
			}},
		},
		{
			name: "noon on a date",
			text: "friday at noon",
			want: []Candidate{{
				Start:     time.Date(2026, time.March, 6, 12, 0, 0, 0, time.UTC),
				Precision: PrecisionDateTime,
				Span:      Span{0, 6},
				Text:      "friday",
			}},
		},
		{
			name: "duration attaches an end",
			text: "tomorrow at 2pm for 30 minutes",
			want: []Candidate{{
				Start:     time.Date(2026, time.March, 3, 14, 0, 0, 0, time.UTC),
				End:       time.Date(2026, time.March, 3, 14, 30, 0, 0, time.UTC),
				Duration:  30 * time.Minute,
				Precision: PrecisionDateTime,
				Span:      Span{0, 8},
				Text:      "tomorrow",
			}},
		},
		{
			name: "half hour duration",
			text: "book half an hour tomorrow at 9:15",
			want: []Candidate{{
				Start:     time.Date(2026, time.March, 3, 9, 15, 0, 0, time.UTC),
				End:       time.Date(2026, time.March, 3, 9, 45, 0, 0, time.UTC),
				Duration:  30 * time.Minute,
				Precision: PrecisionDateTime,
				Span:      Span{18, 26},
				Text:      "tomorrow",
			}},
		},
		{
			name: "date only keeps duration without end",
			text: "2 hours on friday",
			want: []Candidate{{
				Start:     date(6),
				Duration:  2 * time.Hour,
				Precision: PrecisionDate,
				Span:      Span{11, 17},
				Text:      "friday",
			}},
		},
		{
			name: "multiple dates ordered by position",
			text: "tomorrow or friday?",
			want: []Candidate{
				{
					Start:     date(3),
					Precision: PrecisionDate,
					Span:      Span{0, 8},
					Text:      "tomorrow",
				},
				{
					Start:     date(6),
					Precision: PrecisionDate,
					Span:      Span{12, 18},
					Text:      "friday",
				},
			},
		},
		{name: "no temporal content", text: "hello there"},
		{name: "impossible slash date", text: "see you 2/30"},
		{name: "impossible month", text: "see you 13/13"},
		{name: "empty input", text: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Extract(tt.text, refNow)
			if err != nil {
				t.Fatalf("Extract(%q) error = %v", tt.text, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Extract(%q) = %d candidates %+v, want %d", tt.text, len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Extract(%q)[%d] = %+v, want %+v", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExtractZeroReference(t *testing.T) {
	t.Parallel()
	_, err := Extract("tomorrow at 2pm", time.Time{})
	if !errors.Is(err, ErrZeroReference) {
		t.Fatalf("Extract with zero reference error = %v, want ErrZeroReference", err)
	}
}

func TestCandidatesZeroReferenceYieldsNothing(t *testing.T) {
	t.Parallel()
	for c := range Candidates("tomorrow at 2pm", time.Time{}) {
		t.Fatalf("Candidates with zero reference yielded %+v", c)
	}
}

func TestCandidatesRestartable(t *testing.T) {
	t.Parallel()
	seq := Candidates("tomorrow or friday", refNow)
	collect := func() []Candidate {
		var out []Candidate
		for c := range seq {
			out = append(out, c)
		}
		return out
	}
	first, second := collect(), collect()
	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("collected %d then %d candidates, want 2 and 2", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("iteration %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestCandidatesEarlyStop(t *testing.T) {
	t.Parallel()
	var got []Candidate
	for c := range Candidates("tomorrow or friday or next week", refNow) {
		got = append(got, c)
		break
	}
	if len(got) != 1 {
		t.Fatalf("collected %d candidates after break, want 1", len(got))
	}
	if got[0].Text != "tomorrow" {
		t.Errorf("first candidate text = %q, want %q", got[0].Text, "tomorrow")
	}
}

func TestExtractDeterministic(t *testing.T) {
	t.Parallel()
	const text = "reschedule to next friday at 3:30pm for 1 hour"
	first, err := Extract(text, refNow)
	if err != nil {
		t.Fatal(err)
	}
	for range 10 {
		again, err := Extract(text, refNow)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(first) {
			t.Fatalf("candidate count changed between runs: %d vs %d", len(again), len(first))
		}
		for i := range again {
			if again[i] != first[i] {
				t.Fatalf("candidate %d changed between runs: %+v vs %+v", i, again[i], first[i])
			}
		}
	}
}

func TestWeekdaysResolveFuture(t *testing.T) {
	t.Parallel()
	texts := []string{
		"monday", "tuesday", "wednesday", "thursday",
		"friday", "saturday", "sunday",
		"next monday", "next sunday",
	}
	for _, text := range texts {
		got, err := Extract(text, refNow)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("Extract(%q) = %d candidates, want 1", text, len(got))
		}
		if !got[0].Start.After(refNow) {
			t.Errorf("Extract(%q).Start = %v, want after %v", text, got[0].Start, refNow)
		}
	}
}
