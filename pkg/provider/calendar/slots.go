package calendar

import (
	"sort"
	"time"
)

// FreeSlots computes the gaps between events within the working window
// [dayStart, dayEnd). Events outside the window are clipped; events that
// cover the whole window yield no slots. Gaps shorter than minLen are
// discarded; pass 0 to keep every gap.
//
// The input slice is not modified. The result is ordered chronologically.
func FreeSlots(events []Event, dayStart, dayEnd time.Time, minLen time.Duration) []TimeRange {
	if !dayStart.Before(dayEnd) {
		return nil
	}

	busy := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Overlaps(dayStart, dayEnd) {
			busy = append(busy, e)
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	var slots []TimeRange
	cursor := dayStart
	for _, e := range busy {
		if cursor.Before(e.Start) {
			appendSlot(&slots, cursor, minTime(e.Start, dayEnd), minLen)
		}
		if e.End.After(cursor) {
			cursor = e.End
		}
	}
	if cursor.Before(dayEnd) {
		appendSlot(&slots, cursor, dayEnd, minLen)
	}
	return slots
}

// SuggestSlots returns up to max candidate start times for an appointment of
// the given duration on the day of dayStart, spaced on the hour within the
// working window. Used when a requested time conflicts and the assistant
// proposes alternatives.
func SuggestSlots(events []Event, dayStart, dayEnd time.Time, duration time.Duration, max int) []time.Time {
	if max <= 0 || duration <= 0 {
		return nil
	}

	var out []time.Time
	for t := dayStart; !t.Add(duration).After(dayEnd); t = t.Add(time.Hour) {
		conflict := false
		for _, e := range events {
			if e.Overlaps(t, t.Add(duration)) {
				conflict = true
				break
			}
		}
		if !conflict {
			out = append(out, t)
			if len(out) == max {
				break
			}
		}
	}
	return out
}

func appendSlot(slots *[]TimeRange, from, to time.Time, minLen time.Duration) {
	if to.Sub(from) >= minLen && to.After(from) {
		*slots = append(*slots, TimeRange{From: from, To: to})
	}
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
