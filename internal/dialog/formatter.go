package dialog

import (
	"fmt"
	"strings"
	"time"

	"github.com/tailortalk/tailortalk/internal/intent"
	"github.com/tailortalk/tailortalk/pkg/provider/calendar"
)

// The formatter is the only place reply text is produced. Everything
// here is pure and deterministic: the same inputs always render the
// same string, and internal slot names never appear in output.

const degradedNotice = " (Heads up: I couldn't reach my language model just now, so I'm going by keywords only.)"

const unknownReply = "I can book, move, or cancel appointments and check when you're free. What would you like to do?"

func askStart(it intent.Intent) string {
	if it == intent.IntentReschedule {
		return "When should I move it to?"
	}
	return "What date and time would you like?"
}

func askTitle() string {
	return "What should I call this meeting?"
}

func askTarget() string {
	return "Which appointment do you mean? Its name or time would help."
}

func askClarifyDate(first, second time.Time) string {
	return fmt.Sprintf("I read that date as %s, but it could also mean %s. Which did you mean?",
		first.Format("January 2"), second.Format("January 2"))
}

func askTimeOnDate(day time.Time) string {
	return fmt.Sprintf("What time on %s?", day.Format("Monday, January 2"))
}

func askClarifyTarget(events []calendar.Event) string {
	var b strings.Builder
	b.WriteString("I found more than one match:\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "- %s on %s\n", ev.Title, formatWhen(ev.Start))
	}
	b.WriteString("Which one did you mean?")
	return b.String()
}

func confirmCancel(ev calendar.Event) string {
	return fmt.Sprintf("Should I cancel %s on %s? (yes/no)", ev.Title, formatWhen(ev.Start))
}

func confirmReschedule(ev calendar.Event, newStart time.Time) string {
	return fmt.Sprintf("Should I move %s from %s to %s? (yes/no)",
		ev.Title, formatWhen(ev.Start), formatWhen(newStart))
}

func abortedReply() string {
	return "Okay, I've left everything as it was."
}

func pastStartReply() string {
	return "That time has already passed. Could you pick a time in the future?"
}

func outsideHoursReply(open, close int) string {
	return fmt.Sprintf("I can only book between %s and %s. Could you pick a time in that window?",
		formatHour(open), formatHour(close))
}

// formatResult renders a dispatched operation's outcome.
func formatResult(it intent.Intent, res OperationResult) string {
	switch res.Kind {
	case ResultConflict:
		return conflictReply(res.Conflicts, res.Alternatives)
	case ResultNotFound:
		return "I couldn't find a matching appointment. It may have been cancelled already."
	case ResultProviderError:
		return fmt.Sprintf("The calendar service had a problem (%s). Nothing was changed; please try again.", res.Detail)
	}

	switch it {
	case intent.IntentCreate:
		return fmt.Sprintf("Done! %s is booked for %s.", res.Event.Title, formatWhen(res.Event.Start))
	case intent.IntentCancel:
		return fmt.Sprintf("Cancelled %s on %s.", res.Event.Title, formatWhen(res.Event.Start))
	case intent.IntentReschedule:
		return fmt.Sprintf("Moved %s to %s.", res.Event.Title, formatWhen(res.Event.Start))
	}
	return unknownReply
}

func conflictReply(conflicts []calendar.Event, alternatives []time.Time) string {
	var b strings.Builder
	if len(conflicts) == 0 {
		b.WriteString("That time is already taken.")
	} else {
		ev := conflicts[0]
		fmt.Fprintf(&b, "That overlaps with %s (%s – %s).",
			ev.Title, formatWhen(ev.Start), ev.End.Format("3:04 PM"))
	}
	if len(alternatives) > 0 {
		clocks := make([]string, len(alternatives))
		for i, t := range alternatives {
			clocks[i] = t.Format("3:04 PM")
		}
		fmt.Fprintf(&b, " That day is still free at %s.", joinNaturally(clocks))
	}
	b.WriteString(" What other time works for you?")
	return b.String()
}

// joinNaturally renders a list the way a sentence would: "a", "a and b",
// "a, b, and c".
func joinNaturally(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
	}
}

func freeSlotsReply(day time.Time, free []calendar.TimeRange) string {
	if len(free) == 0 {
		return fmt.Sprintf("You're fully booked on %s.", day.Format("Monday, January 2"))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You're free on %s at these times:\n", day.Format("Monday, January 2"))
	for _, r := range free {
		fmt.Fprintf(&b, "- %s – %s\n", r.From.Format("3:04 PM"), r.To.Format("3:04 PM"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func upcomingReply(events []calendar.Event) string {
	if len(events) == 0 {
		return "Nothing on the calendar for the next few days — you're wide open."
	}
	var b strings.Builder
	b.WriteString("Here's what you have coming up:\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "- %s on %s\n", ev.Title, formatWhen(ev.Start))
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatWhen renders an instant for the user. Midnight stands for a
// date-only value and renders without a clock time.
func formatWhen(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("Monday, January 2")
	}
	return t.Format("Monday, January 2 at 3:04 PM")
}

func formatHour(h int) string {
	return time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("3 PM")
}
