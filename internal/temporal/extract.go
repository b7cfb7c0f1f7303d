package temporal

import (
	"iter"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	weekdayAlt = `monday|tuesday|wednesday|thursday|friday|saturday|sunday`
	monthAlt   = `january|february|march|april|may|june|july|august|september|october|november|december|jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`
)

// Date expressions, scanned in this order. Earlier patterns consume their
// span so later, looser patterns cannot re-match inside it (e.g. the bare
// weekday in "next friday").
var (
	rePrefixWeekday = regexp.MustCompile(`(?i)\b(next|this)\s+(` + weekdayAlt + `)\b`)
	reNextWeek      = regexp.MustCompile(`(?i)\bnext\s+week\b`)
	reToday         = regexp.MustCompile(`(?i)\btoday\b`)
	reTomorrow      = regexp.MustCompile(`(?i)\btomorrow\b`)
	reInNDays       = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+days?\b`)
	reISODate       = regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`)
	reMonthDay      = regexp.MustCompile(`(?i)\b(` + monthAlt + `)\.?\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	reDayMonth      = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(` + monthAlt + `)\b`)
	reSlashDate     = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})(?:[/-](\d{2,4}))?\b`)
	reBareWeekday   = regexp.MustCompile(`(?i)\b(` + weekdayAlt + `)\b`)
)

// Clock-time expressions. The colon form is scanned first so its minutes
// cannot be re-matched by the bare hour form ("3:30pm" must not also yield
// "30pm").
var (
	reClockTime = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	reHourAmPm  = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	reNamedTime = regexp.MustCompile(`(?i)\b(noon|midnight|morning|afternoon|evening)\b`)
)

// Duration expressions.
var (
	reDurHours    = regexp.MustCompile(`(?i)\b(\d+)\s*(?:hours?|hrs?)\b`)
	reDurMinutes  = regexp.MustCompile(`(?i)\b(\d+)\s*(?:minutes?|mins?)\b`)
	reHalfHour    = regexp.MustCompile(`(?i)\bhalf\s+(?:an?\s+)?hour\b`)
	reQuarterHour = regexp.MustCompile(`(?i)\b(?:a\s+)?quarter\s+(?:of\s+an?\s+)?hour\b`)
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sept": time.September, "sep": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// Extract parses text against the reference instant now and returns every
// temporal candidate found, ordered by position of first occurrence.
// The only error is [ErrZeroReference]; unparseable text yields an empty
// slice and a nil error.
func Extract(text string, now time.Time) ([]Candidate, error) {
	if now.IsZero() {
		return nil, ErrZeroReference
	}
	var out []Candidate
	for c := range Candidates(text, now) {
		out = append(out, c)
	}
	return out, nil
}

// Candidates returns a finite, restartable sequence of the temporal
// candidates in text, ordered by position of first occurrence. A zero
// reference instant yields no candidates; use [Extract] to surface that as
// an error.
func Candidates(text string, now time.Time) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		if now.IsZero() {
			return
		}
		for _, c := range extract(text, now) {
			if !yield(c) {
				return
			}
		}
	}
}

// extract does the actual scan. Dates, the first clock time, and the first
// duration are located independently and then composed: every date match
// becomes a candidate, carrying the clock time when one was present; a clock
// time without any date resolves to the soonest present-or-future occurrence.
func extract(text string, now time.Time) []Candidate {
	dates := scanDates(text, now)
	clock, hasClock := scanClock(text)
	dur := scanDuration(text)

	var out []Candidate
	for _, dm := range dates {
		c := Candidate{
			Start:     dm.date,
			Precision: PrecisionDate,
			Span:      dm.span,
			Text:      text[dm.span.Start:dm.span.End],
			Ambiguous: dm.ambiguous,
			Duration:  dur,
		}
		if hasClock {
			c.Start = at(dm.date, clock.hour, clock.minute)
			c.Precision = PrecisionDateTime
			if dur > 0 {
				c.End = c.Start.Add(dur)
			}
		}
		out = append(out, c)
	}

	if len(dates) == 0 && hasClock {
		start := at(midnight(now), clock.hour, clock.minute)
		// A bare clock time means the soonest such time that has not yet
		// passed.
		if !start.After(now) {
			start = start.AddDate(0, 0, 1)
		}
		c := Candidate{
			Start:     start,
			Precision: PrecisionDateTime,
			Span:      clock.span,
			Text:      text[clock.span.Start:clock.span.End],
			Duration:  dur,
			TimeOnly:  true,
		}
		if dur > 0 {
			c.End = c.Start.Add(dur)
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Span.Start < out[j].Span.Start })
	return out
}

// dateMatch is a resolved calendar-day expression.
type dateMatch struct {
	span      Span
	date      time.Time // midnight in now's location
	ambiguous bool
}

// scanDates finds every calendar-day expression in text. Matches are
// deduplicated by span: once a pattern claims a byte range, later patterns
// skip anything overlapping it.
func scanDates(text string, now time.Time) []dateMatch {
	var (
		out      []dateMatch
		consumed []Span
	)
	claim := func(s Span) bool {
		for _, c := range consumed {
			if s.Start < c.End && s.End > c.Start {
				return false
			}
		}
		consumed = append(consumed, s)
		return true
	}
	today := midnight(now)

	for _, m := range rePrefixWeekday.FindAllStringSubmatchIndex(text, -1) {
		s := Span{m[0], m[1]}
		if !claim(s) {
			continue
		}
		prefix := strings.ToLower(text[m[2]:m[3]])
		wd := weekdays[strings.ToLower(text[m[4]:m[5]])]
		// "this friday" may be today; "next friday" never is.
		out = append(out, dateMatch{span: s, date: upcomingWeekday(today, wd, prefix == "this")})
	}

	for _, m := range reNextWeek.FindAllStringIndex(text, -1) {
		s := Span{m[0], m[1]}
		if claim(s) {
			out = append(out, dateMatch{span: s, date: today.AddDate(0, 0, 7)})
		}
	}

	for _, m := range reToday.FindAllStringIndex(text, -1) {
		s := Span{m[0], m[1]}
		if claim(s) {
			out = append(out, dateMatch{span: s, date: today})
		}
	}

	for _, m := range reTomorrow.FindAllStringIndex(text, -1) {
		s := Span{m[0], m[1]}
		if claim(s) {
			out = append(out, dateMatch{span: s, date: today.AddDate(0, 0, 1)})
		}
	}

	for _, m := range reInNDays.FindAllStringSubmatchIndex(text, -1) {
		s := Span{m[0], m[1]}
		if !claim(s) {
			continue
		}
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil || n < 0 {
			continue
		}
		out = append(out, dateMatch{span: s, date: today.AddDate(0, 0, n)})
	}

	for _, m := range reISODate.FindAllStringSubmatchIndex(text, -1) {
		s := Span{m[0], m[1]}
		if !claim(s) {
			continue
		}
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		dayNum, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := makeDate(year, time.Month(month), dayNum, now.Location()); ok {
			out = append(out, dateMatch{span: s, date: d})
		}
	}

	for _, m := range reMonthDay.FindAllStringSubmatchIndex(text, -1) {
		s := Span{m[0], m[1]}
		if !claim(s) {
			continue
		}
		month := months[strings.ToLower(text[m[2]:m[3]])]
		dayNum, _ := strconv.Atoi(text[m[4]:m[5]])
		if d, ok := nextOccurrence(today, month, dayNum); ok {
			out = append(out, dateMatch{span: s, date: d})
		}
	}

	for _, m := range reDayMonth.FindAllStringSubmatchIndex(text, -1) {
		s := Span{m[0], m[1]}
		if !claim(s) {
			continue
		}
		dayNum, _ := strconv.Atoi(text[m[2]:m[3]])
		month := months[strings.ToLower(text[m[4]:m[5]])]
		if d, ok := nextOccurrence(today, month, dayNum); ok {
			out = append(out, dateMatch{span: s, date: d})
		}
	}

	for _, m := range reSlashDate.FindAllStringSubmatchIndex(text, -1) {
		s := Span{m[0], m[1]}
		if !claim(s) {
			continue
		}
		if dm, ok := resolveSlashDate(text, m, today, now.Location()); ok {
			dm.span = s
			out = append(out, dm)
		}
	}

	for _, m := range reBareWeekday.FindAllStringSubmatchIndex(text, -1) {
		s := Span{m[0], m[1]}
		if !claim(s) {
			continue
		}
		wd := weekdays[strings.ToLower(text[m[2]:m[3]])]
		// A bare weekday is always the soonest strictly-future occurrence.
		out = append(out, dateMatch{span: s, date: upcomingWeekday(today, wd, false)})
	}

	return out
}

// resolveSlashDate interprets numeric a/b(/y) dates. The US month/day order
// is preferred; when both readings are plausible the match is flagged
// ambiguous, and when only day/month is plausible (a > 12) that reading is
// used instead.
func resolveSlashDate(text string, m []int, today time.Time, loc *time.Location) (dateMatch, bool) {
	a, _ := strconv.Atoi(text[m[2]:m[3]])
	b, _ := strconv.Atoi(text[m[4]:m[5]])

	month, dayNum := a, b
	ambiguous := a != b && a <= 12 && b <= 12
	if a > 12 && b <= 12 {
		month, dayNum = b, a
	}
	if month > 12 {
		return dateMatch{}, false
	}

	if m[6] >= 0 { // explicit year
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if year < 100 {
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
		d, ok := makeDate(year, time.Month(month), dayNum, loc)
		return dateMatch{date: d, ambiguous: ambiguous}, ok
	}

	d, ok := nextOccurrence(today, time.Month(month), dayNum)
	return dateMatch{date: d, ambiguous: ambiguous}, ok
}

// clockMatch is a resolved clock-time expression.
type clockMatch struct {
	span   Span
	hour   int
	minute int
}

// scanClock finds the earliest clock-time expression in text.
func scanClock(text string) (clockMatch, bool) {
	var (
		best     clockMatch
		found    bool
		consumed []Span
	)
	consider := func(c clockMatch) {
		for _, s := range consumed {
			if c.span.Start < s.End && c.span.End > s.Start {
				return
			}
		}
		consumed = append(consumed, c.span)
		if !found || c.span.Start < best.span.Start {
			best = c
			found = true
		}
	}

	for _, m := range reClockTime.FindAllStringSubmatchIndex(text, -1) {
		hour, _ := strconv.Atoi(text[m[2]:m[3]])
		minute, _ := strconv.Atoi(text[m[4]:m[5]])
		var ampm string
		if m[6] >= 0 {
			ampm = strings.ToLower(text[m[6]:m[7]])
		}
		hour, ok := applyAmPm(hour, ampm)
		if !ok || minute > 59 {
			continue
		}
		consider(clockMatch{span: Span{m[0], m[1]}, hour: hour, minute: minute})
	}

	for _, m := range reHourAmPm.FindAllStringSubmatchIndex(text, -1) {
		hour, _ := strconv.Atoi(text[m[2]:m[3]])
		hour, ok := applyAmPm(hour, strings.ToLower(text[m[4]:m[5]]))
		if !ok {
			continue
		}
		consider(clockMatch{span: Span{m[0], m[1]}, hour: hour})
	}

	for _, m := range reNamedTime.FindAllStringSubmatchIndex(text, -1) {
		var hour int
		switch strings.ToLower(text[m[2]:m[3]]) {
		case "noon":
			hour = 12
		case "midnight":
			hour = 0
		case "morning":
			hour = 9
		case "afternoon":
			hour = 14
		case "evening":
			hour = 18
		}
		consider(clockMatch{span: Span{m[0], m[1]}, hour: hour})
	}

	return best, found
}

// applyAmPm converts a 12-hour value to 24-hour. With no am/pm marker the
// hour is taken as already 24-hour and validated as such.
func applyAmPm(hour int, ampm string) (int, bool) {
	switch ampm {
	case "pm":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour < 1 || hour > 12 {
			return 0, false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return 0, false
		}
	}
	return hour, true
}

// scanDuration finds the earliest duration expression in text.
// Returns zero when none is present.
func scanDuration(text string) time.Duration {
	type durMatch struct {
		pos int
		d   time.Duration
	}
	var best *durMatch
	consider := func(pos int, d time.Duration) {
		if best == nil || pos < best.pos {
			best = &durMatch{pos: pos, d: d}
		}
	}

	for _, m := range reDurHours.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err == nil && n > 0 {
			consider(m[0], time.Duration(n)*time.Hour)
		}
	}
	for _, m := range reDurMinutes.FindAllStringSubmatchIndex(text, -1) {
		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err == nil && n > 0 {
			consider(m[0], time.Duration(n)*time.Minute)
		}
	}
	for _, m := range reHalfHour.FindAllStringIndex(text, -1) {
		consider(m[0], 30*time.Minute)
	}
	for _, m := range reQuarterHour.FindAllStringIndex(text, -1) {
		consider(m[0], 15*time.Minute)
	}

	if best == nil {
		return 0
	}
	return best.d
}

// upcomingWeekday returns the next calendar day falling on wd. When
// allowToday is false and today already is wd, the result is a week out.
func upcomingWeekday(today time.Time, wd time.Weekday, allowToday bool) time.Time {
	days := (int(wd) - int(today.Weekday()) + 7) % 7
	if days == 0 && !allowToday {
		days = 7
	}
	return today.AddDate(0, 0, days)
}

// nextOccurrence returns the next occurrence of month/day on or after today,
// rolling into next year when the date has already passed.
func nextOccurrence(today time.Time, month time.Month, dayNum int) (time.Time, bool) {
	d, ok := makeDate(today.Year(), month, dayNum, today.Location())
	if !ok {
		return time.Time{}, false
	}
	if d.Before(today) {
		d, ok = makeDate(today.Year()+1, month, dayNum, today.Location())
	}
	return d, ok
}

// makeDate builds midnight of the given day, rejecting impossible dates
// (time.Date would silently normalize February 30th into March).
func makeDate(year int, month time.Month, dayNum int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || dayNum < 1 || dayNum > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, dayNum, 0, 0, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != dayNum {
		return time.Time{}, false
	}
	return t, true
}

// midnight truncates t to the start of its calendar day.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// at places a clock time on the given calendar day.
func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}
