package intent

import (
	"regexp"
	"strings"
)

// Appointment title patterns: the phrase a booking verb introduces, or
// the subject a meeting noun is attached to.
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:book|schedule|reserve)\s+(?:an?\s+)?([^.!?]+?)(?:\s+on\b|\s+for\b|\s+at\b|\s+to\b|\s*$)`),
	regexp.MustCompile(`(?i)(?:meeting|appointment|call)\s+(?:about\s+|for\s+|with\s+)([^.!?]+?)(?:\s+on\b|\s+at\b|\s+to\b|\s*$)`),
}

// Generic fillers that survive span scrubbing but carry no title
// information on their own.
var fillerTitles = map[string]bool{
	"meeting": true, "appointment": true, "call": true, "event": true,
	"a meeting": true, "an appointment": true, "a call": true, "an event": true,
	"something": true, "it": true, "me": true,
}

// scanTitle extracts an appointment title from text, or "". text should
// have temporal expressions already blanked out.
func scanTitle(text string) string {
	for _, re := range titlePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		t := tidyPhrase(m[1])
		if t != "" && !fillerTitles[strings.ToLower(t)] {
			return t
		}
	}
	return ""
}

// tidyPhrase collapses the whitespace runs left behind by span
// scrubbing and trims stray punctuation.
func tidyPhrase(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ,.")
}
