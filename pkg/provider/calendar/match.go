package calendar

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// TitleMatcher resolves a user-supplied appointment title ("team sync",
// "the dentist thing") against actual event summaries. Matching proceeds in
// three stages:
//
//  1. Case-insensitive substring containment: "team sync" matches
//     "Weekly team sync with Anna".
//  2. Phonetic candidate filtering: Double Metaphone codes are computed for
//     each word of the input and of each event title; any code overlap makes
//     the event a phonetic candidate, accepted when its Jaro-Winkler score
//     exceeds the phonetic threshold.
//  3. Pure Jaro-Winkler fallback with a stricter threshold, for typo-level
//     mismatches with no phonetic overlap.
//
// All methods are safe for concurrent use; the matcher is read-only after
// construction.
type TitleMatcher struct {
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// MatcherOption is a functional option for configuring a [TitleMatcher].
type MatcherOption func(*TitleMatcher)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched title to be accepted. Default: 0.70.
func WithPhoneticThreshold(threshold float64) MatcherOption {
	return func(m *TitleMatcher) {
		m.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found. Default: 0.85.
func WithFuzzyThreshold(threshold float64) MatcherOption {
	return func(m *TitleMatcher) {
		m.fuzzyThreshold = threshold
	}
}

// NewTitleMatcher returns a [TitleMatcher] configured with the supplied options.
func NewTitleMatcher(opts ...MatcherOption) *TitleMatcher {
	m := &TitleMatcher{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match returns the events whose titles match the given title, best first.
// Multiple results mean the reference is ambiguous and the caller should ask
// the user to narrow it down. An empty title matches nothing.
func (m *TitleMatcher) Match(title string, events []Event) []Event {
	titleLower := strings.ToLower(strings.TrimSpace(title))
	if titleLower == "" {
		return nil
	}

	// Stage 1: substring containment.
	var contained []Event
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), titleLower) {
			contained = append(contained, e)
		}
	}
	if len(contained) > 0 {
		return contained
	}

	// Stages 2 and 3: phonetic overlap, then fuzzy fallback.
	titleTokens := strings.Fields(titleLower)
	inputCodes := codesForTokens(titleTokens)

	type scored struct {
		event    Event
		score    float64
		phonetic bool
	}
	var candidates []scored

	for _, e := range events {
		eventLower := strings.ToLower(strings.TrimSpace(e.Title))
		if eventLower == "" {
			continue
		}
		eventTokens := strings.Fields(eventLower)

		phonetic := codesOverlap(inputCodes, codesForTokens(eventTokens))
		score := bestJWScore(titleTokens, eventTokens, titleLower, eventLower)

		switch {
		case phonetic && score >= m.phoneticThreshold:
			candidates = append(candidates, scored{event: e, score: score, phonetic: true})
		case !phonetic && score >= m.fuzzyThreshold:
			candidates = append(candidates, scored{event: e, score: score, phonetic: false})
		}
	}

	// Phonetic candidates outrank pure fuzzy ones; within a class, higher
	// score first. Stable to keep chronological order between equals.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.phonetic != b.phonetic {
			return a.phonetic
		}
		return a.score > b.score
	})

	out := make([]Event, len(candidates))
	for i, c := range candidates {
		out[i] = c.event
	}
	return out
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when the word is too short or contains
// no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the input
// and the event title using three strategies: full strings, space-stripped
// strings, and the best pairwise token score.
func bestJWScore(inputTokens, titleTokens []string, inputFull, titleFull string) float64 {
	score := matchr.JaroWinkler(inputFull, titleFull, false)

	if len(inputTokens) > 1 || len(titleTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(titleTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, tt := range titleTokens {
			if s := matchr.JaroWinkler(it, tt, false); s > score {
				score = s
			}
		}
	}
	return score
}
