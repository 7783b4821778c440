// Package wake decides whether an utterance is directed at the agent.
//
// Matching is fuzzy rather than exact: transcription of short names over
// compressed voice audio is unreliable, so alias comparison happens after a
// phonetic normalization pass and allows a per-profile edit distance.
//
// A profile with EngagementRequired=false does not enable trigger-less free
// listening; it only permits session continuation, which the router handles.
// Free-floating listening was rejected because it causes spurious activation
// on ordinary conversation.
package wake

import "strings"

// Sensitivity tiers map to the maximum allowed edit distance between the
// normalized first token and a normalized alias.
const (
	SensitivityStrict  = "strict"
	SensitivityDefault = "default"
	SensitivityLenient = "lenient"
)

type Profile struct {
	Aliases            []string
	EngagementRequired bool
	Tolerance          int
}

// NewProfile resolves a profile once from configuration values. Unknown
// sensitivity tiers fall back to the default tolerance.
func NewProfile(aliases []string, engagementRequired bool, sensitivity string) Profile {
	tolerance := 2
	switch sensitivity {
	case SensitivityStrict:
		tolerance = 1
	case SensitivityLenient:
		tolerance = 3
	}
	kept := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		alias = strings.TrimSpace(alias)
		if alias != "" {
			kept = append(kept, alias)
		}
	}
	return Profile{
		Aliases:            kept,
		EngagementRequired: engagementRequired,
		Tolerance:          tolerance,
	}
}

type Reason string

const (
	ReasonEmptyInput   Reason = "empty_input"
	ReasonNoAliasMatch Reason = "no_alias_match"
)

type Result struct {
	Wake       bool
	Confidence float64
	Alias      string
	Remainder  string
	Reason     Reason
}

var greetingParticles = map[string]struct{}{
	"hey":  {},
	"okay": {},
	"ok":   {},
	"yo":   {},
}

// Detect reports whether the utterance engages the agent. It never fails;
// a miss carries a reason code instead.
func Detect(transcript string, profile Profile) Result {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(transcript)))
	if len(tokens) == 0 {
		return Result{Reason: ReasonEmptyInput}
	}

	greeted := false
	if _, ok := greetingParticles[stripNonAlnum(tokens[0])]; ok && len(tokens) > 1 {
		tokens = tokens[1:]
		greeted = true
	}

	candidate := normalizeToken(tokens[0])
	if candidate == "" {
		return Result{Reason: ReasonNoAliasMatch}
	}

	bestAlias := ""
	bestDistance := -1
	for _, alias := range profile.Aliases {
		normalized := normalizeToken(alias)
		if normalized == "" {
			continue
		}
		d := editDistance(candidate, normalized)
		if bestDistance < 0 || d < bestDistance {
			bestDistance = d
			bestAlias = alias
		}
	}
	if bestDistance < 0 || bestDistance > profile.Tolerance {
		return Result{Reason: ReasonNoAliasMatch}
	}

	return Result{
		Wake:       true,
		Confidence: confidence(bestDistance, profile.Tolerance, greeted),
		Alias:      bestAlias,
		Remainder:  strings.Join(tokens[1:], " "),
	}
}

// confidence falls with edit distance and rises when the speaker used a
// greeting particle, which is a strong directedness signal. The base tops
// out at 0.9 so the greeting bonus stays visible even on exact matches.
func confidence(distance, tolerance int, greeted bool) float64 {
	c := 0.9 * (1.0 - float64(distance)/float64(tolerance+1))
	if greeted {
		c += 0.1
	}
	if c > 1.0 {
		c = 1.0
	}
	if c < 0 {
		c = 0
	}
	return c
}

// normalizeToken collapses phonetically confusable letter classes so that
// common mishearings (b/p, v/f, w/u, y/i, s/z) land on the same string, and
// drops everything that is not a letter or digit.
func normalizeToken(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		switch {
		case r == 'p':
			b.WriteRune('b')
		case r == 'v':
			b.WriteRune('f')
		case r == 'z':
			b.WriteRune('s')
		case r == 'w':
			b.WriteRune('u')
		case r == 'y':
			b.WriteRune('i')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripNonAlnum(token string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(token) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
