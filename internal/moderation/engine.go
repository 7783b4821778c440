// Package moderation classifies transcripts against the content-safety
// policy and drives the strike/enforcement lifecycle. Scanning is stateless;
// the strike ledger and lockdown registry carry the only cross-turn state.
package moderation

import (
	"regexp"
	"strings"
)

const (
	ReasonHarassment = "harassment"
	ReasonThreat     = "threat"
	ReasonSelfHarm   = "self_harm"
)

// Signal weights for the threat/self-harm intent score.
const (
	weightFirstPersonIntent = 2
	weightViolentVerb       = 1
	weightHumanTarget       = 2
	weightRealWorldPlace    = 2
	weightDangerousAction   = 3
	offsetGamingContext     = -2
	offsetRelaxedChannel    = -2
)

// Violation thresholds. An active lockdown lowers the bar; a hard lockdown
// lowers it further.
const (
	thresholdNormal       = 5
	thresholdSoftLockdown = 4
	thresholdHardLockdown = 3
)

// selfHarmWindow is the token distance within which a violent verb next to a
// self-referential phrase is flagged regardless of the overall score.
const selfHarmWindow = 3

type Context struct {
	GuildID   string
	ChannelID string
	UserID    string
	Relaxed   bool
	Exempt    bool
}

type Verdict struct {
	Violated bool
	Reason   string
	Weight   int
	Soft     bool
}

type Engine struct {
	enabled   bool
	lockdowns *LockdownRegistry
}

func NewEngine(enabled bool, lockdowns *LockdownRegistry) *Engine {
	return &Engine{enabled: enabled, lockdowns: lockdowns}
}

var benignPhrases = []string{
	"killing it",
	"killed it",
	"dead serious",
	"kill the lights",
	"kill the music",
	"you're killing me",
	"dying of laughter",
	"hurt locker",
}

var harassmentTerms = []string{
	"nobody likes you",
	"everyone hates you",
	"you are worthless",
	"you're worthless",
	"you should disappear",
	"waste of air",
	"kill yourself",
	"go hurt yourself",
}

// softHarassmentTerms log and privately notify but accrue no strike.
var softHarassmentTerms = []string{
	"shut up idiot",
	"you idiot",
	"you moron",
	"stupid idiot",
}

var harassmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bnobody (?:would|will) miss you\b`),
	regexp.MustCompile(`\bgo (?:die|jump)\b`),
	regexp.MustCompile(`\byou(?:'?re| are) (?:trash|garbage|pathetic)\b`),
}

// selfHarmAbbrevs are matched as whole sparse tokens, independent of the
// intent score, because they are unambiguous encouragement.
var selfHarmAbbrevs = map[string]struct{}{
	"kys": {},
}

var firstPersonIntentPhrases = []string{
	"i will",
	"i am going to",
	"i'm going to",
	"im going to",
	"i'm gonna",
	"im gonna",
	"gonna",
}

var violentVerbs = map[string]struct{}{
	"hurt": {}, "kill": {}, "stab": {}, "shoot": {}, "attack": {},
	"beat": {}, "strangle": {}, "cut": {}, "punch": {},
}

var humanTargetTokens = map[string]struct{}{
	"you": {}, "him": {}, "her": {}, "them": {}, "everyone": {},
	"everybody": {}, "myself": {}, "yourself": {}, "himself": {},
	"herself": {}, "people": {}, "kids": {}, "teacher": {},
}

var realWorldPlaceTokens = map[string]struct{}{
	"school": {}, "work": {}, "home": {}, "house": {}, "mall": {},
	"church": {}, "park": {}, "street": {}, "office": {}, "class": {},
}

var dangerousActionPhrases = []string{
	"bring a gun",
	"bring a knife",
	"with a knife",
	"with a gun",
	"burn down",
	"blow up",
	"overdose on",
}

var gamingContextTokens = map[string]struct{}{
	"game": {}, "match": {}, "round": {}, "respawn": {}, "lobby": {},
	"server": {}, "raid": {}, "boss": {}, "pvp": {}, "loot": {},
	"minecraft": {}, "spawn": {}, "noob": {}, "clan": {}, "quest": {},
}

var selfReferentialTokens = map[string]struct{}{
	"myself": {}, "me": {},
}

// Scan classifies one transcript. It has no side effects; escalation is the
// Escalator's job so a caller can decide what a verdict costs.
func (e *Engine) Scan(text string, ctx Context) Verdict {
	if !e.enabled || ctx.Exempt {
		return Verdict{}
	}
	normalized := Normalize(text)
	if normalized == "" {
		return Verdict{}
	}
	for _, phrase := range benignPhrases {
		if strings.Contains(normalized, phrase) {
			return Verdict{}
		}
	}

	if v := e.scanHarassment(normalized); v.Violated {
		return v
	}
	return e.scanIntent(normalized, ctx)
}

func (e *Engine) scanHarassment(normalized string) Verdict {
	for _, term := range harassmentTerms {
		if strings.Contains(normalized, term) {
			reason := ReasonHarassment
			if strings.Contains(term, "yourself") || strings.Contains(term, "kill yourself") {
				reason = ReasonSelfHarm
			}
			return Verdict{Violated: true, Reason: reason, Weight: 3}
		}
	}
	for _, re := range harassmentPatterns {
		if re.MatchString(normalized) {
			return Verdict{Violated: true, Reason: ReasonHarassment, Weight: 3}
		}
	}
	for _, term := range softHarassmentTerms {
		if strings.Contains(normalized, term) {
			return Verdict{Violated: true, Reason: ReasonHarassment, Weight: 1, Soft: true}
		}
	}
	return Verdict{}
}

func (e *Engine) scanIntent(normalized string, ctx Context) Verdict {
	tokens := strings.Fields(normalized)

	for _, tok := range tokens {
		if _, ok := selfHarmAbbrevs[tok]; ok {
			return Verdict{Violated: true, Reason: ReasonSelfHarm, Weight: 3}
		}
	}
	if violentVerbNearSelfReference(tokens) {
		return Verdict{Violated: true, Reason: ReasonSelfHarm, Weight: 3}
	}

	score := 0
	for _, phrase := range firstPersonIntentPhrases {
		if strings.Contains(normalized, phrase) {
			score += weightFirstPersonIntent
			break
		}
	}
	hasViolentVerb := false
	hasGaming := false
	for _, tok := range tokens {
		if _, ok := violentVerbs[tok]; ok && !hasViolentVerb {
			score += weightViolentVerb
			hasViolentVerb = true
		}
		if _, ok := gamingContextTokens[tok]; ok && !hasGaming {
			score += offsetGamingContext
			hasGaming = true
		}
	}
	hasDangerousAction := false
	for _, phrase := range dangerousActionPhrases {
		if strings.Contains(normalized, phrase) {
			score += weightDangerousAction
			hasDangerousAction = true
			break
		}
	}
	if !hasViolentVerb && !hasDangerousAction {
		// Without a violent verb or dangerous-action phrasing there is no
		// threat to score, whatever the other signals add up to.
		return Verdict{}
	}
	if hasToken(tokens, humanTargetTokens) {
		score += weightHumanTarget
	}
	if hasToken(tokens, realWorldPlaceTokens) {
		score += weightRealWorldPlace
	}
	if ctx.Relaxed {
		score += offsetRelaxedChannel
	}

	if score < e.threshold(ctx.GuildID, ctx.UserID) {
		return Verdict{}
	}
	reason := ReasonThreat
	if hasToken(tokens, selfReferentialTokens) {
		reason = ReasonSelfHarm
	}
	return Verdict{Violated: true, Reason: reason, Weight: 3}
}

func (e *Engine) threshold(guildID, userID string) int {
	switch e.lockdowns.ActiveLevel(guildID, userID) {
	case LockdownHard:
		return thresholdHardLockdown
	case LockdownSoft:
		return thresholdSoftLockdown
	default:
		return thresholdNormal
	}
}

func violentVerbNearSelfReference(tokens []string) bool {
	for i, tok := range tokens {
		if _, ok := violentVerbs[tok]; !ok {
			continue
		}
		lo := i - selfHarmWindow
		if lo < 0 {
			lo = 0
		}
		hi := i + selfHarmWindow
		if hi > len(tokens)-1 {
			hi = len(tokens) - 1
		}
		for j := lo; j <= hi; j++ {
			if _, ok := selfReferentialTokens[tokens[j]]; ok {
				return true
			}
		}
	}
	return false
}

func hasToken(tokens []string, set map[string]struct{}) bool {
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			return true
		}
	}
	return false
}
