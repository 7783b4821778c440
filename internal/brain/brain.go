// Package brain is the boundary to the conversational model. This core
// keeps only a small rolling turn window per speaker for short-term
// coherence; long-term memory lives elsewhere.
package brain

import (
	"context"
	"sync"
)

const (
	RoleSpeaker = "speaker"
	RoleAgent   = "agent"
)

type Turn struct {
	Role string
	Text string
}

type Request struct {
	GuildID     string
	UserID      string
	SpeakerName string
	Transcript  string
	History     []Turn
}

type Responder interface {
	Reply(ctx context.Context, req Request) (string, error)
}

// History is the rolling per-(guild, speaker) turn window. Oldest turns are
// dropped once the window is full; nothing is ever persisted.
type History struct {
	mu       sync.Mutex
	maxTurns int
	turns    map[string][]Turn
}

func NewHistory(maxTurns int) *History {
	return &History{
		maxTurns: maxTurns,
		turns:    make(map[string][]Turn),
	}
}

func historyKey(guildID, userID string) string {
	return guildID + ":" + userID
}

func (h *History) Append(guildID, userID, role, text string) {
	if text == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	key := historyKey(guildID, userID)
	turns := append(h.turns[key], Turn{Role: role, Text: text})
	if len(turns) > h.maxTurns {
		turns = turns[len(turns)-h.maxTurns:]
	}
	h.turns[key] = turns
}

func (h *History) Recent(guildID, userID string) []Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	turns := h.turns[historyKey(guildID, userID)]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}
