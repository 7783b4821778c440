// Package convo tracks the short conversational window that follows a wake
// event, per (guild, speaker). A speaker inside the window is engaged without
// a fresh wake; a pending slot (e.g. a city for a weather query) rides on the
// same window.
package convo

import (
	"sync"
	"time"
)

type Session struct {
	GuildID      string
	UserID       string
	ActiveUntil  time.Time
	Awaiting     string
	LastPromptAt time.Time
}

type Tracker struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func sessionKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// Get returns the live session for the speaker, evicting it first if the
// window has lapsed. There is no sweeper; expiry happens on read.
func (t *Tracker) Get(guildID, userID string) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.getLocked(guildID, userID)
}

func (t *Tracker) getLocked(guildID, userID string) *Session {
	key := sessionKey(guildID, userID)
	s, ok := t.sessions[key]
	if !ok {
		return nil
	}
	if t.now().After(s.ActiveUntil) {
		delete(t.sessions, key)
		return nil
	}
	return s
}

// Wake opens (or refreshes) the window for a speaker.
func (t *Tracker) Wake(guildID, userID string) *Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := sessionKey(guildID, userID)
	s := t.getLocked(guildID, userID)
	if s == nil {
		s = &Session{GuildID: guildID, UserID: userID}
		t.sessions[key] = s
	}
	s.ActiveUntil = t.now().Add(t.ttl)
	return s
}

// Extend pushes the window forward for a speaker that is still engaged. A
// no-op when no live session exists.
func (t *Tracker) Extend(guildID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.getLocked(guildID, userID); s != nil {
		s.ActiveUntil = t.now().Add(t.ttl)
	}
}

// SetAwaiting records (or clears, with "") the slot the agent asked the
// speaker to fill. Filling a slot clears the session so the exchange ends.
func (t *Tracker) SetAwaiting(guildID, userID, slot string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.getLocked(guildID, userID)
	if s == nil {
		return
	}
	s.Awaiting = slot
	if slot != "" {
		s.LastPromptAt = t.now()
	}
}

// Awaiting returns the pending slot descriptor, empty when none.
func (t *Tracker) Awaiting(guildID, userID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s := t.getLocked(guildID, userID); s != nil {
		return s.Awaiting
	}
	return ""
}

// Clear drops the session outright.
func (t *Tracker) Clear(guildID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sessions, sessionKey(guildID, userID))
}

// ShouldPromptAgain debounces clarifying questions: re-asking is allowed only
// once per interval, so an unanswered speaker is not nagged every turn.
func (t *Tracker) ShouldPromptAgain(guildID, userID string, minInterval time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.getLocked(guildID, userID)
	if s == nil {
		return true
	}
	if s.LastPromptAt.IsZero() {
		return true
	}
	if t.now().Sub(s.LastPromptAt) < minInterval {
		return false
	}
	s.LastPromptAt = t.now()
	return true
}
