package moderation

import (
	"sync"
	"time"
)

// StrikeLedger accumulates weighted violation severity per (guild, user),
// decaying one unit per elapsed decay window since the last violation. It is
// process-lifetime state; durability belongs to an outside collaborator.
type StrikeLedger struct {
	mu          sync.Mutex
	decayWindow time.Duration
	entries     map[string]*strikeEntry
	now         func() time.Time
}

type strikeEntry struct {
	count int
	last  time.Time
}

func NewStrikeLedger(decayWindow time.Duration) *StrikeLedger {
	return &StrikeLedger{
		decayWindow: decayWindow,
		entries:     make(map[string]*strikeEntry),
		now:         time.Now,
	}
}

func ledgerKey(guildID, userID string) string {
	return guildID + ":" + userID
}

// Add applies pending decay, then accrues the violation weight. Returns the
// resulting count.
func (l *StrikeLedger) Add(guildID, userID string, weight int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey(guildID, userID)
	e, ok := l.entries[key]
	if !ok {
		e = &strikeEntry{}
		l.entries[key] = e
	}
	l.decayLocked(e)
	e.count += weight
	e.last = l.now()
	return e.count
}

// Count returns the current decayed count without accruing anything.
func (l *StrikeLedger) Count(guildID, userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ledgerKey(guildID, userID)]
	if !ok {
		return 0
	}
	l.decayLocked(e)
	return e.count
}

// decayLocked removes one unit per fully elapsed decay window since the last
// violation. The count never goes below zero, and the decay anchor advances
// only by whole windows so partial elapses are not lost.
func (l *StrikeLedger) decayLocked(e *strikeEntry) {
	if e.count == 0 || e.last.IsZero() {
		return
	}
	elapsed := l.now().Sub(e.last)
	steps := int(elapsed / l.decayWindow)
	if steps <= 0 {
		return
	}
	if steps > e.count {
		steps = e.count
	}
	e.count -= steps
	e.last = e.last.Add(time.Duration(steps) * l.decayWindow)
}

type LockdownLevel string

const (
	LockdownNone LockdownLevel = ""
	LockdownSoft LockdownLevel = "soft"
	LockdownHard LockdownLevel = "hard"
)

type Lockdown struct {
	Level  LockdownLevel
	Until  time.Time
	By     string
	Reason string
}

// LockdownRegistry holds moderator-issued sensitivity tightening per
// (guild, user). Entries expire lazily on read.
type LockdownRegistry struct {
	mu      sync.Mutex
	entries map[string]Lockdown
	now     func() time.Time
}

func NewLockdownRegistry() *LockdownRegistry {
	return &LockdownRegistry{
		entries: make(map[string]Lockdown),
		now:     time.Now,
	}
}

func (r *LockdownRegistry) Set(guildID, userID string, ld Lockdown) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[ledgerKey(guildID, userID)] = ld
}

func (r *LockdownRegistry) Lift(guildID, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, ledgerKey(guildID, userID))
}

// Get returns the active lockdown, if any.
func (r *LockdownRegistry) Get(guildID, userID string) (Lockdown, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := ledgerKey(guildID, userID)
	ld, ok := r.entries[key]
	if !ok {
		return Lockdown{}, false
	}
	if r.now().After(ld.Until) {
		delete(r.entries, key)
		return Lockdown{}, false
	}
	return ld, true
}

// ActiveLevel is Get reduced to the level, LockdownNone when absent.
func (r *LockdownRegistry) ActiveLevel(guildID, userID string) LockdownLevel {
	ld, ok := r.Get(guildID, userID)
	if !ok {
		return LockdownNone
	}
	return ld.Level
}
