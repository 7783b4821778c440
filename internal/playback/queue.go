// Package playback serializes a guild's audio output. One queue per guild
// feeds one player; items play strictly FIFO, and a human speaking always
// preempts whatever the agent still had queued.
package playback

import (
	"log/slog"
	"sync"
)

// Item is one unit of output: a synthesized reply, a confirmation phrase, or
// a bare tone. PCM is interleaved stereo at the platform rate.
type Item struct {
	Label string
	PCM   []int16
}

// Player renders exactly one item at a time and calls done when it finishes
// naturally. Stop aborts the current item; an aborted item's done callback
// may still fire and is ignored via the queue's generation counter.
type Player interface {
	Play(item Item, done func())
	Stop()
}

type Queue struct {
	mu      sync.Mutex
	player  Player
	guildID string
	items   []Item
	playing bool
	gen     int
}

func NewQueue(guildID string, player Player) *Queue {
	return &Queue{guildID: guildID, player: player}
}

// Enqueue plays the item immediately when the player is idle, otherwise
// appends it behind everything already waiting.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	if q.playing {
		q.items = append(q.items, item)
		depth := len(q.items)
		q.mu.Unlock()
		slog.Debug("playback item queued", "guild_id", q.guildID, "label", item.Label, "depth", depth)
		return
	}
	q.playing = true
	gen := q.gen
	q.mu.Unlock()
	q.start(item, gen)
}

// start hands the item to the player, then re-checks the generation: an
// interruption that landed between releasing the lock and Play would have
// stopped a player that was not rendering yet, so the freshly started item
// must be aborted here or it would keep playing over the speaker.
func (q *Queue) start(item Item, gen int) {
	slog.Debug("playback item started", "guild_id", q.guildID, "label", item.Label)
	q.player.Play(item, func() { q.onItemDone(gen) })
	q.mu.Lock()
	stale := gen != q.gen
	q.mu.Unlock()
	if stale {
		q.player.Stop()
	}
}

func (q *Queue) onItemDone(gen int) {
	q.mu.Lock()
	if gen != q.gen {
		// Stale completion from before an interruption.
		q.mu.Unlock()
		return
	}
	if len(q.items) == 0 {
		q.playing = false
		q.mu.Unlock()
		return
	}
	next := q.items[0]
	q.items = q.items[1:]
	q.mu.Unlock()
	q.start(next, gen)
}

// Interrupt stops the current item and discards the queue. Used when a
// speaker starts talking mid-playback: the human has priority.
func (q *Queue) Interrupt() {
	q.mu.Lock()
	q.gen++
	dropped := len(q.items)
	q.items = nil
	wasPlaying := q.playing
	q.playing = false
	q.mu.Unlock()
	if wasPlaying {
		q.player.Stop()
		slog.Info("playback interrupted by speaker", "guild_id", q.guildID, "dropped_items", dropped)
	}
}

// Skip aborts only the current item; anything queued behind it plays next.
// The aborted item's own completion is invalidated via the generation
// counter so the queue cannot double-advance.
func (q *Queue) Skip() {
	q.mu.Lock()
	if !q.playing {
		q.mu.Unlock()
		return
	}
	q.gen++
	gen := q.gen
	if len(q.items) == 0 {
		q.playing = false
		q.mu.Unlock()
		q.player.Stop()
		return
	}
	next := q.items[0]
	q.items = q.items[1:]
	q.mu.Unlock()
	q.player.Stop()
	slog.Debug("playback item skipped", "guild_id", q.guildID, "next", next.Label)
	q.start(next, gen)
}

func (q *Queue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return !q.playing
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
