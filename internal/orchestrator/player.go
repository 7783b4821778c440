package orchestrator

import (
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/oshaberin/internal/audio"
	"github.com/foxseedlab/oshaberin/internal/discord"
	"github.com/foxseedlab/oshaberin/internal/playback"
)

// framePlayer renders one playback item at a time: it slices the PCM buffer
// into platform frames, encodes each, and ships them down the voice
// connection at the frame interval. One player per guild connection.
type framePlayer struct {
	conn       discord.VoiceConnection
	newEncoder audio.EncoderFactory

	mu     sync.Mutex
	cancel chan struct{}
	closed bool
}

func newFramePlayer(conn discord.VoiceConnection, newEncoder audio.EncoderFactory) *framePlayer {
	return &framePlayer{conn: conn, newEncoder: newEncoder}
}

// Play starts rendering the item and calls done when it ends, whether it
// ran to completion or was aborted. The queue's generation counter makes
// an aborted item's done callback harmless.
func (p *framePlayer) Play(item playback.Item, done func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		done()
		return
	}
	if p.cancel != nil {
		close(p.cancel)
	}
	cancel := make(chan struct{})
	p.cancel = cancel
	p.mu.Unlock()

	go p.render(item, cancel, done)
}

// Stop aborts the current item, if any.
func (p *framePlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		close(p.cancel)
		p.cancel = nil
	}
}

// Close stops playback permanently.
func (p *framePlayer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.cancel != nil {
		close(p.cancel)
		p.cancel = nil
	}
}

func (p *framePlayer) render(item playback.Item, cancel <-chan struct{}, done func()) {
	defer done()

	enc, err := p.newEncoder()
	if err != nil {
		slog.Error("playback encoder unavailable; dropping item", "error", err, "label", item.Label)
		return
	}
	defer enc.Close()

	if err := p.conn.SetSpeaking(true); err != nil {
		slog.Warn("failed to signal speaking start", "error", err, "label", item.Label)
	}
	defer func() {
		if err := p.conn.SetSpeaking(false); err != nil {
			slog.Warn("failed to signal speaking stop", "error", err, "label", item.Label)
		}
	}()

	ticker := time.NewTicker(audio.FrameMs * time.Millisecond)
	defer ticker.Stop()

	pcm := item.PCM
	for offset := 0; offset < len(pcm); offset += audio.SamplesPerFrame {
		frame := pcm[offset:min(offset+audio.SamplesPerFrame, len(pcm))]
		if len(frame) < audio.SamplesPerFrame {
			// The encoder needs whole frames; pad the tail with silence.
			padded := make([]int16, audio.SamplesPerFrame)
			copy(padded, frame)
			frame = padded
		}
		packet, err := enc.Encode(frame)
		if err != nil {
			slog.Error("playback encode failed; aborting item", "error", err, "label", item.Label)
			return
		}
		select {
		case <-cancel:
			return
		case <-ticker.C:
		}
		if err := p.conn.SendOpusFrame(packet); err != nil {
			slog.Error("failed to send voice frame; aborting item", "error", err, "label", item.Label)
			return
		}
	}
}
