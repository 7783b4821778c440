// Package capture ingests one speaker's live audio between a speech-start
// signal and end-of-speech, decodes it to mono PCM, and hands the finished
// buffer off for transcription. Captures are bounded twice over: a trailing
// silence window ends a normal utterance, a hard duration cap ends a
// runaway one, so no capture ever blocks indefinitely.
package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/oshaberin/internal/audio"
)

type Config struct {
	SilenceWindow time.Duration
	MaxDuration   time.Duration
	MinDuration   time.Duration
}

// Handoff receives a finished mono capture for the rest of the pipeline.
type Handoff func(userID string, mono []int16)

const frameBacklog = 64

// Supervisor owns a guild's busy-speaker set and one running capture per
// busy speaker. A second start for a speaker already capturing is ignored
// so duplicate subscriptions cannot happen.
type Supervisor struct {
	guildID    string
	cfg        Config
	newDecoder audio.DecoderFactory
	handoff    Handoff

	mu     sync.Mutex
	busy   map[string]*speakerCapture
	closed bool
}

func NewSupervisor(guildID string, cfg Config, newDecoder audio.DecoderFactory, handoff Handoff) *Supervisor {
	return &Supervisor{
		guildID:    guildID,
		cfg:        cfg,
		newDecoder: newDecoder,
		handoff:    handoff,
		busy:       make(map[string]*speakerCapture),
	}
}

type speakerCapture struct {
	userID string
	frames chan []byte
	stop   chan struct{}
	once   sync.Once
}

// StartSpeaker transitions a speaker from Idle to Capturing. Returns false
// when the speaker is already busy or the supervisor is closed.
func (s *Supervisor) StartSpeaker(userID string) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if _, exists := s.busy[userID]; exists {
		s.mu.Unlock()
		return false
	}
	c := &speakerCapture{
		userID: userID,
		frames: make(chan []byte, frameBacklog),
		stop:   make(chan struct{}),
	}
	s.busy[userID] = c
	s.mu.Unlock()

	slog.Info("capture started", "guild_id", s.guildID, "user_id", userID)
	go s.run(c)
	return true
}

// PushFrame routes one compressed frame to the speaker's running capture.
// Frames for idle speakers are dropped; the orchestrator decides whether an
// unexpected frame should first start a capture.
func (s *Supervisor) PushFrame(userID string, packet []byte) {
	s.mu.Lock()
	c, ok := s.busy[userID]
	s.mu.Unlock()
	if !ok || len(packet) == 0 {
		return
	}
	select {
	case c.frames <- packet:
	default:
		slog.Warn("capture frame backlog full; dropping frame", "guild_id", s.guildID, "user_id", userID)
	}
}

// StopSpeaker signals end-of-speech explicitly, ahead of the silence window.
func (s *Supervisor) StopSpeaker(userID string) {
	s.mu.Lock()
	c, ok := s.busy[userID]
	s.mu.Unlock()
	if !ok {
		return
	}
	c.once.Do(func() { close(c.stop) })
}

// Busy reports whether a capture is running for the speaker.
func (s *Supervisor) Busy(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.busy[userID]
	return ok
}

// Close discards all running captures.
func (s *Supervisor) Close() {
	s.mu.Lock()
	s.closed = true
	captures := make([]*speakerCapture, 0, len(s.busy))
	for _, c := range s.busy {
		captures = append(captures, c)
	}
	s.mu.Unlock()
	for _, c := range captures {
		c.once.Do(func() { close(c.stop) })
	}
}

// run is the Capturing state. It accumulates decoded stereo PCM until
// end-of-speech, then finalizes. The deferred cleanup removes the speaker
// from the busy set on every exit path, so one bad capture never wedges a
// speaker permanently.
func (s *Supervisor) run(c *speakerCapture) {
	defer func() {
		s.mu.Lock()
		delete(s.busy, c.userID)
		s.mu.Unlock()
	}()

	dec, err := s.newDecoder()
	if err != nil {
		slog.Error("capture decoder unavailable", "error", err, "guild_id", s.guildID, "user_id", c.userID)
		return
	}
	defer dec.Close()

	var stereo []int16
	hardCap := time.NewTimer(s.cfg.MaxDuration)
	defer hardCap.Stop()
	silence := time.NewTimer(s.cfg.SilenceWindow)
	defer silence.Stop()

	for {
		select {
		case packet := <-c.frames:
			pcm, err := dec.Decode(packet)
			if err != nil {
				slog.Warn("capture decode failed; discarding capture", "error", err, "guild_id", s.guildID, "user_id", c.userID)
				return
			}
			stereo = append(stereo, pcm...)
			if !silence.Stop() {
				select {
				case <-silence.C:
				default:
				}
			}
			silence.Reset(s.cfg.SilenceWindow)
		case <-silence.C:
			s.finalize(c.userID, stereo, "silence")
			return
		case <-hardCap.C:
			s.finalize(c.userID, stereo, "max_duration")
			return
		case <-c.stop:
			stereo, ok := s.drain(dec, c, stereo)
			if !ok {
				return
			}
			s.finalize(c.userID, stereo, "speech_end")
			return
		}
	}
}

// drain decodes frames still buffered when the explicit end-of-speech signal
// arrives, so the tail of the utterance is not lost to scheduling.
func (s *Supervisor) drain(dec audio.Decoder, c *speakerCapture, stereo []int16) ([]int16, bool) {
	for {
		select {
		case packet := <-c.frames:
			pcm, err := dec.Decode(packet)
			if err != nil {
				slog.Warn("capture decode failed; discarding capture", "error", err, "guild_id", s.guildID, "user_id", c.userID)
				return nil, false
			}
			stereo = append(stereo, pcm...)
		default:
			return stereo, true
		}
	}
}

// finalize is the Decoding→Handoff|Discarded transition: downmix, apply the
// minimum-duration gate, and hand off.
func (s *Supervisor) finalize(userID string, stereo []int16, reason string) {
	mono := audio.DownmixToMono(stereo)
	minSamples := int(s.cfg.MinDuration.Seconds() * float64(audio.SampleRate))
	if len(mono) < minSamples {
		// Sub-threshold captures are glottal noise or accidental keys,
		// not intent.
		slog.Debug("capture discarded below minimum duration",
			"guild_id", s.guildID, "user_id", userID, "samples", len(mono), "reason", reason)
		return
	}
	slog.Info("capture finished",
		"guild_id", s.guildID,
		"user_id", userID,
		"samples", len(mono),
		"duration_ms", len(mono)*1000/audio.SampleRate,
		"reason", reason)
	s.handoff(userID, mono)
}
