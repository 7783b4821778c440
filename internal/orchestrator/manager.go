// Package orchestrator owns the per-guild runtime: the live voice
// connection, the capture supervisor, the playback queue, and the wiring
// between them. It follows members into voice, feeds finished captures
// through transcription into the router, and renders every spoken reply
// through the guild queue.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/oshaberin/internal/audio"
	"github.com/foxseedlab/oshaberin/internal/capture"
	"github.com/foxseedlab/oshaberin/internal/config"
	"github.com/foxseedlab/oshaberin/internal/discord"
	"github.com/foxseedlab/oshaberin/internal/playback"
	"github.com/foxseedlab/oshaberin/internal/router"
)

// Transcriber and Synthesizer are the degradation-first gateway surfaces:
// both signal failure with an empty result instead of an error.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []int16) string
}

type Synthesizer interface {
	Synthesize(ctx context.Context, voice, text string) []int16
}

// TranscriptHandler consumes one finished speaker turn.
type TranscriptHandler interface {
	HandleTranscript(ctx context.Context, req router.Request)
}

var ErrNotInVoice = errors.New("not connected to a voice channel in this guild")

const (
	messageConnected    = ":studio_microphone: Connected and listening."
	messageDisconnected = ":wave: Leaving voice."
)

type Manager struct {
	cfg        *config.Config
	discord    discord.Client
	transcribe Transcriber
	speak      Synthesizer
	newDecoder audio.DecoderFactory
	newEncoder audio.EncoderFactory

	mu        sync.Mutex
	route     TranscriptHandler
	guilds    map[string]*guildState
	botUserID string
}

type guildState struct {
	guildID      string
	channelID    string
	voice        discord.VoiceConnection
	queue        *playback.Queue
	player       *framePlayer
	capture      *capture.Supervisor
	participants map[string]struct{}
}

func NewManager(cfg *config.Config, dc discord.Client, stt Transcriber, tts Synthesizer, newDecoder audio.DecoderFactory, newEncoder audio.EncoderFactory) *Manager {
	return &Manager{
		cfg:        cfg,
		discord:    dc,
		transcribe: stt,
		speak:      tts,
		newDecoder: newDecoder,
		newEncoder: newEncoder,
		guilds:     make(map[string]*guildState),
	}
}

// SetRoute attaches the transcript consumer. The router and the manager
// reference each other (replies flow back through Say), so this side of the
// cycle is wired after construction.
func (m *Manager) SetRoute(route TranscriptHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.route = route
}

// SetBotUserID records the agent's own user ID so its voice state events and
// audio frames are never treated as a participant's.
func (m *Manager) SetBotUserID(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.botUserID = userID
}

func (m *Manager) isSelf(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.botUserID != "" && userID == m.botUserID
}

// HandleVoiceStateUpdate follows humans into and out of voice: the agent
// joins a channel when its first human arrives and leaves when the last one
// is gone.
func (m *Manager) HandleVoiceStateUpdate(event discord.VoiceStateEvent) {
	if m.cfg.DiscordGuildID != "" && event.GuildID != m.cfg.DiscordGuildID {
		slog.Debug("ignoring voice event for different guild",
			"event_guild_id", event.GuildID, "configured_guild_id", m.cfg.DiscordGuildID)
		return
	}
	if event.UserIsBot || m.isSelf(event.UserID) {
		return
	}

	m.mu.Lock()
	gs := m.guilds[event.GuildID]
	m.mu.Unlock()

	if gs == nil {
		if event.AfterChannelID == "" {
			return
		}
		if err := m.joinVoice(event.GuildID, event.AfterChannelID, event.UserID); err != nil {
			slog.Error("failed to join voice channel", "error", err,
				"guild_id", event.GuildID, "channel_id", event.AfterChannelID)
		}
		return
	}

	if event.AfterChannelID == gs.channelID {
		m.mu.Lock()
		gs.participants[event.UserID] = struct{}{}
		count := len(gs.participants)
		m.mu.Unlock()
		slog.Info("participant joined", "guild_id", event.GuildID, "user_id", event.UserID, "participants", count)
		return
	}

	// Anything else is a departure from our channel (including a leave event
	// whose before-channel the gateway did not report).
	m.mu.Lock()
	delete(gs.participants, event.UserID)
	remaining := len(gs.participants)
	m.mu.Unlock()
	gs.capture.StopSpeaker(event.UserID)
	if remaining == 0 {
		m.leaveVoice(event.GuildID, "all participants left voice channel")
	}
}

func (m *Manager) joinVoice(guildID, channelID, userID string) error {
	voice, err := m.discord.JoinVoiceChannel(guildID, channelID)
	if err != nil {
		return err
	}

	gs := &guildState{
		guildID:      guildID,
		channelID:    channelID,
		voice:        voice,
		player:       newFramePlayer(voice, m.newEncoder),
		participants: map[string]struct{}{userID: {}},
	}
	gs.queue = playback.NewQueue(guildID, gs.player)
	gs.capture = capture.NewSupervisor(guildID, capture.Config{
		SilenceWindow: time.Duration(m.cfg.CaptureSilenceMs) * time.Millisecond,
		MaxDuration:   time.Duration(m.cfg.CaptureMaxSec) * time.Second,
		MinDuration:   time.Duration(m.cfg.CaptureMinMs) * time.Millisecond,
	}, m.newDecoder, func(speakerID string, mono []int16) {
		go m.handleCapture(guildID, channelID, speakerID, mono)
	})

	m.mu.Lock()
	if _, exists := m.guilds[guildID]; exists {
		m.mu.Unlock()
		_ = voice.Disconnect()
		return nil
	}
	m.guilds[guildID] = gs
	m.mu.Unlock()

	voice.RegisterSpeakingUpdate(func(ev discord.SpeakingEvent) {
		m.handleSpeaking(gs, ev)
	})
	voice.ReceiveAudio(func(speakerID string, packet []byte) {
		m.handleFrame(gs, speakerID, packet)
	})

	slog.Info("joined voice channel", "guild_id", guildID, "channel_id", channelID)
	_ = m.discord.SendChannelMessage(channelID, messageConnected)
	return nil
}

// handleSpeaking is the human-priority rule: a speech start preempts
// whatever the agent is saying or still has queued.
func (m *Manager) handleSpeaking(gs *guildState, ev discord.SpeakingEvent) {
	if m.isSelf(ev.UserID) {
		return
	}
	if ev.Speaking {
		gs.queue.Interrupt()
		gs.capture.StartSpeaker(ev.UserID)
		return
	}
	gs.capture.StopSpeaker(ev.UserID)
}

// handleFrame routes a compressed frame into the speaker's capture. Some
// gateways deliver frames before (or without) a speaking signal, so an
// unexpected frame starts a capture itself.
func (m *Manager) handleFrame(gs *guildState, speakerID string, packet []byte) {
	if m.isSelf(speakerID) {
		return
	}
	if !gs.capture.Busy(speakerID) {
		if !gs.capture.StartSpeaker(speakerID) {
			return
		}
		gs.queue.Interrupt()
	}
	gs.capture.PushFrame(speakerID, packet)
}

func (m *Manager) handleCapture(guildID, channelID, userID string, mono []int16) {
	m.mu.Lock()
	route := m.route
	m.mu.Unlock()
	if route == nil {
		slog.Warn("no transcript handler attached; dropping capture", "guild_id", guildID, "user_id", userID)
		return
	}
	ctx := context.Background()
	text := m.transcribe.Transcribe(ctx, mono)
	if text == "" {
		return
	}
	name, err := m.discord.GetMemberDisplayName(guildID, userID)
	if err != nil {
		slog.Warn("could not resolve speaker display name", "error", err, "guild_id", guildID, "user_id", userID)
		name = userID
	}
	slog.Info("transcript ready", "guild_id", guildID, "user_id", userID, "chars", len(text))
	route.HandleTranscript(ctx, router.Request{
		GuildID:     guildID,
		ChannelID:   channelID,
		UserID:      userID,
		SpeakerName: name,
		Text:        text,
	})
}

func (m *Manager) leaveVoice(guildID, reason string) {
	m.mu.Lock()
	gs, ok := m.guilds[guildID]
	if ok {
		delete(m.guilds, guildID)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	slog.Info("leaving voice channel", "guild_id", guildID, "channel_id", gs.channelID, "reason", reason)
	gs.capture.Close()
	gs.queue.Interrupt()
	gs.player.Close()
	_ = m.discord.SendChannelMessage(gs.channelID, messageDisconnected)
	if err := gs.voice.Disconnect(); err != nil {
		slog.Error("voice disconnect failed", "error", err, "guild_id", guildID)
	}
}

// Close tears down every guild's voice state. The gateway connection itself
// is owned by the caller.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.guilds))
	for id := range m.guilds {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	for _, id := range ids {
		m.leaveVoice(id, "shutting down")
	}
}

func (m *Manager) guild(guildID string) *guildState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.guilds[guildID]
}

// Say synthesizes reply text and enqueues it on the guild queue. A failed
// synthesis or a missing connection drops the reply silently.
func (m *Manager) Say(ctx context.Context, guildID, label, text string) {
	gs := m.guild(guildID)
	if gs == nil {
		slog.Debug("dropping reply; not in voice", "guild_id", guildID, "label", label)
		return
	}
	pcm := m.speak.Synthesize(ctx, m.cfg.SynthesisVoice, text)
	if len(pcm) == 0 {
		return
	}
	gs.queue.Enqueue(playback.Item{Label: label, PCM: pcm})
}

// EnqueuePCM, Skip and Stop expose the guild queue to command handlers.
func (m *Manager) EnqueuePCM(guildID, label string, pcm []int16) error {
	gs := m.guild(guildID)
	if gs == nil {
		return ErrNotInVoice
	}
	gs.queue.Enqueue(playback.Item{Label: label, PCM: pcm})
	return nil
}

func (m *Manager) Skip(guildID string) error {
	gs := m.guild(guildID)
	if gs == nil {
		return ErrNotInVoice
	}
	gs.queue.Skip()
	return nil
}

func (m *Manager) Stop(guildID string) error {
	gs := m.guild(guildID)
	if gs == nil {
		return ErrNotInVoice
	}
	gs.queue.Interrupt()
	return nil
}
