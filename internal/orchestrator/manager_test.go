package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/oshaberin/internal/audio"
	"github.com/foxseedlab/oshaberin/internal/config"
	"github.com/foxseedlab/oshaberin/internal/discord"
	"github.com/foxseedlab/oshaberin/internal/router"
)

type mockVoiceConnection struct {
	mu           sync.Mutex
	disconnected bool
	sentFrames   int
	speaking     []bool
	audioCb      func(userID string, packet []byte)
	speakingCb   func(discord.SpeakingEvent)
}

func (v *mockVoiceConnection) Disconnect() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.disconnected = true
	return nil
}

func (v *mockVoiceConnection) ReceiveAudio(cb func(userID string, packet []byte)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.audioCb = cb
}

func (v *mockVoiceConnection) RegisterSpeakingUpdate(cb func(discord.SpeakingEvent)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.speakingCb = cb
}

func (v *mockVoiceConnection) SendOpusFrame(_ []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sentFrames++
	return nil
}

func (v *mockVoiceConnection) SetSpeaking(speaking bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.speaking = append(v.speaking, speaking)
	return nil
}

func (v *mockVoiceConnection) pushAudio(userID string, packet []byte) {
	v.mu.Lock()
	cb := v.audioCb
	v.mu.Unlock()
	if cb != nil {
		cb(userID, packet)
	}
}

func (v *mockVoiceConnection) pushSpeaking(ev discord.SpeakingEvent) {
	v.mu.Lock()
	cb := v.speakingCb
	v.mu.Unlock()
	if cb != nil {
		cb(ev)
	}
}

func (v *mockVoiceConnection) framesSent() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sentFrames
}

func (v *mockVoiceConnection) isDisconnected() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnected
}

type mockDiscordClient struct {
	mu        sync.Mutex
	joinCalls int
	voice     *mockVoiceConnection
	sendCalls []string
}

func (m *mockDiscordClient) Connect(context.Context) error { return nil }
func (m *mockDiscordClient) Close() error                  { return nil }
func (m *mockDiscordClient) JoinVoiceChannel(_, _ string) (discord.VoiceConnection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joinCalls++
	m.voice = &mockVoiceConnection{}
	return m.voice, nil
}
func (m *mockDiscordClient) SendChannelMessage(_ string, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendCalls = append(m.sendCalls, content)
	return nil
}
func (m *mockDiscordClient) GetBotUserID() (string, error) { return "bot-self", nil }
func (m *mockDiscordClient) GetMemberDisplayName(_, userID string) (string, error) {
	return "name-" + userID, nil
}
func (m *mockDiscordClient) RegisterVoiceStateUpdateHandler(func(discord.VoiceStateEvent)) {}
func (m *mockDiscordClient) CanEnforce(string, string) bool                                { return true }
func (m *mockDiscordClient) TimeoutMember(string, string, time.Duration, string) error {
	return nil
}
func (m *mockDiscordClient) KickMember(string, string, string) error { return nil }
func (m *mockDiscordClient) BanMember(string, string, string) error  { return nil }
func (m *mockDiscordClient) NotifyUser(string, string, string) error { return nil }
func (m *mockDiscordClient) PostModerationLog(string) error          { return nil }
func (m *mockDiscordClient) Run() error                              { return nil }

func (m *mockDiscordClient) joined() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joinCalls
}

func (m *mockDiscordClient) currentVoice() *mockVoiceConnection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voice
}

type mockTranscriber struct {
	mu    sync.Mutex
	text  string
	calls int
}

func (t *mockTranscriber) Transcribe(_ context.Context, _ []int16) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	return t.text
}

type mockSynthesizer struct {
	mu     sync.Mutex
	voices []string
	pcm    []int16
}

func (s *mockSynthesizer) Synthesize(_ context.Context, voice, _ string) []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voices = append(s.voices, voice)
	return s.pcm
}

func (s *mockSynthesizer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voices)
}

type mockRoute struct {
	mu   sync.Mutex
	reqs []router.Request
}

func (r *mockRoute) HandleTranscript(_ context.Context, req router.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
}

func (r *mockRoute) requests() []router.Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]router.Request(nil), r.reqs...)
}

type fakeDecoder struct{}

func (fakeDecoder) Decode([]byte) ([]int16, error) {
	return make([]int16, audio.SamplesPerFrame), nil
}
func (fakeDecoder) Close() {}

type fakeEncoder struct{}

func (fakeEncoder) Encode([]int16) ([]byte, error) { return []byte{0xF8}, nil }
func (fakeEncoder) Close()                         {}

func testConfig() *config.Config {
	return &config.Config{
		DiscordGuildID:   "guild-1",
		CaptureSilenceMs: 40,
		CaptureMaxSec:    2,
		CaptureMinMs:     1,
		SynthesisVoice:   "Kore",
	}
}

func newTestManager(stt *mockTranscriber, tts *mockSynthesizer, route *mockRoute) (*Manager, *mockDiscordClient) {
	dc := &mockDiscordClient{}
	m := NewManager(testConfig(), dc, stt, tts,
		func() (audio.Decoder, error) { return fakeDecoder{}, nil },
		func() (audio.Encoder, error) { return fakeEncoder{}, nil })
	m.SetRoute(route)
	m.SetBotUserID("bot-self")
	return m, dc
}

func joinEvent(userID string) discord.VoiceStateEvent {
	return discord.VoiceStateEvent{GuildID: "guild-1", UserID: userID, AfterChannelID: "vc-1"}
}

func leaveEvent(userID string) discord.VoiceStateEvent {
	return discord.VoiceStateEvent{GuildID: "guild-1", UserID: userID, BeforeChannelID: "vc-1"}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}

func TestHandleVoiceStateUpdate_IgnoresOtherGuild(t *testing.T) {
	m, dc := newTestManager(&mockTranscriber{}, &mockSynthesizer{}, &mockRoute{})
	m.HandleVoiceStateUpdate(discord.VoiceStateEvent{GuildID: "guild-2", UserID: "u1", AfterChannelID: "vc-9"})
	if dc.joined() != 0 {
		t.Fatal("must not join voice for another guild")
	}
}

func TestHandleVoiceStateUpdate_IgnoresBots(t *testing.T) {
	m, dc := newTestManager(&mockTranscriber{}, &mockSynthesizer{}, &mockRoute{})
	m.HandleVoiceStateUpdate(discord.VoiceStateEvent{GuildID: "guild-1", UserID: "other-bot", UserIsBot: true, AfterChannelID: "vc-1"})
	m.HandleVoiceStateUpdate(discord.VoiceStateEvent{GuildID: "guild-1", UserID: "bot-self", AfterChannelID: "vc-1"})
	if dc.joined() != 0 {
		t.Fatal("bot voice events must not trigger a join")
	}
}

func TestHandleVoiceStateUpdate_JoinsOnFirstHuman(t *testing.T) {
	m, dc := newTestManager(&mockTranscriber{}, &mockSynthesizer{}, &mockRoute{})
	m.HandleVoiceStateUpdate(joinEvent("u1"))
	if dc.joined() != 1 {
		t.Fatalf("expected one voice join, got %d", dc.joined())
	}
	// A second human in the same channel must not rejoin.
	m.HandleVoiceStateUpdate(joinEvent("u2"))
	if dc.joined() != 1 {
		t.Fatal("second participant must not trigger another join")
	}
}

func TestHandleVoiceStateUpdate_LastLeaveDisconnects(t *testing.T) {
	m, dc := newTestManager(&mockTranscriber{}, &mockSynthesizer{}, &mockRoute{})
	m.HandleVoiceStateUpdate(joinEvent("u1"))
	m.HandleVoiceStateUpdate(joinEvent("u2"))
	voice := dc.currentVoice()

	m.HandleVoiceStateUpdate(leaveEvent("u1"))
	if voice.isDisconnected() {
		t.Fatal("must stay connected while a participant remains")
	}
	m.HandleVoiceStateUpdate(leaveEvent("u2"))
	if !voice.isDisconnected() {
		t.Fatal("expected disconnect after last participant left")
	}
	if m.guild("guild-1") != nil {
		t.Fatal("guild state must be removed after leaving")
	}
}

func TestCaptureFlow_TranscriptReachesRouter(t *testing.T) {
	stt := &mockTranscriber{text: "hey vee say hi"}
	route := &mockRoute{}
	m, dc := newTestManager(stt, &mockSynthesizer{}, route)
	m.HandleVoiceStateUpdate(joinEvent("u1"))
	voice := dc.currentVoice()

	voice.pushSpeaking(discord.SpeakingEvent{UserID: "u1", Speaking: true})
	for i := 0; i < 3; i++ {
		voice.pushAudio("u1", []byte{1})
	}
	voice.pushSpeaking(discord.SpeakingEvent{UserID: "u1", Speaking: false})

	waitUntil(t, 2*time.Second, func() bool { return len(route.requests()) == 1 }, "transcript never reached the router")
	req := route.requests()[0]
	if req.GuildID != "guild-1" || req.UserID != "u1" || req.Text != "hey vee say hi" {
		t.Fatalf("unexpected routed request: %+v", req)
	}
	if req.SpeakerName != "name-u1" {
		t.Fatalf("display name not resolved: %+v", req)
	}
}

func TestCaptureFlow_EmptyTranscriptNeverRouted(t *testing.T) {
	stt := &mockTranscriber{text: ""}
	route := &mockRoute{}
	m, dc := newTestManager(stt, &mockSynthesizer{}, route)
	m.HandleVoiceStateUpdate(joinEvent("u1"))
	voice := dc.currentVoice()

	voice.pushSpeaking(discord.SpeakingEvent{UserID: "u1", Speaking: true})
	voice.pushAudio("u1", []byte{1})
	voice.pushSpeaking(discord.SpeakingEvent{UserID: "u1", Speaking: false})

	waitUntil(t, 2*time.Second, func() bool {
		stt.mu.Lock()
		defer stt.mu.Unlock()
		return stt.calls == 1
	}, "capture never reached transcription")
	if len(route.requests()) != 0 {
		t.Fatal("empty transcript must be dropped before routing")
	}
}

func TestUnexpectedFrameStartsCapture(t *testing.T) {
	stt := &mockTranscriber{text: "hello"}
	route := &mockRoute{}
	m, dc := newTestManager(stt, &mockSynthesizer{}, route)
	m.HandleVoiceStateUpdate(joinEvent("u1"))
	voice := dc.currentVoice()

	// Frames without a preceding speaking signal: the silence window ends it.
	voice.pushAudio("u1", []byte{1})
	waitUntil(t, 2*time.Second, func() bool { return len(route.requests()) == 1 }, "frame-initiated capture never completed")
}

func TestSpeakingStartInterruptsPlayback(t *testing.T) {
	tts := &mockSynthesizer{pcm: make([]int16, audio.SamplesPerFrame*50)} // ~1s of audio
	m, dc := newTestManager(&mockTranscriber{}, tts, &mockRoute{})
	m.HandleVoiceStateUpdate(joinEvent("u1"))
	voice := dc.currentVoice()

	m.Say(context.Background(), "guild-1", "reply", "long reply")
	waitUntil(t, 2*time.Second, func() bool { return voice.framesSent() > 0 }, "playback never started")

	voice.pushSpeaking(discord.SpeakingEvent{UserID: "u1", Speaking: true})
	if !m.guild("guild-1").queue.Idle() {
		t.Fatal("human speech must clear the playback queue")
	}
	if !m.guild("guild-1").capture.Busy("u1") {
		t.Fatal("human speech must start a capture")
	}
}

func TestSay_UsesConfiguredVoiceAndPlays(t *testing.T) {
	tts := &mockSynthesizer{pcm: make([]int16, audio.SamplesPerFrame)}
	m, dc := newTestManager(&mockTranscriber{}, tts, &mockRoute{})
	m.HandleVoiceStateUpdate(joinEvent("u1"))
	voice := dc.currentVoice()

	m.Say(context.Background(), "guild-1", "reply", "hello")
	waitUntil(t, 2*time.Second, func() bool { return voice.framesSent() == 1 }, "synthesized reply never played")

	tts.mu.Lock()
	defer tts.mu.Unlock()
	if len(tts.voices) != 1 || tts.voices[0] != "Kore" {
		t.Fatalf("unexpected synthesis voice: %+v", tts.voices)
	}
}

func TestSay_WithoutConnectionDropsSilently(t *testing.T) {
	tts := &mockSynthesizer{pcm: make([]int16, audio.SamplesPerFrame)}
	m, _ := newTestManager(&mockTranscriber{}, tts, &mockRoute{})
	m.Say(context.Background(), "guild-1", "reply", "hello")
	if tts.callCount() != 0 {
		t.Fatal("must not synthesize without a voice connection")
	}
}

func TestQueueControl_ErrorsWithoutConnection(t *testing.T) {
	m, _ := newTestManager(&mockTranscriber{}, &mockSynthesizer{}, &mockRoute{})
	if err := m.EnqueuePCM("guild-1", "tone", make([]int16, 10)); err == nil {
		t.Fatal("expected error without a connection")
	}
	if err := m.Skip("guild-1"); err == nil {
		t.Fatal("expected error without a connection")
	}
	if err := m.Stop("guild-1"); err == nil {
		t.Fatal("expected error without a connection")
	}
}

func TestClose_DisconnectsAllGuilds(t *testing.T) {
	m, dc := newTestManager(&mockTranscriber{}, &mockSynthesizer{}, &mockRoute{})
	m.HandleVoiceStateUpdate(joinEvent("u1"))
	voice := dc.currentVoice()
	m.Close()
	if !voice.isDisconnected() {
		t.Fatal("expected disconnect on close")
	}
}
