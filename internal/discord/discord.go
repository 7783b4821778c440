// Package discord declares the voice-platform boundary. Implementations live
// under external/; everything here is expressed in platform-neutral terms so
// the pipeline and its tests never import the SDK.
package discord

import (
	"context"
	"time"
)

// VoiceStateEvent fires when a member joins, moves between, or leaves voice
// channels. Empty channel IDs mean "not in voice" on that side.
type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	UserIsBot       bool
	BeforeChannelID string
	AfterChannelID  string
}

// SpeakingEvent marks the start or end of one member's speech burst on a
// live voice connection. This is the capture pipeline's start/end signal.
type SpeakingEvent struct {
	UserID   string
	Speaking bool
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error

	JoinVoiceChannel(guildID, channelID string) (VoiceConnection, error)
	SendChannelMessage(channelID, content string) error
	GetBotUserID() (string, error)
	GetMemberDisplayName(guildID, userID string) (string, error)

	RegisterVoiceStateUpdateHandler(handler func(VoiceStateEvent))

	// Enforcement surface used by the safety escalator. Signatures mirror
	// moderation.Enforcer so the client satisfies it directly.
	CanEnforce(guildID, action string) bool
	TimeoutMember(guildID, userID string, duration time.Duration, reason string) error
	KickMember(guildID, userID, reason string) error
	BanMember(guildID, userID, reason string) error
	NotifyUser(guildID, userID, message string) error
	PostModerationLog(message string) error

	// Run blocks until the gateway connection ends.
	Run() error
}

// VoiceConnection is one guild's live voice session. Exactly one receiver
// and one sender are attached per connection.
type VoiceConnection interface {
	Disconnect() error

	// ReceiveAudio delivers each speaker's compressed frames as they arrive.
	ReceiveAudio(callback func(userID string, opusPacket []byte))

	// RegisterSpeakingUpdate delivers speech start/end signals.
	RegisterSpeakingUpdate(handler func(SpeakingEvent))

	// SendOpusFrame ships one encoded frame to the channel. The caller paces
	// frames at the platform frame interval.
	SendOpusFrame(frame []byte) error
	SetSpeaking(speaking bool) error
}
