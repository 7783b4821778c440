package config

import "fmt"

type Config struct {
	Env string

	DiscordToken           string
	DiscordGuildID         string
	ModerationLogChannelID string

	WakeAliases            []string
	WakeEngagementRequired bool
	WakeSensitivity        string

	SessionTTLSec    int
	PromptDebounceMs int
	CaptureSilenceMs int
	CaptureMaxSec    int
	CaptureMinMs     int

	DefaultTranscribeLanguage  string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string

	GeminiAPIKey    string
	GeminiChatModel string
	GeminiTTSModel  string
	SynthesisVoice  string

	ModerationEnabled  bool
	RelaxedChannelIDs  []string
	ExemptChannelIDs   []string
	ExemptUserIDs      []string
	StrikeTimeoutAt    int
	StrikeKickAt       int
	StrikeBanAt        int
	TimeoutDurationMin int
	StrikeDecayHours   int

	DatabaseURL          string
	ModerationWebhookURL string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.WakeSensitivity {
	case "strict", "default", "lenient":
	default:
		return fmt.Errorf("WAKE_SENSITIVITY must be strict, default or lenient, got %q", c.WakeSensitivity)
	}
	if len(c.WakeAliases) == 0 {
		return fmt.Errorf("WAKE_ALIASES must contain at least one alias")
	}
	if c.SessionTTLSec <= 0 {
		return fmt.Errorf("SESSION_TTL_SEC must be positive, got %d", c.SessionTTLSec)
	}
	if c.CaptureSilenceMs <= 0 || c.CaptureMaxSec <= 0 || c.CaptureMinMs <= 0 {
		return fmt.Errorf("capture silence/max/min durations must all be positive")
	}
	if c.CaptureMinMs >= c.CaptureMaxSec*1000 {
		return fmt.Errorf("CAPTURE_MIN_MS must be shorter than CAPTURE_MAX_SEC")
	}
	if c.StrikeTimeoutAt <= 0 || c.StrikeKickAt <= c.StrikeTimeoutAt || c.StrikeBanAt <= c.StrikeKickAt {
		return fmt.Errorf("strike thresholds must be positive and strictly increasing: timeout=%d kick=%d ban=%d",
			c.StrikeTimeoutAt, c.StrikeKickAt, c.StrikeBanAt)
	}
	if c.TimeoutDurationMin <= 0 {
		return fmt.Errorf("TIMEOUT_DURATION_MIN must be positive, got %d", c.TimeoutDurationMin)
	}
	if c.StrikeDecayHours <= 0 {
		return fmt.Errorf("STRIKE_DECAY_HOURS must be positive, got %d", c.StrikeDecayHours)
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "DISCORD_GUILD_ID", value: c.DiscordGuildID},
		{name: "DEFAULT_TRANSCRIBE_LANGUAGE", value: c.DefaultTranscribeLanguage},
		{name: "GOOGLE_CLOUD_PROJECT_ID", value: c.GoogleCloudProjectID},
		{name: "GOOGLE_CLOUD_CREDENTIALS_JSON", value: c.GoogleCloudCredentialsJSON},
		{name: "GEMINI_API_KEY", value: c.GeminiAPIKey},
		{name: "SYNTHESIS_VOICE", value: c.SynthesisVoice},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsRelaxedChannel reports whether moderation scoring should apply the
// relaxed-channel offset for the given channel.
func (c *Config) IsRelaxedChannel(channelID string) bool {
	return containsID(c.RelaxedChannelIDs, channelID)
}

// IsExempt reports whether a channel or user is excluded from moderation
// entirely.
func (c *Config) IsExempt(channelID, userID string) bool {
	return containsID(c.ExemptChannelIDs, channelID) || containsID(c.ExemptUserIDs, userID)
}

func containsID(ids []string, id string) bool {
	if id == "" {
		return false
	}
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
