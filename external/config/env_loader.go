package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/oshaberin/internal/config"
)

type envConfig struct {
	Env                        string   `env:"ENV" envDefault:"production"`
	DiscordToken               string   `env:"DISCORD_TOKEN,required"`
	DiscordGuildID             string   `env:"DISCORD_GUILD_ID,required"`
	ModerationLogChannelID     string   `env:"MODERATION_LOG_CHANNEL_ID"`
	WakeAliases                []string `env:"WAKE_ALIASES" envDefault:"vi,vee"`
	WakeEngagementRequired     bool     `env:"WAKE_ENGAGEMENT_REQUIRED" envDefault:"true"`
	WakeSensitivity            string   `env:"WAKE_SENSITIVITY" envDefault:"default"`
	SessionTTLSec              int      `env:"SESSION_TTL_SEC" envDefault:"15"`
	PromptDebounceMs           int      `env:"PROMPT_DEBOUNCE_MS" envDefault:"8000"`
	CaptureSilenceMs           int      `env:"CAPTURE_SILENCE_MS" envDefault:"1200"`
	CaptureMaxSec              int      `env:"CAPTURE_MAX_SEC" envDefault:"30"`
	CaptureMinMs               int      `env:"CAPTURE_MIN_MS" envDefault:"500"`
	DefaultTranscribeLanguage  string   `env:"DEFAULT_TRANSCRIBE_LANGUAGE,required"`
	GoogleCloudProjectID       string   `env:"GOOGLE_CLOUD_PROJECT_ID,required"`
	GoogleCloudCredentialsJSON string   `env:"GOOGLE_CLOUD_CREDENTIALS_JSON,required"`
	GoogleCloudSpeechLocation  string   `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"asia-northeast1"`
	GoogleCloudSpeechModel     string   `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"chirp_3"`
	GeminiAPIKey               string   `env:"GEMINI_API_KEY,required"`
	GeminiChatModel            string   `env:"GEMINI_CHAT_MODEL" envDefault:"gemini-2.5-flash"`
	GeminiTTSModel             string   `env:"GEMINI_TTS_MODEL" envDefault:"gemini-2.5-flash-preview-tts"`
	SynthesisVoice             string   `env:"SYNTHESIS_VOICE" envDefault:"Kore"`
	ModerationEnabled          bool     `env:"MODERATION_ENABLED" envDefault:"true"`
	RelaxedChannelIDs          []string `env:"MODERATION_RELAXED_CHANNEL_IDS"`
	ExemptChannelIDs           []string `env:"MODERATION_EXEMPT_CHANNEL_IDS"`
	ExemptUserIDs              []string `env:"MODERATION_EXEMPT_USER_IDS"`
	StrikeTimeoutAt            int      `env:"STRIKE_TIMEOUT_THRESHOLD" envDefault:"3"`
	StrikeKickAt               int      `env:"STRIKE_KICK_THRESHOLD" envDefault:"6"`
	StrikeBanAt                int      `env:"STRIKE_BAN_THRESHOLD" envDefault:"10"`
	TimeoutDurationMin         int      `env:"TIMEOUT_DURATION_MIN" envDefault:"10"`
	StrikeDecayHours           int      `env:"STRIKE_DECAY_HOURS" envDefault:"24"`
	DatabaseURL                string   `env:"DATABASE_URL"`
	ModerationWebhookURL       string   `env:"MODERATION_WEBHOOK_URL"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		DiscordToken:               raw.DiscordToken,
		DiscordGuildID:             raw.DiscordGuildID,
		ModerationLogChannelID:     raw.ModerationLogChannelID,
		WakeAliases:                raw.WakeAliases,
		WakeEngagementRequired:     raw.WakeEngagementRequired,
		WakeSensitivity:            raw.WakeSensitivity,
		SessionTTLSec:              raw.SessionTTLSec,
		PromptDebounceMs:           raw.PromptDebounceMs,
		CaptureSilenceMs:           raw.CaptureSilenceMs,
		CaptureMaxSec:              raw.CaptureMaxSec,
		CaptureMinMs:               raw.CaptureMinMs,
		DefaultTranscribeLanguage:  raw.DefaultTranscribeLanguage,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		GeminiAPIKey:               raw.GeminiAPIKey,
		GeminiChatModel:            raw.GeminiChatModel,
		GeminiTTSModel:             raw.GeminiTTSModel,
		SynthesisVoice:             raw.SynthesisVoice,
		ModerationEnabled:          raw.ModerationEnabled,
		RelaxedChannelIDs:          raw.RelaxedChannelIDs,
		ExemptChannelIDs:           raw.ExemptChannelIDs,
		ExemptUserIDs:              raw.ExemptUserIDs,
		StrikeTimeoutAt:            raw.StrikeTimeoutAt,
		StrikeKickAt:               raw.StrikeKickAt,
		StrikeBanAt:                raw.StrikeBanAt,
		TimeoutDurationMin:         raw.TimeoutDurationMin,
		StrikeDecayHours:           raw.StrikeDecayHours,
		DatabaseURL:                raw.DatabaseURL,
		ModerationWebhookURL:       raw.ModerationWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
