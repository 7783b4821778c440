package transcriber

import (
	"github.com/foxseedlab/oshaberin/internal/commands"
	"github.com/foxseedlab/oshaberin/internal/config"
	"github.com/foxseedlab/oshaberin/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*transcriber.Gateway, error) {
		c := do.MustInvoke[*config.Config](i)
		primary := NewCloudSpeechProvider(CloudSpeechConfig{
			ProjectID:       c.GoogleCloudProjectID,
			CredentialsJSON: c.GoogleCloudCredentialsJSON,
			Language:        c.DefaultTranscribeLanguage,
			Location:        c.GoogleCloudSpeechLocation,
			Model:           c.GoogleCloudSpeechModel,
		})
		var secondary transcriber.Provider
		if c.GeminiAPIKey != "" {
			secondary = NewGeminiProvider(c.GeminiAPIKey, c.GeminiChatModel)
		}
		hints := append(append([]string{}, c.WakeAliases...), commands.Verbs()...)
		return transcriber.NewGateway(primary, secondary, hints), nil
	})
}
