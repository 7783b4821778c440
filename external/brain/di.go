package brain

import (
	"github.com/foxseedlab/oshaberin/internal/brain"
	"github.com/foxseedlab/oshaberin/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (brain.Responder, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewGeminiResponder(c.GeminiAPIKey, c.GeminiChatModel), nil
	})
}
