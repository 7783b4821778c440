package synth

import (
	"github.com/foxseedlab/oshaberin/internal/config"
	"github.com/foxseedlab/oshaberin/internal/synth"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*synth.Gateway, error) {
		c := do.MustInvoke[*config.Config](i)
		return synth.NewGateway(NewGeminiTTSProvider(c.GeminiAPIKey, c.GeminiTTSModel)), nil
	})
}
