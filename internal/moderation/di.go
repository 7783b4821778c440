package moderation

import (
	"time"

	"github.com/foxseedlab/oshaberin/internal/config"
	"github.com/foxseedlab/oshaberin/internal/discord"
	"github.com/foxseedlab/oshaberin/internal/repository"
	"github.com/foxseedlab/oshaberin/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*LockdownRegistry, error) {
		return NewLockdownRegistry(), nil
	})
	do.Provide(injector, func(i do.Injector) (*StrikeLedger, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewStrikeLedger(time.Duration(cfg.StrikeDecayHours) * time.Hour), nil
	})
	do.Provide(injector, func(i do.Injector) (*Engine, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewEngine(cfg.ModerationEnabled, do.MustInvoke[*LockdownRegistry](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Escalator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewEscalator(
			do.MustInvoke[*StrikeLedger](i),
			do.MustInvoke[discord.Client](i),
			do.MustInvoke[repository.AuditLog](i),
			do.MustInvoke[webhook.Sender](i),
			Thresholds{
				Timeout:         cfg.StrikeTimeoutAt,
				Kick:            cfg.StrikeKickAt,
				Ban:             cfg.StrikeBanAt,
				TimeoutDuration: time.Duration(cfg.TimeoutDurationMin) * time.Minute,
			},
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*Pipeline, error) {
		return NewPipeline(do.MustInvoke[*Engine](i), do.MustInvoke[*Escalator](i)), nil
	})
}
