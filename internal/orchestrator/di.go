package orchestrator

import (
	"time"

	"github.com/foxseedlab/oshaberin/internal/audio"
	"github.com/foxseedlab/oshaberin/internal/brain"
	"github.com/foxseedlab/oshaberin/internal/commands"
	"github.com/foxseedlab/oshaberin/internal/config"
	"github.com/foxseedlab/oshaberin/internal/convo"
	"github.com/foxseedlab/oshaberin/internal/discord"
	"github.com/foxseedlab/oshaberin/internal/moderation"
	"github.com/foxseedlab/oshaberin/internal/router"
	"github.com/foxseedlab/oshaberin/internal/synth"
	"github.com/foxseedlab/oshaberin/internal/transcriber"
	"github.com/foxseedlab/oshaberin/internal/wake"
	"github.com/samber/do/v2"
)

const historyTurns = 12

// RegisterDI wires the turn pipeline: tracker, history, routing table,
// router and manager. The router speaks through the manager and the manager
// routes transcripts back into the router, so the cycle is closed here with
// SetRoute after both exist.
func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*convo.Tracker, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return convo.NewTracker(time.Duration(cfg.SessionTTLSec) * time.Second), nil
	})
	do.Provide(injector, func(i do.Injector) (*brain.History, error) {
		return brain.NewHistory(historyTurns), nil
	})
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return NewManager(
			cfg,
			do.MustInvoke[discord.Client](i),
			do.MustInvoke[*transcriber.Gateway](i),
			do.MustInvoke[*synth.Gateway](i),
			do.MustInvoke[audio.DecoderFactory](i),
			do.MustInvoke[audio.EncoderFactory](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*router.Router, error) {
		cfg := do.MustInvoke[*config.Config](i)
		manager := do.MustInvoke[*Manager](i)

		music, err := do.Invoke[commands.Music](i)
		if err != nil {
			music = commands.UnavailableMusic{}
		}
		table := commands.NewTable(commands.Deps{
			Queues:  manager,
			Music:   music,
			Weather: do.MustInvoke[commands.Weather](i),
		})

		r := router.New(router.Options{
			Profile:        wake.NewProfile(cfg.WakeAliases, cfg.WakeEngagementRequired, cfg.WakeSensitivity),
			Sessions:       do.MustInvoke[*convo.Tracker](i),
			Moderation:     do.MustInvoke[*moderation.Pipeline](i),
			Table:          table,
			Responder:      do.MustInvoke[brain.Responder](i),
			History:        do.MustInvoke[*brain.History](i),
			Output:         manager,
			RelaxedFn:      cfg.IsRelaxedChannel,
			ExemptFn:       cfg.IsExempt,
			PromptDebounce: time.Duration(cfg.PromptDebounceMs) * time.Millisecond,
		})
		manager.SetRoute(r)
		return r, nil
	})
}
