package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/oshaberin/external/audio"
	brainimpl "github.com/foxseedlab/oshaberin/external/brain"
	configloader "github.com/foxseedlab/oshaberin/external/config"
	"github.com/foxseedlab/oshaberin/external/discord"
	repositoryimpl "github.com/foxseedlab/oshaberin/external/repository"
	synthimpl "github.com/foxseedlab/oshaberin/external/synth"
	transcriberimpl "github.com/foxseedlab/oshaberin/external/transcriber"
	weatherimpl "github.com/foxseedlab/oshaberin/external/weather"
	webhookimpl "github.com/foxseedlab/oshaberin/external/webhook"
	"github.com/foxseedlab/oshaberin/internal/config"
	discordpkg "github.com/foxseedlab/oshaberin/internal/discord"
	"github.com/foxseedlab/oshaberin/internal/moderation"
	"github.com/foxseedlab/oshaberin/internal/orchestrator"
	"github.com/foxseedlab/oshaberin/internal/router"
	"github.com/samber/do/v2"
)

const discordConnectTimeout = 20 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching voice agent")
	runBot(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	synthimpl.RegisterDI(injector)
	brainimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	weatherimpl.RegisterDI(injector)
	moderation.RegisterDI(injector)
	orchestrator.RegisterDI(injector)

	return injector
}

func runBot(cfg *config.Config, injector do.Injector) {
	dc, err := do.Invoke[discordpkg.Client](injector)
	if err != nil {
		slog.Error("failed to resolve discord client", "error", err)
		os.Exit(1)
	}
	manager, err := do.Invoke[*orchestrator.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve voice manager", "error", err)
		os.Exit(1)
	}
	// Resolving the router closes the manager-router cycle and forces the
	// whole pipeline to be built before the gateway connects.
	if _, err := do.Invoke[*router.Router](injector); err != nil {
		slog.Error("failed to resolve intent router", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), discordConnectTimeout)
	defer cancel()

	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(ctx); err != nil {
		slog.Error("discord connect failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: discord connected")

	botUserID, err := dc.GetBotUserID()
	if err != nil {
		slog.Error("failed to resolve bot user id", "error", err)
		os.Exit(1)
	}
	manager.SetBotUserID(botUserID)

	dc.RegisterVoiceStateUpdateHandler(manager.HandleVoiceStateUpdate)
	slog.Info("discord handlers registered", "guild_id", cfg.DiscordGuildID)
	defer func() {
		manager.Close()
		if err := dc.Close(); err != nil {
			slog.Error("discord close failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}
}
