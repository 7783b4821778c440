// Package commands builds the fast-path routing table: inline phrases a
// speaker can say that resolve without the conversational model. Handlers
// return the confirmation to speak; playback-affecting ones act on the
// guild queue through QueueControl.
package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/foxseedlab/oshaberin/internal/audio"
	"github.com/foxseedlab/oshaberin/internal/router"
)

// Slot descriptors for clarifying questions this table can ask.
const (
	SlotSayText         = "say_text"
	SlotMusicQuery      = "music_query"
	SlotWeatherLocation = "weather_location"
)

// QueueControl is the slice of the per-guild playback state the handlers
// need: enqueue a raw buffer, skip the current item, or clear everything.
type QueueControl interface {
	EnqueuePCM(guildID, label string, pcm []int16) error
	Skip(guildID string) error
	Stop(guildID string) error
}

// Music is the music-backend boundary. Track lookup and streaming live
// outside this core; this table only forwards the spoken request and
// relays the backend's confirmation.
type Music interface {
	Play(ctx context.Context, guildID, query string) (string, error)
	Resume(ctx context.Context, guildID string) (string, error)
}

// Weather answers a current-conditions query for a spoken location.
type Weather interface {
	Current(ctx context.Context, location string) (string, error)
}

const (
	toneFreqHz   = 440.0
	toneDuration = time.Second
	toneLevel    = 0.3
)

type Deps struct {
	Queues  QueueControl
	Music   Music
	Weather Weather
}

var (
	sayVerbs     = []string{"say", "announce"}
	toneVerbs    = []string{"tone", "beep"}
	playVerbs    = []string{"play"}
	resumeVerbs  = []string{"resume", "unpause"}
	skipVerbs    = []string{"skip", "next"}
	stopVerbs    = []string{"stop", "pause", "quiet", "shush"}
	weatherVerbs = []string{"weather", "forecast"}
)

// NewTable assembles the routing table. Verb lists are deliberately small;
// anything not matched here falls through to the conversational handler.
func NewTable(deps Deps) router.Table {
	return router.Table{
		Commands: []router.Command{
			{Name: "say", Verbs: sayVerbs, Handle: handleSay},
			{Name: "tone", Verbs: toneVerbs, Handle: handleTone(deps.Queues)},
			{Name: "play", Verbs: playVerbs, Handle: handlePlay(deps.Music)},
			{Name: "resume", Verbs: resumeVerbs, Handle: handleResume(deps.Music)},
			{Name: "skip", Verbs: skipVerbs, Handle: handleSkip(deps.Queues)},
			{Name: "stop", Verbs: stopVerbs, Handle: handleStop(deps.Queues)},
			{Name: "weather", Verbs: weatherVerbs, Handle: handleWeather(deps.Weather)},
		},
		Slots: map[string]router.HandlerFunc{
			SlotSayText:         resolveSayText,
			SlotMusicQuery:      resolveMusicQuery(deps.Music),
			SlotWeatherLocation: resolveWeatherLocation(deps.Weather),
		},
	}
}

// Verbs lists every fast-path trigger word. The transcription gateway uses
// them as phrase-boost hints so spoken commands survive recognition.
func Verbs() []string {
	var out []string
	for _, vs := range [][]string{sayVerbs, toneVerbs, playVerbs, resumeVerbs, skipVerbs, stopVerbs, weatherVerbs} {
		out = append(out, vs...)
	}
	return out
}

func handleSay(_ context.Context, req router.Request) (router.Response, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return router.Response{Speech: "What should I say?", AwaitSlot: SlotSayText}, nil
	}
	return router.Response{Speech: text}, nil
}

func resolveSayText(_ context.Context, req router.Request) (router.Response, error) {
	return router.Response{Speech: strings.TrimSpace(req.Text)}, nil
}

func handleTone(queues QueueControl) router.HandlerFunc {
	return func(_ context.Context, req router.Request) (router.Response, error) {
		pcm := audio.Tone(toneFreqHz, toneDuration, toneLevel)
		if err := queues.EnqueuePCM(req.GuildID, "test_tone", pcm); err != nil {
			return router.Response{}, fmt.Errorf("enqueue tone: %w", err)
		}
		// The tone itself is the confirmation.
		return router.Response{}, nil
	}
}

func handlePlay(music Music) router.HandlerFunc {
	return func(ctx context.Context, req router.Request) (router.Response, error) {
		query := strings.TrimSpace(req.Text)
		if query == "" {
			return router.Response{Speech: "What should I play?", AwaitSlot: SlotMusicQuery}, nil
		}
		confirmation, err := music.Play(ctx, req.GuildID, query)
		if err != nil {
			return router.Response{}, fmt.Errorf("music play: %w", err)
		}
		return router.Response{Speech: confirmation}, nil
	}
}

func resolveMusicQuery(music Music) router.HandlerFunc {
	return func(ctx context.Context, req router.Request) (router.Response, error) {
		confirmation, err := music.Play(ctx, req.GuildID, strings.TrimSpace(req.Text))
		if err != nil {
			return router.Response{}, fmt.Errorf("music play: %w", err)
		}
		return router.Response{Speech: confirmation}, nil
	}
}

func handleResume(music Music) router.HandlerFunc {
	return func(ctx context.Context, req router.Request) (router.Response, error) {
		confirmation, err := music.Resume(ctx, req.GuildID)
		if err != nil {
			return router.Response{}, fmt.Errorf("music resume: %w", err)
		}
		return router.Response{Speech: confirmation}, nil
	}
}

func handleSkip(queues QueueControl) router.HandlerFunc {
	return func(_ context.Context, req router.Request) (router.Response, error) {
		if err := queues.Skip(req.GuildID); err != nil {
			return router.Response{}, fmt.Errorf("skip: %w", err)
		}
		return router.Response{Speech: "Skipping."}, nil
	}
}

func handleStop(queues QueueControl) router.HandlerFunc {
	return func(_ context.Context, req router.Request) (router.Response, error) {
		if err := queues.Stop(req.GuildID); err != nil {
			return router.Response{}, fmt.Errorf("stop: %w", err)
		}
		// No spoken confirmation: the speaker asked for quiet.
		return router.Response{}, nil
	}
}

func handleWeather(weather Weather) router.HandlerFunc {
	return func(ctx context.Context, req router.Request) (router.Response, error) {
		location := locationFrom(req.Text)
		if location == "" {
			return router.Response{Speech: "Which city?", AwaitSlot: SlotWeatherLocation}, nil
		}
		return weatherResponse(ctx, weather, location)
	}
}

func resolveWeatherLocation(weather Weather) router.HandlerFunc {
	return func(ctx context.Context, req router.Request) (router.Response, error) {
		return weatherResponse(ctx, weather, locationFrom(req.Text))
	}
}

// locationFrom trims the filler people put before a spoken place name
// ("weather in london please" → "london please" is close enough for the
// geocoder, but the leading preposition is not).
func locationFrom(text string) string {
	text = strings.TrimSpace(strings.Trim(strings.TrimSpace(text), ".,!?"))
	lower := strings.ToLower(text)
	for _, prefix := range []string{"in ", "for ", "at "} {
		if strings.HasPrefix(lower, prefix) {
			return strings.TrimSpace(text[len(prefix):])
		}
	}
	return text
}

func weatherResponse(ctx context.Context, weather Weather, location string) (router.Response, error) {
	report, err := weather.Current(ctx, location)
	if err != nil {
		return router.Response{}, fmt.Errorf("weather lookup for %q: %w", location, err)
	}
	return router.Response{Speech: report}, nil
}

// UnavailableMusic stands in when no music backend is configured; every
// request gets the same spoken apology instead of an error.
type UnavailableMusic struct{}

func (UnavailableMusic) Play(context.Context, string, string) (string, error) {
	return "Music playback isn't set up on this server.", nil
}

func (UnavailableMusic) Resume(context.Context, string) (string, error) {
	return "Music playback isn't set up on this server.", nil
}
