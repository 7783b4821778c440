package transcriber

import (
	"context"
	"log/slog"
	"strings"
)

// Provider converts one finished mono PCM capture into text. Hints are
// phrase-boost candidates (wake aliases, command verbs) that raise
// recognition accuracy for the words that matter most to routing.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, pcm []int16, hints []string) (string, error)
}

// Gateway tries a primary provider and falls through to a secondary on
// failure or empty output. Total failure yields an empty transcript, never
// an error: a dropped turn is the designed degradation.
type Gateway struct {
	primary   Provider
	secondary Provider
	hints     []string
}

func NewGateway(primary, secondary Provider, hints []string) *Gateway {
	return &Gateway{primary: primary, secondary: secondary, hints: hints}
}

func (g *Gateway) Transcribe(ctx context.Context, pcm []int16) string {
	for _, p := range []Provider{g.primary, g.secondary} {
		if p == nil {
			continue
		}
		text, err := p.Transcribe(ctx, pcm, g.hints)
		if err != nil {
			slog.Warn("transcription provider failed", "provider", p.Name(), "error", err)
			continue
		}
		text = normalizeWhitespace(text)
		if text == "" {
			slog.Debug("transcription provider returned empty result", "provider", p.Name())
			continue
		}
		return text
	}
	slog.Warn("all transcription providers failed; dropping turn")
	return ""
}

func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
