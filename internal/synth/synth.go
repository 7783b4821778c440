package synth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Provider renders reply text into interleaved stereo PCM at the platform
// rate, ready for the playback queue.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, voice, text string) ([]int16, error)
}

const defaultMaxAttempts = 3

// Gateway fronts a Provider with a (voice, text) result cache and bounded
// exponential-backoff retries. Exhausted retries yield nil, never an error:
// a silent reply is the designed degradation.
type Gateway struct {
	provider    Provider
	maxAttempts int
	backoffBase time.Duration
	sleep       func(time.Duration)

	mu    sync.Mutex
	cache map[cacheKey][]int16
}

type cacheKey struct {
	voice string
	text  string
}

func NewGateway(provider Provider) *Gateway {
	return &Gateway{
		provider:    provider,
		maxAttempts: defaultMaxAttempts,
		backoffBase: 500 * time.Millisecond,
		sleep:       time.Sleep,
		cache:       make(map[cacheKey][]int16),
	}
}

func (g *Gateway) Synthesize(ctx context.Context, voice, text string) []int16 {
	if text == "" {
		return nil
	}
	key := cacheKey{voice: voice, text: text}
	g.mu.Lock()
	if pcm, ok := g.cache[key]; ok {
		g.mu.Unlock()
		return pcm
	}
	g.mu.Unlock()

	backoff := g.backoffBase
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		pcm, err := g.provider.Synthesize(ctx, voice, text)
		if err == nil && len(pcm) > 0 {
			g.mu.Lock()
			g.cache[key] = pcm
			g.mu.Unlock()
			return pcm
		}
		slog.Warn("speech synthesis attempt failed",
			"provider", g.provider.Name(),
			"attempt", attempt,
			"error", err)
		if attempt == g.maxAttempts || ctx.Err() != nil {
			break
		}
		g.sleep(backoff)
		backoff *= 2
	}
	slog.Error("speech synthesis gave up; reply will be silent", "provider", g.provider.Name())
	return nil
}
