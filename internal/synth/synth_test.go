package synth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSynth struct {
	pcm      []int16
	failures int
	calls    int
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) Synthesize(_ context.Context, _, _ string) ([]int16, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("service unavailable")
	}
	return f.pcm, nil
}

func newTestGateway(p Provider) (*Gateway, *[]time.Duration) {
	g := NewGateway(p)
	var slept []time.Duration
	g.sleep = func(d time.Duration) { slept = append(slept, d) }
	return g, &slept
}

func TestSynthesize_Success(t *testing.T) {
	g, _ := newTestGateway(&fakeSynth{pcm: []int16{1, 2, 3}})
	pcm := g.Synthesize(context.Background(), "Kore", "hello")
	if len(pcm) != 3 {
		t.Fatalf("unexpected pcm: %+v", pcm)
	}
}

func TestSynthesize_CachesByVoiceAndText(t *testing.T) {
	f := &fakeSynth{pcm: []int16{1}}
	g, _ := newTestGateway(f)
	g.Synthesize(context.Background(), "Kore", "hello")
	g.Synthesize(context.Background(), "Kore", "hello")
	if f.calls != 1 {
		t.Fatalf("expected cache hit on repeat, got %d calls", f.calls)
	}
	g.Synthesize(context.Background(), "Puck", "hello")
	if f.calls != 2 {
		t.Fatalf("different voice must miss the cache, got %d calls", f.calls)
	}
	g.Synthesize(context.Background(), "Kore", "hello!")
	if f.calls != 3 {
		t.Fatalf("different text must miss the cache, got %d calls", f.calls)
	}
}

func TestSynthesize_RetriesWithBackoffThenSucceeds(t *testing.T) {
	f := &fakeSynth{pcm: []int16{1}, failures: 2}
	g, slept := newTestGateway(f)
	pcm := g.Synthesize(context.Background(), "Kore", "hello")
	if pcm == nil {
		t.Fatal("expected success on the third attempt")
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.calls)
	}
	if len(*slept) != 2 || (*slept)[1] != 2*(*slept)[0] {
		t.Fatalf("expected doubling backoff, got %+v", *slept)
	}
}

func TestSynthesize_GivesUpWithNil(t *testing.T) {
	f := &fakeSynth{pcm: []int16{1}, failures: 10}
	g, _ := newTestGateway(f)
	if pcm := g.Synthesize(context.Background(), "Kore", "hello"); pcm != nil {
		t.Fatalf("expected nil after exhausted retries, got %+v", pcm)
	}
	if f.calls != defaultMaxAttempts {
		t.Fatalf("expected %d attempts, got %d", defaultMaxAttempts, f.calls)
	}
}

func TestSynthesize_FailureNotCached(t *testing.T) {
	f := &fakeSynth{pcm: []int16{1}, failures: defaultMaxAttempts}
	g, _ := newTestGateway(f)
	if pcm := g.Synthesize(context.Background(), "Kore", "hello"); pcm != nil {
		t.Fatal("expected first call to fail")
	}
	if pcm := g.Synthesize(context.Background(), "Kore", "hello"); pcm == nil {
		t.Fatal("expected retry after failed call to succeed, not hit a cached failure")
	}
}

func TestSynthesize_EmptyTextIsNil(t *testing.T) {
	f := &fakeSynth{pcm: []int16{1}}
	g, _ := newTestGateway(f)
	if pcm := g.Synthesize(context.Background(), "Kore", ""); pcm != nil {
		t.Fatal("expected nil for empty text")
	}
	if f.calls != 0 {
		t.Fatal("provider must not be called for empty text")
	}
}
