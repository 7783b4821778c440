package synth

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/foxseedlab/oshaberin/internal/audio"
	"google.golang.org/genai"
)

// Gemini TTS returns 24kHz 16-bit mono PCM; the playback path wants the
// platform's 48kHz stereo.
const ttsSampleRateHertz = 24000

type GeminiTTSProvider struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiTTSProvider(apiKey, model string) *GeminiTTSProvider {
	return &GeminiTTSProvider{apiKey: apiKey, model: model}
}

func (p *GeminiTTSProvider) Name() string { return "gemini_tts" }

func (p *GeminiTTSProvider) Synthesize(ctx context.Context, voice, text string) ([]int16, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}
	resp, err := client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("generate speech: %w", err)
	}

	raw := firstAudioBlob(resp)
	if len(raw) == 0 {
		return nil, fmt.Errorf("no audio in response")
	}
	mono := bytesToPCM(raw)
	upsampled := audio.ResampleMono(mono, ttsSampleRateHertz, audio.SampleRate)
	return audio.MonoToStereo(upsampled), nil
}

func (p *GeminiTTSProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: p.apiKey})
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func firstAudioBlob(resp *genai.GenerateContentResponse) []byte {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data
			}
		}
	}
	return nil
}

func bytesToPCM(raw []byte) []int16 {
	pcm := make([]int16, len(raw)/2)
	for i := range pcm {
		pcm[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
	}
	return pcm
}
