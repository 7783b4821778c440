package transcriber

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"google.golang.org/api/option"
)

const (
	speechAPIEndpointPort = 443
	audioSampleRateHertz  = 48000
	audioChannelCount     = 1
	phraseBoost           = 10
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

// CloudSpeechProvider recognizes one finished capture per call. The client
// is dialed lazily on first use and reused afterwards.
type CloudSpeechProvider struct {
	cfg CloudSpeechConfig

	mu     sync.Mutex
	client *speech.Client
}

func NewCloudSpeechProvider(cfg CloudSpeechConfig) *CloudSpeechProvider {
	cfg.Location = strings.TrimSpace(cfg.Location)
	cfg.Model = strings.TrimSpace(cfg.Model)
	return &CloudSpeechProvider{cfg: cfg}
}

func (p *CloudSpeechProvider) Name() string { return "cloud_speech" }

func (p *CloudSpeechProvider) Transcribe(ctx context.Context, pcm []int16, hints []string) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	recognizer := fmt.Sprintf("projects/%s/locations/%s/recognizers/_", p.cfg.ProjectID, p.cfg.Location)
	resp, err := client.Recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: recognizer,
		Config: &speechpb.RecognitionConfig{
			Model:         p.cfg.Model,
			LanguageCodes: []string{p.cfg.Language},
			DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
				ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
					Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
					SampleRateHertz:   audioSampleRateHertz,
					AudioChannelCount: audioChannelCount,
				},
			},
			Features:   &speechpb.RecognitionFeatures{},
			Adaptation: phraseAdaptation(hints),
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: pcmToBytes(pcm)},
	})
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	var parts []string
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		parts = append(parts, result.GetAlternatives()[0].GetTranscript())
	}
	return strings.Join(parts, " "), nil
}

func (p *CloudSpeechProvider) getClient(ctx context.Context) (*speech.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(p.cfg.CredentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if p.cfg.Location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", p.cfg.Location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func phraseAdaptation(hints []string) *speechpb.SpeechAdaptation {
	if len(hints) == 0 {
		return nil
	}
	phrases := make([]*speechpb.PhraseSet_Phrase, 0, len(hints))
	for _, hint := range hints {
		hint = strings.TrimSpace(hint)
		if hint == "" {
			continue
		}
		phrases = append(phrases, &speechpb.PhraseSet_Phrase{Value: hint, Boost: phraseBoost})
	}
	if len(phrases) == 0 {
		return nil
	}
	return &speechpb.SpeechAdaptation{
		PhraseSets: []*speechpb.SpeechAdaptation_AdaptationPhraseSet{
			{
				Value: &speechpb.SpeechAdaptation_AdaptationPhraseSet_InlinePhraseSet{
					InlinePhraseSet: &speechpb.PhraseSet{Phrases: phrases},
				},
			},
		},
	}
}

func pcmToBytes(pcm []int16) []byte {
	out := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}
