package brain

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/foxseedlab/oshaberin/internal/brain"
	"google.golang.org/genai"
)

const systemPrompt = "You are a friendly voice companion in a group voice chat. " +
	"Replies are spoken aloud, so keep them short, conversational, and free of " +
	"markdown, emoji, or lists. One or two sentences unless asked for more."

type GeminiResponder struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

func NewGeminiResponder(apiKey, model string) *GeminiResponder {
	return &GeminiResponder{apiKey: apiKey, model: model}
}

func (r *GeminiResponder) Reply(ctx context.Context, req brain.Request) (string, error) {
	client, err := r.getClient(ctx)
	if err != nil {
		return "", err
	}

	contents := make([]*genai.Content, 0, len(req.History)+1)
	for _, turn := range req.History {
		var role genai.Role = genai.RoleUser
		if turn.Role == brain.RoleAgent {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}
	prompt := req.Transcript
	if req.SpeakerName != "" {
		prompt = fmt.Sprintf("%s says: %s", req.SpeakerName, req.Transcript)
	}
	contents = append(contents, genai.NewContentFromText(prompt, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	resp, err := client.Models.GenerateContent(ctx, r.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("no reply candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

func (r *GeminiResponder) getClient(ctx context.Context) (*genai.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client != nil {
		return r.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: r.apiKey})
	if err != nil {
		return nil, err
	}
	r.client = client
	return client, nil
}
