package optimizer

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiProvider uses the Google Gemini API.
type GeminiProvider struct {
	apiKey   string
	model    string
	endpoint string
}

// NewGeminiProvider builds a provider for apiKey. endpoint overrides the
// API host when set.
func NewGeminiProvider(apiKey, model, endpoint string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey, model: model, endpoint: endpoint}
}

func (p *GeminiProvider) Name() string  { return "google" }
func (p *GeminiProvider) Model() string { return p.model }

func (p *GeminiProvider) Complete(ctx context.Context, prompt Prompt) (Completion, error) {
	opts := []option.ClientOption{option.WithAPIKey(p.apiKey)}
	if p.endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.endpoint))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return Completion{}, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(p.model)
	model.SetTemperature(Temperature)
	model.SetMaxOutputTokens(MaxTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt.Text))
	if err != nil {
		return Completion{}, fmt.Errorf("Gemini API request failed: %w", err)
	}
	return geminiCompletion(resp)
}

// geminiCompletion reads the first text part of the first candidate.
func geminiCompletion(resp *genai.GenerateContentResponse) (Completion, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return Completion{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return Completion{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	text, ok := cand.Content.Parts[0].(genai.Text)
	if !ok || text == "" {
		return Completion{}, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	c := Completion{Text: string(text)}
	if resp.UsageMetadata != nil {
		c.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		c.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return c, nil
}

var _ Provider = (*GeminiProvider)(nil)
