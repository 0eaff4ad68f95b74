package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrNoEndpoint is returned when the custom provider has no endpoint.
var ErrNoEndpoint = errors.New("custom AI endpoint not configured")

// CustomProvider posts the prompt and raw inputs to a self-hosted endpoint
// that answers with {"tags": "a, b"} or {"tags": ["a", "b"]}.
type CustomProvider struct {
	apiKey   string
	endpoint string
	headers  map[string]string
	client   *http.Client
}

func NewCustomProvider(apiKey, endpoint string, headers map[string]string, httpClient *http.Client) *CustomProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CustomProvider{apiKey: apiKey, endpoint: endpoint, headers: headers, client: httpClient}
}

func (p *CustomProvider) Name() string  { return "custom" }
func (p *CustomProvider) Model() string { return "custom" }

type customRequest struct {
	Prompt  string   `json:"prompt"`
	Tags    []string `json:"tags"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
}

func (p *CustomProvider) Complete(ctx context.Context, prompt Prompt) (Completion, error) {
	if p.endpoint == "" {
		return Completion{}, ErrNoEndpoint
	}

	body, err := json.Marshal(customRequest{
		Prompt:  prompt.Text,
		Tags:    prompt.Tags,
		Title:   prompt.Title,
		Content: prompt.Preview,
	})
	if err != nil {
		return Completion{}, fmt.Errorf("custom: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return Completion{}, fmt.Errorf("custom: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Completion{}, fmt.Errorf("custom API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Completion{}, fmt.Errorf("custom API error: status %d", resp.StatusCode)
	}

	var parsed struct {
		Tags json.RawMessage `json:"tags"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return Completion{}, fmt.Errorf("custom: invalid response: %w", err)
	}

	text, err := customTagsText(parsed.Tags)
	if err != nil {
		return Completion{}, err
	}
	return Completion{Text: text}, nil
}

// customTagsText accepts the tags field as a string or a list of strings.
func customTagsText(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("custom: %w", ErrEmptyResponse)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.TrimSpace(s) == "" {
			return "", fmt.Errorf("custom: %w", ErrEmptyResponse)
		}
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("custom: tags must be a string or a list of strings: %w", err)
	}
	if len(list) == 0 {
		return "", fmt.Errorf("custom: %w", ErrEmptyResponse)
	}
	return strings.Join(list, ", "), nil
}

var _ Provider = (*CustomProvider)(nil)
