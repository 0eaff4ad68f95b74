// Package optimizer refines extracted tags with a large language model.
//
// Each supported vendor is a Provider. The Optimizer builds one prompt,
// sends it to the provider chosen in the site settings and parses the
// comma-separated answer back into tags. Every failure path falls back to
// the tags it was given.
package optimizer

import (
	"context"
	"errors"
)

// Sampling parameters shared by every provider.
const (
	Temperature = 0.3
	MaxTokens   = 150
)

// SystemMessage is sent as the system role where the provider supports one.
const SystemMessage = "You are an expert SEO specialist helping to optimize blog post tags. Provide only the tags as a comma-separated list, nothing else."

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("optimizer: provider returned no text")

// Prompt is one optimization request. Text is the rendered prompt; the
// remaining fields are the raw inputs for providers that want them.
type Prompt struct {
	Text    string
	Title   string
	Preview string
	Tags    []string
	MaxTags int
}

// Completion is a provider's answer with its token usage, when reported.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Provider sends a prompt to one AI vendor.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, p Prompt) (Completion, error)
}
