package optimizer

import (
	"context"
	"errors"
	"testing"

	"autotag/internal/costtracker"
	"autotag/internal/settings"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	text    string
	err     error
	prompts []Prompt
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) Complete(ctx context.Context, p Prompt) (Completion, error) {
	f.prompts = append(f.prompts, p)
	if f.err != nil {
		return Completion{}, f.err
	}
	return Completion{Text: f.text, InputTokens: 10, OutputTokens: 2}, nil
}

type recordingTracker struct {
	events []costtracker.CostEvent
}

func (r *recordingTracker) RecordCost(ctx context.Context, e costtracker.CostEvent) error {
	r.events = append(r.events, e)
	return nil
}

func (r *recordingTracker) TotalCost(ctx context.Context) (float64, error) { return 0, nil }

func enabledSettings() settings.Settings {
	st := settings.Defaults()
	st.AIOptimizationEnabled = true
	st.AIAPIKey = "key"
	st.MaxTagsPerPost = 3
	return st
}

func newTestOptimizer(p Provider, costs costtracker.CostTracker) *Optimizer {
	return New(Config{}, costs).WithProviderFactory(func(name, apiKey string) (Provider, error) {
		return p, nil
	})
}

func TestOptimize_ReturnsRefinedTags(t *testing.T) {
	fp := &fakeProvider{text: "Optimized tags: trail running, hiking boots, gear, camping"}
	costs := &recordingTracker{}
	o := newTestOptimizer(fp, costs)

	in := Input{PostID: 7, Title: "Trail day", Content: "We ran the trail.", Tags: []string{"Trail", "Ran"}}
	got := o.Optimize(context.Background(), enabledSettings(), in)

	assert.Equal(t, []string{"Trail running", "Hiking boots", "Gear"}, got, "capped at max tags")
	require.Len(t, fp.prompts, 1)
	assert.Contains(t, fp.prompts[0].Text, "Current tags: Trail, Ran")
	assert.Equal(t, "We ran the trail.", fp.prompts[0].Preview)
	require.Len(t, costs.events, 1)
	assert.Equal(t, int64(7), costs.events[0].PostID)
	assert.Equal(t, "fake", costs.events[0].Provider)
}

func TestOptimize_FiltersExcludedWords(t *testing.T) {
	fp := &fakeProvider{text: "Tips, the, Gear"}
	st := enabledSettings()
	st.TagExclusionList = "tips"

	got := newTestOptimizer(fp, nil).Optimize(context.Background(), st, Input{Tags: []string{"Gear"}})
	assert.Equal(t, []string{"Gear"}, got)
}

func TestOptimize_FallsBackToOriginal(t *testing.T) {
	original := []string{"Weather", "Great"}

	testCases := []struct {
		name     string
		mutate   func(st *settings.Settings)
		provider *fakeProvider
		factory  ProviderFactory
	}{
		{name: "Disabled", mutate: func(st *settings.Settings) { st.AIOptimizationEnabled = false }, provider: &fakeProvider{text: "X, Y"}},
		{name: "Missing key", mutate: func(st *settings.Settings) { st.AIAPIKey = "" }, provider: &fakeProvider{text: "X, Y"}},
		{name: "Provider error", provider: &fakeProvider{err: errors.New("timeout")}},
		{name: "Empty parse", provider: &fakeProvider{text: "a, b"}},
		{name: "Only excluded", provider: &fakeProvider{text: "the, and"}},
		{
			name:     "Unknown provider",
			mutate:   func(st *settings.Settings) { st.AIProvider = "mystery" },
			provider: &fakeProvider{text: "X, Y"},
			factory:  New(Config{}, nil).defaultProvider,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			st := enabledSettings()
			st.DebugMode = true
			if tc.mutate != nil {
				tc.mutate(&st)
			}
			o := newTestOptimizer(tc.provider, nil)
			if tc.factory != nil {
				o.WithProviderFactory(tc.factory)
			}
			got := o.Optimize(context.Background(), st, Input{Tags: original})
			assert.Equal(t, original, got)
		})
	}
}

func TestOptimize_NoTagsSkipsProvider(t *testing.T) {
	fp := &fakeProvider{text: "X, Y"}
	got := newTestOptimizer(fp, nil).Optimize(context.Background(), enabledSettings(), Input{})
	assert.Empty(t, got)
	assert.Empty(t, fp.prompts)
}

func TestDefaultProvider(t *testing.T) {
	o := New(Config{OpenAIModel: "gpt", AnthropicModel: "claude", GoogleModel: "gemini"}, nil)

	for name, wantModel := range map[string]string{
		settings.ProviderOpenAI:    "gpt",
		settings.ProviderAnthropic: "claude",
		settings.ProviderGoogle:    "gemini",
		settings.ProviderCustom:    "custom",
	} {
		p, err := o.defaultProvider(name, "key")
		require.NoError(t, err, name)
		assert.Equal(t, name, p.Name())
		assert.Equal(t, wantModel, p.Model())
	}

	_, err := o.defaultProvider("other", "key")
	assert.Error(t, err)
}
