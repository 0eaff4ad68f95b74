package optimizer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"autotag/internal/costtracker"
	"autotag/internal/models"
	"autotag/internal/settings"
	"autotag/internal/util"
	"autotag/pkg/tagger"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 30 * time.Second

// Config holds the deployment side of optimization. Which provider to use
// and its key come from the site settings on every call.
type Config struct {
	Timeout           time.Duration
	RequestsPerMinute int
	OpenAIModel       string
	AnthropicModel    string
	GoogleModel       string
	OpenAIBaseURL     string
	AnthropicBaseURL  string
	GoogleEndpoint    string
	CustomEndpoint    string
	CustomHeaders     map[string]string
	// PromptTemplate overrides DefaultPromptTemplate when set.
	PromptTemplate string
}

// Input is a post's data for one optimization.
type Input struct {
	PostID int64
	Title  string
	// Content is plain text.
	Content string
	Tags    []string
}

// ProviderFactory builds the provider named in the settings.
type ProviderFactory func(name, apiKey string) (Provider, error)

// Optimizer refines tags through the configured AI provider.
type Optimizer struct {
	cfg         Config
	limiter     *rate.Limiter
	costs       costtracker.CostTracker
	newProvider ProviderFactory
}

// New returns an Optimizer. costs may be nil.
func New(cfg Config, costs costtracker.CostTracker) *Optimizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	o := &Optimizer{cfg: cfg, costs: costs}
	if cfg.RequestsPerMinute > 0 {
		o.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	o.newProvider = o.defaultProvider
	return o
}

// WithProviderFactory replaces how providers are built.
func (o *Optimizer) WithProviderFactory(f ProviderFactory) *Optimizer {
	o.newProvider = f
	return o
}

func (o *Optimizer) defaultProvider(name, apiKey string) (Provider, error) {
	httpClient := &http.Client{Timeout: o.cfg.Timeout}
	switch name {
	case settings.ProviderOpenAI:
		return NewOpenAIProvider(apiKey, o.cfg.OpenAIModel, o.cfg.OpenAIBaseURL, httpClient), nil
	case settings.ProviderAnthropic:
		return NewAnthropicProvider(apiKey, o.cfg.AnthropicModel, o.cfg.AnthropicBaseURL, httpClient), nil
	case settings.ProviderGoogle:
		return NewGeminiProvider(apiKey, o.cfg.GoogleModel, o.cfg.GoogleEndpoint), nil
	case settings.ProviderCustom:
		return NewCustomProvider(apiKey, o.cfg.CustomEndpoint, o.cfg.CustomHeaders, httpClient), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", name)
	}
}

// Optimize returns refined tags for the post, or in.Tags unchanged when
// optimization is off or fails for any reason. The result never contains
// excluded words and never exceeds the configured tag limit.
func (o *Optimizer) Optimize(ctx context.Context, st settings.Settings, in Input) []string {
	if !st.AIOptimizationEnabled || st.AIAPIKey == "" || len(in.Tags) == 0 {
		return in.Tags
	}

	tags, err := o.optimize(ctx, st, in)
	if err != nil {
		if st.DebugMode {
			log.Warnf("AI tag optimization error for post %d: %v", in.PostID, err)
		}
		return in.Tags
	}
	return tags
}

func (o *Optimizer) optimize(ctx context.Context, st settings.Settings, in Input) ([]string, error) {
	provider, err := o.newProvider(st.AIProvider, st.AIAPIKey)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	maxTags := settings.ClampMaxTags(st.MaxTagsPerPost)
	prompt := BuildPrompt(o.cfg.PromptTemplate, in.Title, util.Truncate(in.Content, PreviewLength), in.Tags, maxTags)

	completion, err := provider.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	o.recordUsage(ctx, provider, completion, in.PostID)

	exclude := tagger.NewExclusionSet(tagger.ParseExclusionList(st.TagExclusionList)...)
	var tags []string
	for _, tag := range ParseTags(completion.Text) {
		if exclude.Contains(tag) {
			continue
		}
		tags = append(tags, tag)
		if len(tags) >= maxTags {
			break
		}
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("%s: no usable tags in response", provider.Name())
	}
	if st.DebugMode {
		log.Debugf("AI optimized tags for post %d via %s: %v -> %v", in.PostID, provider.Name(), in.Tags, tags)
	}
	return tags, nil
}

func (o *Optimizer) recordUsage(ctx context.Context, p Provider, c Completion, postID int64) {
	if o.costs == nil {
		return
	}
	err := o.costs.RecordCost(ctx, costtracker.CostEvent{
		Operation:    models.ServiceTypeTagOptimization,
		Provider:     p.Name(),
		Model:        p.Model(),
		InputTokens:  c.InputTokens,
		OutputTokens: c.OutputTokens,
		PostID:       postID,
	})
	if err != nil {
		log.Errorf("Failed to record AI usage log for tag optimization: %v", err)
	}
}
