package costtracker

import (
	"context"
	"fmt"
	"time"

	"autotag/internal/config"
	"autotag/internal/models"
	"autotag/internal/store"

	log "github.com/sirupsen/logrus"
)

// CostEvent is one AI call with its token usage.
type CostEvent struct {
	Operation    string // e.g. "tag_optimization"
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	PostID       int64 // zero when the call is not tied to a post
}

// CostTracker prices and records AI usage.
type CostTracker interface {
	RecordCost(ctx context.Context, event CostEvent) error
	TotalCost(ctx context.Context) (float64, error)
}

// New returns a tracker that writes usage logs to s, priced from pricing.
// A nil store yields a tracker that records nothing.
func New(s store.CostTrackingStore, pricing map[string]map[string]config.PricingInfo) CostTracker {
	if s == nil {
		return &noopCostTracker{}
	}
	return &storeCostTracker{store: s, pricing: pricing, now: time.Now}
}

type storeCostTracker struct {
	store   store.CostTrackingStore
	pricing map[string]map[string]config.PricingInfo
	now     func() time.Time
}

// Price returns the cost of the event, and false when no price is
// configured for its provider and model.
func Price(pricing map[string]map[string]config.PricingInfo, event CostEvent) (float64, bool) {
	price, ok := pricing[event.Provider][event.Model]
	if !ok {
		return 0, false
	}
	return float64(event.InputTokens)*price.InputPerToken +
		float64(event.OutputTokens)*price.OutputPerToken, true
}

func (t *storeCostTracker) RecordCost(ctx context.Context, event CostEvent) error {
	if event.InputTokens == 0 && event.OutputTokens == 0 {
		return nil
	}
	cost, ok := Price(t.pricing, event)
	if !ok {
		log.Warnf("Pricing info not found for %s model '%s'. Recording usage with zero cost.", event.Provider, event.Model)
	}

	entry := &models.AIUsageLog{
		Timestamp:    t.now().UTC(),
		ProviderName: event.Provider,
		ServiceType:  event.Operation,
		ModelName:    event.Model,
		InputTokens:  event.InputTokens,
		OutputTokens: event.OutputTokens,
		Cost:         cost,
	}
	if event.PostID > 0 {
		id := event.PostID
		entry.PostID = &id
	}
	if err := t.store.RecordUsage(ctx, entry); err != nil {
		return fmt.Errorf("record AI usage: %w", err)
	}
	log.Debugf("Recorded AI usage: Provider=%s, Service=%s, Model=%s, InputTokens=%d, OutputTokens=%d, Cost=%.8f",
		entry.ProviderName, entry.ServiceType, entry.ModelName, entry.InputTokens, entry.OutputTokens, entry.Cost)
	return nil
}

func (t *storeCostTracker) TotalCost(ctx context.Context) (float64, error) {
	total, _, _, err := t.store.GetUsageSummary(ctx)
	if err != nil {
		return 0, fmt.Errorf("usage summary: %w", err)
	}
	return total, nil
}

type noopCostTracker struct{}

func (n *noopCostTracker) RecordCost(ctx context.Context, event CostEvent) error { return nil }
func (n *noopCostTracker) TotalCost(ctx context.Context) (float64, error)        { return 0, nil }
