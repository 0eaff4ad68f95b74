package costtracker

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"autotag/internal/config"
	"autotag/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCostStore struct {
	mock.Mock
}

func (m *mockCostStore) RecordUsage(ctx context.Context, log *models.AIUsageLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *mockCostStore) ListUsage(ctx context.Context, limit, offset int) ([]*models.AIUsageLog, error) {
	args := m.Called(ctx, limit, offset)
	return args.Get(0).([]*models.AIUsageLog), args.Error(1)
}

func (m *mockCostStore) GetUsageSummary(ctx context.Context) (float64, int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Get(1).(int64), args.Get(2).(int64), args.Error(3)
}

var testPricing = map[string]map[string]config.PricingInfo{
	"openai": {"gpt-3.5-turbo": {InputPerToken: 0.001, OutputPerToken: 0.002}},
}

func TestRecordCost_PricesAndStores(t *testing.T) {
	st := new(mockCostStore)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	tracker := &storeCostTracker{store: st, pricing: testPricing, now: func() time.Time { return fixed }}

	st.On("RecordUsage", mock.Anything, mock.MatchedBy(func(l *models.AIUsageLog) bool {
		return l.ProviderName == "openai" &&
			l.ModelName == "gpt-3.5-turbo" &&
			l.ServiceType == models.ServiceTypeTagOptimization &&
			l.InputTokens == 100 && l.OutputTokens == 50 &&
			math.Abs(l.Cost-0.2) < 1e-9 &&
			l.PostID != nil && *l.PostID == 42 &&
			l.Timestamp.Equal(fixed)
	})).Return(nil).Once()

	err := tracker.RecordCost(context.Background(), CostEvent{
		Operation:    models.ServiceTypeTagOptimization,
		Provider:     "openai",
		Model:        "gpt-3.5-turbo",
		InputTokens:  100,
		OutputTokens: 50,
		PostID:       42,
	})
	require.NoError(t, err)
	st.AssertExpectations(t)
}

func TestRecordCost_UnknownModelRecordsZeroCost(t *testing.T) {
	st := new(mockCostStore)
	tracker := New(st, testPricing)

	st.On("RecordUsage", mock.Anything, mock.MatchedBy(func(l *models.AIUsageLog) bool {
		return l.Cost == 0 && l.PostID == nil
	})).Return(nil).Once()

	require.NoError(t, tracker.RecordCost(context.Background(), CostEvent{Provider: "custom", Model: "x", InputTokens: 1}))
	st.AssertExpectations(t)
}

func TestRecordCost_SkipsEmptyUsageAndWrapsErrors(t *testing.T) {
	st := new(mockCostStore)
	tracker := New(st, testPricing)

	require.NoError(t, tracker.RecordCost(context.Background(), CostEvent{Provider: "openai"}))
	st.AssertNotCalled(t, "RecordUsage", mock.Anything, mock.Anything)

	st.On("RecordUsage", mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	err := tracker.RecordCost(context.Background(), CostEvent{Provider: "openai", Model: "gpt-3.5-turbo", InputTokens: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestTotalCost(t *testing.T) {
	st := new(mockCostStore)
	st.On("GetUsageSummary", mock.Anything).Return(1.25, int64(10), int64(5), nil)
	total, err := New(st, nil).TotalCost(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.25, total)

	total, err = New(nil, nil).TotalCost(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPrice(t *testing.T) {
	cost, ok := Price(testPricing, CostEvent{Provider: "openai", Model: "gpt-3.5-turbo", InputTokens: 1000, OutputTokens: 1000})
	assert.True(t, ok)
	assert.InDelta(t, 3.0, cost, 1e-9)

	_, ok = Price(testPricing, CostEvent{Provider: "anthropic", Model: "claude"})
	assert.False(t, ok)
}
