package tokentracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/clock"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/config"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/kv"
)

func testPricing() config.PricingConfig {
	return config.PricingConfig{
		"default": {InputPerThousandTokens: 0.5, OutputPerThousandTokens: 1.5},
	}
}

func newTestTracker(t *testing.T, fc *clock.Fake) (*Tracker, kv.Store) {
	t.Helper()
	store := kv.NewMemoryStore()
	tr := New(Config{
		Store:     store,
		Pricing:   testPricing(),
		Retention: config.RetentionConfig{UsageRecordTTL: 7 * 24 * time.Hour},
		Clock:     fc,
	})
	return tr, store
}

func TestTracker_RecordUsage_PersistsDetailAndAggregates(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	tr, store := newTestTracker(t, fc)
	ctx := context.Background()

	confidence := 0.9
	require.NoError(t, tr.RecordUsage(ctx, "task-1", 272, "jorge_seller_qualification", "lead-1", "claude-3-sonnet", "mesh_coordinated", "jorge_stall_breaker", &confidence))

	var record UsageRecord
	require.NoError(t, store.Get(ctx, "token_usage:task-1", &record))
	assert.Equal(t, 272, record.TokensUsed)
	assert.Equal(t, "jorge_stall_breaker", record.SkillName)

	var tokens int64
	require.NoError(t, store.Get(ctx, "daily_tokens:2026-07-30:mesh_coordinated", &tokens))
	assert.Equal(t, int64(272), tokens)

	var bySkill int64
	require.NoError(t, store.Get(ctx, "daily_tokens_by_skill:2026-07-30:jorge_stall_breaker", &bySkill))
	assert.Equal(t, int64(272), bySkill)
}

func TestTracker_GetEfficiencyReport_ComputesReductionPercent(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC))
	tr, _ := newTestTracker(t, fc)
	ctx := context.Background()

	require.NoError(t, tr.RecordUsage(ctx, "t1", 853, "qualify", "u1", "claude-3-sonnet", "current", "", nil))
	require.NoError(t, tr.RecordUsage(ctx, "t2", 272, "qualify", "u1", "claude-3-sonnet", "progressive", "jorge_stall_breaker", nil))

	report, err := tr.GetEfficiencyReport(ctx, 1)
	require.NoError(t, err)

	assert.InDelta(t, 68.1, report.Summary.OverallTokenReduction, 0.2)
	assert.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.SkillBreakdown, "jorge_stall_breaker")
}

func TestTracker_GetEfficiencyReport_NoDataYieldsInsufficientRecommendation(t *testing.T) {
	fc := clock.NewFake(time.Now())
	tr, _ := newTestTracker(t, fc)

	report, err := tr.GetEfficiencyReport(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Insufficient data for recommendations"}, report.Recommendations)
}

func TestTracker_GetSkillBreakdown_ScansSingleDay(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC))
	tr, _ := newTestTracker(t, fc)
	ctx := context.Background()

	require.NoError(t, tr.RecordUsage(ctx, "t1", 100, "qualify", "u1", "claude-3-sonnet", "mesh_coordinated", "jorge_disqualifier", nil))

	breakdown, err := tr.GetSkillBreakdown(ctx, "2026-07-30")
	require.NoError(t, err)
	assert.Equal(t, int64(100), breakdown["jorge_disqualifier"].TotalTokens)
}
