// Package tokentracker records progressive-skills token usage and
// reports the resulting efficiency/cost-savings comparisons against a
// baseline approach.
package tokentracker

import (
	"context"
	"fmt"
	"time"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/clock"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/config"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/kv"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/observability"
)

// UsageRecord is the per-task detail persisted under
// "token_usage:<task_id>" for the retention window.
type UsageRecord struct {
	TaskID     string     `json:"task_id"`
	TokensUsed int        `json:"tokens_used"`
	TaskType   string     `json:"task_type"`
	UserID     string     `json:"user_id"`
	Model      string     `json:"model"`
	Approach   string     `json:"approach"`
	SkillName  string     `json:"skill_name,omitempty"`
	Confidence *float64   `json:"confidence,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
	CostEstimate float64  `json:"cost_estimate"`
}

// Tracker is the Token/Cost Tracker: usage records live entirely in
// the KV store, so the tracker itself holds no mutable state beyond
// its dependencies.
type Tracker struct {
	store     kv.Store
	pricing   config.PricingConfig
	retention config.RetentionConfig
	clock     clock.Clock
	logger    observability.Logger
	metrics   observability.MetricsClient
}

// Config configures a Tracker at construction time.
type Config struct {
	Store     kv.Store
	Pricing   config.PricingConfig
	Retention config.RetentionConfig
	Clock     clock.Clock
	Logger    observability.Logger
	Metrics   observability.MetricsClient
}

// New builds a Tracker. Store must be non-nil; the other fields take
// safe defaults.
func New(cfg Config) *Tracker {
	c := cfg.Clock
	if c == nil {
		c = clock.New()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}

	return &Tracker{
		store:     cfg.Store,
		pricing:   cfg.Pricing,
		retention: cfg.Retention,
		clock:     c,
		logger:    logger,
		metrics:   metrics,
	}
}

// RecordUsage persists a detailed usage record with the retention
// TTL and atomically rolls it into the day's aggregates, by approach,
// by task type, and — when a skill was involved — by skill name.
// Matches skills.UsageRecorder so the skills manager and the mesh
// adapters can record through this tracker without importing it.
func (t *Tracker) RecordUsage(ctx context.Context, taskID string, tokens int, taskType, userID, model, approach, skillName string, confidence *float64) error {
	now := t.clock.Now()
	cost := estimateCost(t.pricing, tokens, model)

	record := UsageRecord{
		TaskID:       taskID,
		TokensUsed:   tokens,
		TaskType:     taskType,
		UserID:       userID,
		Model:        model,
		Approach:     approach,
		SkillName:    skillName,
		Confidence:   confidence,
		Timestamp:    now,
		CostEstimate: cost,
	}

	ttl := t.retention.UsageRecordTTL
	if taskID != "" {
		if err := t.store.Set(ctx, "token_usage:"+taskID, record, ttl); err != nil {
			t.logger.Error("token usage record failed", map[string]interface{}{"error": err.Error()})
			return fmt.Errorf("tokentracker: set usage record: %w", err)
		}
	}

	dateKey := now.Format("2006-01-02")

	if _, err := t.store.Incr(ctx, fmt.Sprintf("daily_tokens:%s:%s", dateKey, approach), int64(tokens)); err != nil {
		return fmt.Errorf("tokentracker: incr daily tokens: %w", err)
	}
	if _, err := t.store.Incr(ctx, fmt.Sprintf("daily_interactions:%s:%s", dateKey, approach), 1); err != nil {
		return fmt.Errorf("tokentracker: incr daily interactions: %w", err)
	}
	if _, err := t.store.Incr(ctx, fmt.Sprintf("daily_tokens_by_type:%s:%s", dateKey, taskType), int64(tokens)); err != nil {
		return fmt.Errorf("tokentracker: incr daily tokens by type: %w", err)
	}
	if skillName != "" {
		if _, err := t.store.Incr(ctx, fmt.Sprintf("daily_tokens_by_skill:%s:%s", dateKey, skillName), int64(tokens)); err != nil {
			return fmt.Errorf("tokentracker: incr daily tokens by skill: %w", err)
		}
	}
	if _, err := t.store.IncrByFloat(ctx, fmt.Sprintf("daily_cost:%s:%s", dateKey, approach), cost); err != nil {
		return fmt.Errorf("tokentracker: incr daily cost: %w", err)
	}

	t.metrics.RecordCounter("tokentracker_tokens_recorded_total", float64(tokens), map[string]string{"approach": approach})
	return nil
}
