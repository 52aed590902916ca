package tokentracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/kv"
)

// DayReport is one day's token/cost comparison between the baseline
// and progressive approaches.
type DayReport struct {
	Date                   string  `json:"date"`
	CurrentTokens          int64   `json:"current_tokens"`
	ProgressiveTokens      int64   `json:"progressive_tokens"`
	CurrentInteractions    int64   `json:"current_interactions"`
	ProgressiveInteractions int64  `json:"progressive_interactions"`
	CurrentCost            float64 `json:"current_cost"`
	ProgressiveCost        float64 `json:"progressive_cost"`
	TokenReductionPercent  float64 `json:"token_reduction_percent"`
	CostReductionPercent   float64 `json:"cost_reduction_percent"`
}

// ResearchValidation compares the measured reduction against the
// validated research prediction of ~68.1%.
type ResearchValidation struct {
	PredictedReduction float64 `json:"predicted_reduction"`
	ActualReduction    float64 `json:"actual_reduction"`
	Accuracy           float64 `json:"accuracy"`
}

// Summary aggregates the report's period into totals.
type Summary struct {
	TotalCurrentTokens       int64              `json:"total_current_tokens"`
	TotalProgressiveTokens   int64              `json:"total_progressive_tokens"`
	OverallTokenReduction    float64            `json:"overall_token_reduction"`
	TotalCurrentCost         float64            `json:"total_current_cost"`
	TotalProgressiveCost     float64            `json:"total_progressive_cost"`
	OverallCostReduction     float64            `json:"overall_cost_reduction"`
	CostSavings              float64            `json:"cost_savings"`
	ProjectedMonthlySavings  float64            `json:"projected_monthly_savings"`
	ProjectedAnnualSavings   float64            `json:"projected_annual_savings"`
	ResearchValidation       ResearchValidation `json:"research_validation"`
}

// SkillStat is one skill's slice of the skill-usage breakdown.
type SkillStat struct {
	TotalTokens    int64   `json:"total_tokens"`
	UsageDays      int     `json:"usage_days"`
	AvgDailyTokens float64 `json:"avg_daily_tokens"`
}

// EfficiencyReport is the Token/Cost Tracker's headline report:
// per-day trends, a period summary, a per-skill breakdown, and
// derived recommendations.
type EfficiencyReport struct {
	PeriodDays      int                  `json:"period_days"`
	AnalysisDate    time.Time            `json:"analysis_date"`
	DailyTrends     []DayReport          `json:"daily_trends"`
	Summary         Summary              `json:"summary"`
	SkillBreakdown  map[string]SkillStat `json:"skill_breakdown"`
	Recommendations []string             `json:"recommendations"`
}

const researchPredictionPercent = 68.1

func readInt64(ctx context.Context, store kv.Store, key string) int64 {
	var v int64
	if err := store.Get(ctx, key, &v); err != nil {
		return 0
	}
	return v
}

func readFloat64(ctx context.Context, store kv.Store, key string) float64 {
	var v float64
	if err := store.Get(ctx, key, &v); err != nil {
		return 0
	}
	return v
}

// GetEfficiencyReport compares the "current" (baseline) and
// "progressive" approaches over the trailing `days` days.
func (t *Tracker) GetEfficiencyReport(ctx context.Context, days int) (*EfficiencyReport, error) {
	report := &EfficiencyReport{
		PeriodDays:   days,
		AnalysisDate: t.clock.Now(),
	}

	var totalCurrentTokens, totalProgressiveTokens int64
	var totalCurrentCost, totalProgressiveCost float64

	for i := 0; i < days; i++ {
		date := t.clock.Now().AddDate(0, 0, -i).Format("2006-01-02")

		day := DayReport{
			Date:                    date,
			CurrentTokens:           readInt64(ctx, t.store, "daily_tokens:"+date+":current"),
			ProgressiveTokens:       readInt64(ctx, t.store, "daily_tokens:"+date+":progressive"),
			CurrentInteractions:     readInt64(ctx, t.store, "daily_interactions:"+date+":current"),
			ProgressiveInteractions: readInt64(ctx, t.store, "daily_interactions:"+date+":progressive"),
			CurrentCost:             readFloat64(ctx, t.store, "daily_cost:"+date+":current"),
			ProgressiveCost:         readFloat64(ctx, t.store, "daily_cost:"+date+":progressive"),
		}

		if day.CurrentTokens > 0 {
			day.TokenReductionPercent = float64(day.CurrentTokens-day.ProgressiveTokens) / float64(day.CurrentTokens) * 100
		}
		if day.CurrentCost > 0 {
			day.CostReductionPercent = (day.CurrentCost - day.ProgressiveCost) / day.CurrentCost * 100
		}

		report.DailyTrends = append(report.DailyTrends, day)

		totalCurrentTokens += day.CurrentTokens
		totalProgressiveTokens += day.ProgressiveTokens
		totalCurrentCost += day.CurrentCost
		totalProgressiveCost += day.ProgressiveCost
	}

	if totalCurrentTokens > 0 {
		overallReduction := float64(totalCurrentTokens-totalProgressiveTokens) / float64(totalCurrentTokens) * 100
		costSavings := totalCurrentCost - totalProgressiveCost

		var monthly, annual float64
		if days > 0 {
			monthly = costSavings * (30.0 / float64(days))
			annual = costSavings * (365.0 / float64(days))
		}

		accuracy := 0.0
		if researchPredictionPercent > 0 {
			accuracy = overallReduction / researchPredictionPercent * 100
			if accuracy > 100 {
				accuracy = 100
			}
		}

		report.Summary = Summary{
			TotalCurrentTokens:      totalCurrentTokens,
			TotalProgressiveTokens:  totalProgressiveTokens,
			OverallTokenReduction:   overallReduction,
			TotalCurrentCost:        totalCurrentCost,
			TotalProgressiveCost:    totalProgressiveCost,
			OverallCostReduction:    (totalCurrentCost - totalProgressiveCost) / totalCurrentCost * 100,
			CostSavings:             costSavings,
			ProjectedMonthlySavings: monthly,
			ProjectedAnnualSavings:  annual,
			ResearchValidation: ResearchValidation{
				PredictedReduction: researchPredictionPercent,
				ActualReduction:    overallReduction,
				Accuracy:           accuracy,
			},
		}
	}

	breakdown, err := t.skillBreakdownOverDays(ctx, days)
	if err != nil {
		t.logger.Error("skill breakdown failed", map[string]interface{}{"error": err.Error()})
	} else {
		report.SkillBreakdown = breakdown
	}

	report.Recommendations = recommendations(report)
	return report, nil
}

// GetSkillBreakdown reports per-skill token usage for a single day, a
// narrower read-path than GetEfficiencyReport's multi-day scan.
// Supplements the core report with a day-scoped view, exercising the
// KV port's Keys(pattern) operation directly.
func (t *Tracker) GetSkillBreakdown(ctx context.Context, date string) (map[string]SkillStat, error) {
	pattern := fmt.Sprintf("daily_tokens_by_skill:%s:*", date)
	keys, err := t.store.Keys(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("tokentracker: listing skill keys: %w", err)
	}

	stats := make(map[string]SkillStat, len(keys))
	for _, key := range keys {
		parts := strings.Split(key, ":")
		skillName := parts[len(parts)-1]
		tokens := readInt64(ctx, t.store, key)
		stats[skillName] = SkillStat{TotalTokens: tokens, UsageDays: 1, AvgDailyTokens: float64(tokens)}
	}
	return stats, nil
}

func (t *Tracker) skillBreakdownOverDays(ctx context.Context, days int) (map[string]SkillStat, error) {
	stats := make(map[string]SkillStat)

	for i := 0; i < days; i++ {
		date := t.clock.Now().AddDate(0, 0, -i).Format("2006-01-02")
		pattern := fmt.Sprintf("daily_tokens_by_skill:%s:*", date)

		keys, err := t.store.Keys(ctx, pattern)
		if err != nil {
			return nil, err
		}

		for _, key := range keys {
			parts := strings.Split(key, ":")
			skillName := parts[len(parts)-1]
			tokens := readInt64(ctx, t.store, key)

			stat := stats[skillName]
			stat.TotalTokens += tokens
			if tokens > 0 {
				stat.UsageDays++
			}
			stats[skillName] = stat
		}
	}

	for name, stat := range stats {
		if stat.UsageDays > 0 {
			stat.AvgDailyTokens = float64(stat.TotalTokens) / float64(stat.UsageDays)
			stats[name] = stat
		}
	}

	return stats, nil
}

func recommendations(report *EfficiencyReport) []string {
	if report.Summary.TotalCurrentTokens == 0 {
		return []string{"Insufficient data for recommendations"}
	}

	var recs []string

	reduction := report.Summary.OverallTokenReduction
	switch {
	case reduction > 60:
		recs = append(recs, fmt.Sprintf("Excellent token reduction (%.1f%%) - consider scaling to other bots", reduction))
	case reduction > 40:
		recs = append(recs, fmt.Sprintf("Moderate token reduction (%.1f%%) - investigate skill selection logic", reduction))
	default:
		recs = append(recs, fmt.Sprintf("Low token reduction (%.1f%%) - review skill implementation", reduction))
	}

	savings := report.Summary.CostSavings
	switch {
	case savings > 50:
		recs = append(recs, fmt.Sprintf("Significant cost savings ($%.2f) - ROI validated", savings))
	case savings > 10:
		recs = append(recs, fmt.Sprintf("Moderate cost savings ($%.2f) - positive ROI", savings))
	}

	accuracy := report.Summary.ResearchValidation.Accuracy
	switch {
	case accuracy > 80:
		recs = append(recs, fmt.Sprintf("Research validation excellent (%.1f%%) - findings confirmed", accuracy))
	case accuracy > 60:
		recs = append(recs, fmt.Sprintf("Research validation good (%.1f%%) - mostly accurate", accuracy))
	default:
		recs = append(recs, fmt.Sprintf("Research validation low (%.1f%%) - investigate discrepancies", accuracy))
	}

	if monthly := report.Summary.ProjectedMonthlySavings; monthly > 100 {
		recs = append(recs, fmt.Sprintf("Scale to all bots immediately - projected monthly savings: $%.2f", monthly))
	}

	return recs
}
