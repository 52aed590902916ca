package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 0.40, cfg.Routing.Performance)
	assert.Equal(t, 20, cfg.Quota.MaxTasksPerUserPerHour)
}

func TestConfig_ValidateRejectsBadWeights(t *testing.T) {
	cfg := Config{
		Routing: RoutingWeights{Performance: 0.5, Availability: 0.5, CostEfficiency: 0.5, ResponseTime: 0.5},
		Budget:  BudgetConfig{MaxTotalCostPerHour: 50, EmergencyShutdownThreshold: 100},
	}
	assert.Error(t, cfg.Validate())
}

func TestConfig_ValidateRejectsShutdownBelowHourlyCeiling(t *testing.T) {
	cfg := Config{
		Routing: RoutingWeights{Performance: 0.40, Availability: 0.25, CostEfficiency: 0.20, ResponseTime: 0.15},
		Budget:  BudgetConfig{MaxTotalCostPerHour: 100, EmergencyShutdownThreshold: 50},
	}
	assert.Error(t, cfg.Validate())
}

func TestPricingConfig_PrefixMatchFallsBackToDefault(t *testing.T) {
	pricing := PricingConfig{
		"default": {InputPerThousandTokens: 0.5, OutputPerThousandTokens: 1.5},
		"gpt-4":   {InputPerThousandTokens: 2.5, OutputPerThousandTokens: 10.0},
	}

	assert.Equal(t, 2.5, pricing.Price("gpt-4-turbo").InputPerThousandTokens)
	assert.Equal(t, 0.5, pricing.Price("unknown-model-xyz").InputPerThousandTokens)
}
