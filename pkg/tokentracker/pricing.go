package tokentracker

import "github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/config"

// inputShare/outputShare approximate the input/output split of a
// typical progressive-skill call: most of the cost is the templated
// prompt going in, a small completion coming back.
const (
	inputShare  = 0.8
	outputShare = 0.2
)

// estimateCost prices tokens against the model-keyed pricing table,
// splitting the total 80/20 between input and output tokens.
func estimateCost(pricing config.PricingConfig, tokens int, model string) float64 {
	rate := pricing.Price(model)

	inputTokens := float64(tokens) * inputShare
	outputTokens := float64(tokens) * outputShare

	return (inputTokens/1000)*rate.InputPerThousandTokens + (outputTokens/1000)*rate.OutputPerThousandTokens
}
