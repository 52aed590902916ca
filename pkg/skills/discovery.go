package skills

import (
	"encoding/json"
	"regexp"
	"strings"
)

// discoveryTokens is the fixed cost of the discovery phase: a single
// minimal-context call against the router skill, independent of which
// skill it selects.
const discoveryTokens = 103

// DiscoveryResult is what discover_skills returns: the chosen skill(s),
// a confidence score, and (best-effort) an explanation.
type DiscoveryResult struct {
	Skills          []string `json:"skills"`
	Confidence      float64  `json:"confidence"`
	Reasoning       string   `json:"reasoning"`
	DetectedPattern string   `json:"detected_pattern"`
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*?\}`)

type rawDiscoveryPayload struct {
	Skill           string  `json:"skill"`
	Confidence      float64 `json:"confidence"`
	Reasoning       string  `json:"reasoning"`
	DetectedPattern string  `json:"detected_pattern"`
}

// parseDiscoveryResponse extracts a skill selection from the router
// skill's raw text response: first by locating an embedded JSON
// object, falling back to keyword matching, and finally to the
// registry's configured fallback skill.
func (m *Manager) parseDiscoveryResponse(content string) DiscoveryResult {
	if match := jsonObjectPattern.FindString(content); match != "" {
		var payload rawDiscoveryPayload
		if err := json.Unmarshal([]byte(match), &payload); err == nil && payload.Skill != "" {
			confidence := payload.Confidence
			if confidence == 0 {
				confidence = 0.8
			}
			reasoning := payload.Reasoning
			if reasoning == "" {
				reasoning = "Parsed from discovery"
			}
			pattern := payload.DetectedPattern
			if pattern == "" {
				pattern = "unknown"
			}
			return DiscoveryResult{
				Skills:          []string{payload.Skill},
				Confidence:      confidence,
				Reasoning:       reasoning,
				DetectedPattern: pattern,
			}
		}
	}

	lower := strings.ToLower(content)
	switch {
	case strings.Contains(lower, "stall_breaker") || strings.Contains(lower, "stall"):
		return DiscoveryResult{
			Skills:          []string{"jorge_stall_breaker"},
			Confidence:      0.7,
			Reasoning:       "Stall pattern detected in response",
			DetectedPattern: "stalling",
		}
	case strings.Contains(lower, "disqualif") || strings.Contains(lower, "unserious"):
		return DiscoveryResult{
			Skills:          []string{"jorge_disqualifier"},
			Confidence:      0.8,
			Reasoning:       "Disqualification pattern detected",
			DetectedPattern: "disqualification",
		}
	case strings.Contains(lower, "confrontational") || strings.Contains(lower, "qualified"):
		return DiscoveryResult{
			Skills:          []string{"jorge_confrontational"},
			Confidence:      0.7,
			Reasoning:       "Confrontational approach indicated",
			DetectedPattern: "confrontational",
		}
	}

	return m.fallbackSelection()
}

func (m *Manager) fallbackSelection() DiscoveryResult {
	return DiscoveryResult{
		Skills:          []string{m.registry.FallbackSkill},
		Confidence:      0.5,
		Reasoning:       "Fallback due to discovery failure",
		DetectedPattern: "fallback",
	}
}
