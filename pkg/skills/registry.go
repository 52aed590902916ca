package skills

import (
	"encoding/json"
	"os"
)

// Tier identifies which registry bucket a skill belongs to.
type Tier string

const (
	TierCore      Tier = "core"
	TierExtended  Tier = "extended"
	TierFallback  Tier = "fallback"
	TierDiscovery Tier = "discovery"
)

// Meta is a skill's registry entry: everything needed to pick and
// budget a skill without loading its content.
type Meta struct {
	Purpose             string  `json:"purpose"`
	EstimatedTokens      int     `json:"tokens"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	Priority            int     `json:"priority"`
}

var defaultMeta = Meta{Purpose: "Unknown skill", EstimatedTokens: 150, ConfidenceThreshold: 0.5, Priority: 99}

// Registry is the parsed skill registry document: a named set of core
// and extended skills plus mesh-wide reduction figures. It degrades to
// an empty-but-usable registry when the backing file is missing or
// malformed, so a fresh deployment without a registry still routes
// every task to the fallback skill instead of failing closed.
type Registry struct {
	Version           string          `json:"version"`
	CoreSkills        map[string]Meta `json:"core_skills"`
	ExtendedSkills    map[string]Meta `json:"extended_skills"`
	FallbackSkill     string          `json:"fallback_skill"`
	ExpectedReduction float64        `json:"expected_reduction"`
	BaselineTokens    int            `json:"baseline_tokens"`
	TargetTokens      int            `json:"target_tokens"`
}

func emptyRegistry() *Registry {
	return &Registry{
		CoreSkills:     map[string]Meta{},
		ExtendedSkills: map[string]Meta{},
		FallbackSkill:  "jorge_stall_breaker",
		BaselineTokens: 853,
		TargetTokens:   272,
	}
}

// LoadRegistry reads the registry document at path, degrading to a
// safe empty registry on any read or parse failure.
func LoadRegistry(path string) *Registry {
	data, err := os.ReadFile(path)
	if err != nil {
		return emptyRegistry()
	}

	var wrapper struct {
		JorgeProgressiveSkills Registry `json:"jorge_progressive_skills"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return emptyRegistry()
	}

	reg := wrapper.JorgeProgressiveSkills
	if reg.CoreSkills == nil {
		reg.CoreSkills = map[string]Meta{}
	}
	if reg.ExtendedSkills == nil {
		reg.ExtendedSkills = map[string]Meta{}
	}
	if reg.FallbackSkill == "" {
		reg.FallbackSkill = "jorge_stall_breaker"
	}
	return &reg
}

// Lookup returns a skill's metadata, checking core skills first, then
// extended, falling back to generic defaults for an unknown name.
func (r *Registry) Lookup(skillName string) Meta {
	if meta, ok := r.CoreSkills[skillName]; ok {
		return meta
	}
	if meta, ok := r.ExtendedSkills[skillName]; ok {
		return meta
	}
	return defaultMeta
}

// TotalSkills counts registered core and extended skills.
func (r *Registry) TotalSkills() int {
	return len(r.CoreSkills) + len(r.ExtendedSkills)
}
