// Package skills implements the Progressive Skills Manager: two-phase
// skill selection (a cheap discovery call chooses one specialized
// skill, then that skill's full content is loaded and executed)
// standing in for loading one large generic prompt on every task.
package skills

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/observability"
	"github.com/ChunkyTortoise/EnterpriseHub-sub048/pkg/toolport"
)

// UsageRecorder is the subset of the token tracker's surface the
// manager needs. It is declared here, not imported from
// pkg/tokentracker, so this package has no dependency on the tracker's
// KV-backed implementation.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, taskID string, tokens int, taskType, userID, model, approach, skillName string, confidence *float64) error
}

// UsageStat is the manager's in-memory analytics counter for one
// skill, independent of the token tracker's persisted usage records.
type UsageStat struct {
	DiscoveryCount  int
	ExecutionCount  int
	TotalConfidence float64
	AvgConfidence   float64
}

// ExecutionResult is what execute_skill returns: the skill's response
// plus enough metadata for the caller to record usage and judge
// success.
type ExecutionResult struct {
	SkillUsed       string
	ResponseContent string
	Confidence      float64
	TokensEstimated int
	OK              bool
	Error           string
}

const fallbackResponse = "Are we selling this property or just talking about it?"

// Manager is the Progressive Skills Manager. It is safe for
// concurrent use; usage stats and the content cache are guarded by an
// internal mutex per the single-writer discipline spec.md requires
// for skills-cache mutation.
type Manager struct {
	skillsPath string
	registry   *Registry
	llm        toolport.Port
	usage      UsageRecorder
	logger     observability.Logger
	metrics    observability.MetricsClient

	mu         sync.Mutex
	cache      *lru.Cache[string, string]
	usageStats map[string]*UsageStat
}

// Config configures a Manager at construction time.
type Config struct {
	SkillsPath      string
	RegistryPath    string
	ContentCacheSize int
	LLM             toolport.Port
	UsageRecorder   UsageRecorder
	Logger          observability.Logger
	Metrics         observability.MetricsClient
}

// NewManager loads the registry at cfg.RegistryPath (degrading to a
// safe empty registry on failure) and constructs a Manager ready to
// discover, load, and execute skills rooted at cfg.SkillsPath.
func NewManager(cfg Config) (*Manager, error) {
	size := cfg.ContentCacheSize
	if size <= 0 {
		size = 64
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, errors.Wrap(err, "skills: building content cache")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewNoOpMetricsClient()
	}

	return &Manager{
		skillsPath: cfg.SkillsPath,
		registry:   LoadRegistry(cfg.RegistryPath),
		llm:        cfg.LLM,
		usage:      cfg.UsageRecorder,
		logger:     logger,
		metrics:    metrics,
		cache:      cache,
		usageStats: make(map[string]*UsageStat),
	}, nil
}

// DiscoverSkills runs phase 1: a minimal-context call against the
// router skill to pick one specialized skill. Any failure along the
// way — missing discovery file, transport error, unparseable response
// — degrades to the registry's configured fallback skill at
// confidence 0.5, never an error return.
func (m *Manager) DiscoverSkills(ctx context.Context, discoveryContext map[string]interface{}, taskType string) DiscoveryResult {
	discoveryPath := filepath.Join(m.skillsPath, "discovery", "jorge_skill_router.md")
	content, err := os.ReadFile(discoveryPath)
	if err != nil {
		m.logger.Error("discovery skill not found", map[string]interface{}{"path": discoveryPath, "error": err.Error()})
		result := m.fallbackSelection()
		m.recordDiscovery(ctx, result, taskType, discoveryContext)
		return result
	}

	prompt := templateContent(string(content), discoveryContext)

	var result DiscoveryResult
	response, err := m.llm.CallTool(ctx, "llm", "complete", map[string]interface{}{
		"prompt":     prompt,
		"minimal":    true,
		"max_tokens": 150,
	})
	if err != nil {
		m.logger.Error("skill discovery failed", map[string]interface{}{"error": err.Error()})
		result = m.fallbackSelection()
	} else {
		result = m.parseDiscoveryResponse(responseText(response))
	}

	m.recordDiscovery(ctx, result, taskType, discoveryContext)
	return result
}

func responseText(response map[string]interface{}) string {
	if v, ok := response["content"].(string); ok && v != "" {
		return v
	}
	if v, ok := response["analysis"].(string); ok {
		return v
	}
	return ""
}

func (m *Manager) recordDiscovery(ctx context.Context, result DiscoveryResult, taskType string, discoveryContext map[string]interface{}) {
	skillName := ""
	if len(result.Skills) > 0 {
		skillName = result.Skills[0]
	}
	m.trackUsage("discovery", "jorge_skill_router", result.Confidence)

	if m.usage == nil {
		return
	}
	userID, _ := discoveryContext["user_id"].(string)
	confidence := result.Confidence
	if err := m.usage.RecordUsage(ctx, "", discoveryTokens, taskType, userID, "", "discovery", skillName, &confidence); err != nil {
		m.logger.Warn("discovery usage record failed", map[string]interface{}{"error": err.Error()})
	}
}

// GetSkillMetadata exposes registry metadata without loading skill
// content.
func (m *Manager) GetSkillMetadata(skillName string) Meta {
	return m.registry.Lookup(skillName)
}

// GetUsageStatistics reports cumulative discovery/execution counters
// alongside the registry's reduction figures.
func (m *Manager) GetUsageStatistics() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make(map[string]UsageStat, len(m.usageStats))
	for name, s := range m.usageStats {
		stats[name] = *s
	}

	return map[string]interface{}{
		"total_skills_available":  m.registry.TotalSkills(),
		"skills_loaded_in_cache":  m.cache.Len(),
		"usage_stats":             stats,
		"expected_token_reduction": m.registry.ExpectedReduction,
		"baseline_tokens":         m.registry.BaselineTokens,
		"target_tokens":           m.registry.TargetTokens,
	}
}

func (m *Manager) trackUsage(phase, skillName string, confidence float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stat, ok := m.usageStats[skillName]
	if !ok {
		stat = &UsageStat{}
		m.usageStats[skillName] = stat
	}

	switch phase {
	case "discovery":
		stat.DiscoveryCount++
	case "execution":
		stat.ExecutionCount++
	}

	stat.TotalConfidence += confidence
	total := stat.DiscoveryCount + stat.ExecutionCount
	if total > 0 {
		stat.AvgConfidence = stat.TotalConfidence / float64(total)
	}
}

func templateContent(content string, context map[string]interface{}) string {
	templated := content
	for key, value := range context {
		placeholder := "{{" + key + "}}"
		templated = strings.ReplaceAll(templated, placeholder, fmt.Sprintf("%v", value))
	}
	return templated
}
