package skills

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// LoadSkill resolves skill content: core/ first, then extended/,
// falling back to the registry's configured fallback skill if the
// named file doesn't exist. Content is cached in memory once loaded,
// so repeat invocations avoid file I/O.
func (m *Manager) LoadSkill(skillName string) (string, error) {
	m.mu.Lock()
	if cached, ok := m.cache.Get(skillName); ok {
		m.mu.Unlock()
		return cached, nil
	}
	m.mu.Unlock()

	path := m.locateSkillFile(skillName)
	resolvedName := skillName
	if path == "" {
		resolvedName = m.registry.FallbackSkill
		path = m.locateSkillFile(resolvedName)
		m.logger.Warn("skill file not found, using fallback", map[string]interface{}{"skill": skillName, "fallback": resolvedName})
	}

	if path == "" {
		return "", errors.Errorf("skill loading failed: %s", skillName)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "skill loading failed: %s", skillName)
	}

	m.mu.Lock()
	m.cache.Add(skillName, string(content))
	m.mu.Unlock()

	m.trackUsage("execution", skillName, 1.0)
	return string(content), nil
}

func (m *Manager) locateSkillFile(skillName string) string {
	core := filepath.Join(m.skillsPath, "core", skillName+".md")
	if _, err := os.Stat(core); err == nil {
		return core
	}

	extended := filepath.Join(m.skillsPath, "extended", skillName+".md")
	if _, err := os.Stat(extended); err == nil {
		return extended
	}

	return ""
}

// ExecuteSkill runs phase 2: load the named skill, template it with
// context, and invoke the model through the tool-invocation port. A
// transport failure degrades to a safe canned response with OK=false
// rather than propagating the error, so a caller always has something
// to show the user.
func (m *Manager) ExecuteSkill(ctx context.Context, skillName string, execContext map[string]interface{}) ExecutionResult {
	content, err := m.LoadSkill(skillName)
	if err != nil {
		return ExecutionResult{
			SkillUsed:       skillName,
			ResponseContent: fallbackResponse,
			Confidence:      0.3,
			TokensEstimated: 200,
			OK:              false,
			Error:           err.Error(),
		}
	}

	prompt := templateContent(content, execContext)

	callArgs := make(map[string]interface{}, len(execContext)+2)
	for k, v := range execContext {
		callArgs[k] = v
	}
	callArgs["prompt"] = prompt
	callArgs["skill_name"] = skillName
	callArgs["progressive"] = true

	response, err := m.llm.CallTool(ctx, "llm", "complete", callArgs)
	if err != nil {
		m.logger.Error("skill execution failed", map[string]interface{}{"skill": skillName, "error": err.Error()})
		return ExecutionResult{
			SkillUsed:       skillName,
			ResponseContent: fallbackResponse,
			Confidence:      0.3,
			TokensEstimated: 200,
			OK:              false,
			Error:           err.Error(),
		}
	}

	confidence := 0.8
	if v, ok := response["confidence"].(float64); ok {
		confidence = v
	}

	return ExecutionResult{
		SkillUsed:       skillName,
		ResponseContent: responseText(response),
		Confidence:      confidence,
		TokensEstimated: m.estimateTokens(skillName),
		OK:              true,
	}
}

func (m *Manager) estimateTokens(skillName string) int {
	meta := m.GetSkillMetadata(skillName)
	return meta.EstimatedTokens
}
