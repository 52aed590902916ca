package skills

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePort is a scripted toolport.Port used across the skills tests.
type fakePort struct {
	response map[string]interface{}
	err      error
	calls    int
}

func (f *fakePort) CallTool(ctx context.Context, server, tool string, args map[string]interface{}) (map[string]interface{}, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakePort) Close() error { return nil }

// recordingUsage captures every RecordUsage call for assertions.
type recordingUsage struct {
	calls []string
}

func (r *recordingUsage) RecordUsage(ctx context.Context, taskID string, tokens int, taskType, userID, model, approach, skillName string, confidence *float64) error {
	r.calls = append(r.calls, skillName)
	return nil
}

func newTestSkillsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "discovery"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "core"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "extended"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "discovery", "jorge_skill_router.md"), []byte("route {{lead_name}}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "core", "jorge_stall_breaker.md"), []byte("Hi {{lead_name}}, still thinking?"), 0o644))
	return dir
}

func newTestRegistry(t *testing.T, dir string) string {
	t.Helper()
	registryJSON := `{
		"jorge_progressive_skills": {
			"version": "1",
			"core_skills": {
				"jorge_stall_breaker": {"purpose": "break stalls", "tokens": 169, "confidence_threshold": 0.6, "priority": 1}
			},
			"extended_skills": {},
			"fallback_skill": "jorge_stall_breaker",
			"expected_reduction": 0.68,
			"baseline_tokens": 853,
			"target_tokens": 272
		}
	}`
	path := filepath.Join(dir, "skills_registry.json")
	require.NoError(t, os.WriteFile(path, []byte(registryJSON), 0o644))
	return path
}

func TestManager_DiscoverSkills_ParsesJSONResponse(t *testing.T) {
	dir := newTestSkillsDir(t)
	registryPath := newTestRegistry(t, dir)

	port := &fakePort{response: map[string]interface{}{"content": `{"skill": "jorge_stall_breaker", "confidence": 0.9}`}}
	usage := &recordingUsage{}

	m, err := NewManager(Config{SkillsPath: dir, RegistryPath: registryPath, LLM: port, UsageRecorder: usage})
	require.NoError(t, err)

	result := m.DiscoverSkills(context.Background(), map[string]interface{}{"lead_name": "Sam"}, "jorge_seller_qualification")
	assert.Equal(t, []string{"jorge_stall_breaker"}, result.Skills)
	assert.Equal(t, 0.9, result.Confidence)
	assert.Equal(t, []string{"jorge_stall_breaker"}, usage.calls)
}

func TestManager_DiscoverSkills_FallsBackOnTransportFailure(t *testing.T) {
	dir := newTestSkillsDir(t)
	registryPath := newTestRegistry(t, dir)

	port := &fakePort{err: assertErr}
	m, err := NewManager(Config{SkillsPath: dir, RegistryPath: registryPath, LLM: port})
	require.NoError(t, err)

	result := m.DiscoverSkills(context.Background(), map[string]interface{}{}, "jorge_seller_qualification")
	assert.Equal(t, []string{"jorge_stall_breaker"}, result.Skills)
	assert.Equal(t, 0.5, result.Confidence)
	assert.Equal(t, "fallback", result.DetectedPattern)
}

func TestManager_DiscoverSkills_MissingDiscoveryFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	registryPath := newTestRegistry(t, dir)
	m, err := NewManager(Config{SkillsPath: dir, RegistryPath: registryPath, LLM: &fakePort{}})
	require.NoError(t, err)

	result := m.DiscoverSkills(context.Background(), map[string]interface{}{}, "jorge_seller_qualification")
	assert.Equal(t, 0.5, result.Confidence)
}

func TestManager_LoadSkill_CachesContent(t *testing.T) {
	dir := newTestSkillsDir(t)
	registryPath := newTestRegistry(t, dir)
	m, err := NewManager(Config{SkillsPath: dir, RegistryPath: registryPath, LLM: &fakePort{}})
	require.NoError(t, err)

	content, err := m.LoadSkill("jorge_stall_breaker")
	require.NoError(t, err)
	assert.Contains(t, content, "{{lead_name}}")

	stats := m.GetUsageStatistics()
	assert.Equal(t, 1, stats["skills_loaded_in_cache"])
}

func TestManager_LoadSkill_MissingFallsBackToRegistryFallback(t *testing.T) {
	dir := newTestSkillsDir(t)
	registryPath := newTestRegistry(t, dir)
	m, err := NewManager(Config{SkillsPath: dir, RegistryPath: registryPath, LLM: &fakePort{}})
	require.NoError(t, err)

	content, err := m.LoadSkill("jorge_unknown_skill")
	require.NoError(t, err)
	assert.Contains(t, content, "still thinking")
}

func TestManager_ExecuteSkill_ReturnsResponseAndTokenEstimate(t *testing.T) {
	dir := newTestSkillsDir(t)
	registryPath := newTestRegistry(t, dir)
	port := &fakePort{response: map[string]interface{}{"content": "Let's talk numbers.", "confidence": 0.95}}
	m, err := NewManager(Config{SkillsPath: dir, RegistryPath: registryPath, LLM: port})
	require.NoError(t, err)

	result := m.ExecuteSkill(context.Background(), "jorge_stall_breaker", map[string]interface{}{"lead_name": "Sam"})
	assert.True(t, result.OK)
	assert.Equal(t, "Let's talk numbers.", result.ResponseContent)
	assert.Equal(t, 169, result.TokensEstimated)
}

func TestManager_ExecuteSkill_TransportFailureReturnsSafeFallback(t *testing.T) {
	dir := newTestSkillsDir(t)
	registryPath := newTestRegistry(t, dir)
	port := &fakePort{err: assertErr}
	m, err := NewManager(Config{SkillsPath: dir, RegistryPath: registryPath, LLM: port})
	require.NoError(t, err)

	result := m.ExecuteSkill(context.Background(), "jorge_stall_breaker", map[string]interface{}{})
	assert.False(t, result.OK)
	assert.Equal(t, fallbackResponse, result.ResponseContent)
	assert.NotEmpty(t, result.Error)
}

func TestManager_GetSkillMetadata_UnknownReturnsDefault(t *testing.T) {
	dir := newTestSkillsDir(t)
	registryPath := newTestRegistry(t, dir)
	m, err := NewManager(Config{SkillsPath: dir, RegistryPath: registryPath, LLM: &fakePort{}})
	require.NoError(t, err)

	meta := m.GetSkillMetadata("never_registered")
	assert.Equal(t, 150, meta.EstimatedTokens)
	assert.Equal(t, 99, meta.Priority)
}

var assertErr = &staticErr{"transport unreachable"}

type staticErr struct{ msg string }

func (e *staticErr) Error() string { return e.msg }
