package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_MissingFileDegradesSafely(t *testing.T) {
	reg := LoadRegistry(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.Equal(t, "jorge_stall_breaker", reg.FallbackSkill)
	assert.Equal(t, 0, reg.TotalSkills())
}

func TestLoadRegistry_MalformedJSONDegradesSafely(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	reg := LoadRegistry(path)
	assert.Equal(t, "jorge_stall_breaker", reg.FallbackSkill)
}

func TestRegistry_Lookup_ChecksCoreThenExtended(t *testing.T) {
	reg := &Registry{
		CoreSkills:     map[string]Meta{"a": {Priority: 1}},
		ExtendedSkills: map[string]Meta{"b": {Priority: 2}},
	}

	assert.Equal(t, 1, reg.Lookup("a").Priority)
	assert.Equal(t, 2, reg.Lookup("b").Priority)
	assert.Equal(t, defaultMeta, reg.Lookup("c"))
}
