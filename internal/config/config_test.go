package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/pipeline-engine/internal/dsl"
)

func TestDefaultHasSafeResourceFloor(t *testing.T) {
	cfg := Default()
	assert.GreaterOrEqual(t, cfg.Limits.MaxMemoryMB, int64(64))
	assert.Equal(t, "Default", cfg.Security.Preset)
}

func TestLoadAppliesYAMLFileOverTopOfDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	content := []byte("security:\n  preset: Restricted\nlimits:\n  max_memory_mb: 256\npool:\n  initial_size: 4\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Restricted", cfg.Security.Preset)
	assert.Equal(t, int64(256), cfg.Limits.MaxMemoryMB)
	assert.Equal(t, 4, cfg.Pool.InitialSize)
	assert.Equal(t, 256, cfg.Pool.MaxSize) // untouched fields keep their default
}

func TestLoadToleratesMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Pool, cfg.Pool)
}

func TestLoadAppliesEnvOverride(t *testing.T) {
	t.Setenv("PIPELINE_MAX_MEMORY_MB", "777")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(777), cfg.Limits.MaxMemoryMB)
}

func TestSecurityPolicyAppliesExplicitOverrides(t *testing.T) {
	cfg := Default()
	allowNet := true
	cfg.Security.AllowNetworkAccess = &allowNet

	policy := cfg.SecurityPolicy()
	assert.True(t, policy.AllowNetworkAccess)
}

func TestResourceLimitsConvertsFlatFields(t *testing.T) {
	cfg := Default()
	limits := cfg.ResourceLimits()
	require.NotNil(t, limits.MaxMemoryMB)
	assert.Equal(t, cfg.Limits.MaxMemoryMB, *limits.MaxMemoryMB)
}

func TestIsolationDefaultsToThread(t *testing.T) {
	cfg := Default()
	assert.Equal(t, dsl.IsolationThread, cfg.Isolation())
}

func TestIsolationFallsBackOnUnrecognizedValue(t *testing.T) {
	cfg := Default()
	cfg.Security.Isolation = "bogus"
	assert.Equal(t, dsl.IsolationThread, cfg.Isolation())
}

func TestIsolationHonorsExplicitValue(t *testing.T) {
	cfg := Default()
	cfg.Security.Isolation = string(dsl.IsolationNone)
	assert.Equal(t, dsl.IsolationNone, cfg.Isolation())
}
