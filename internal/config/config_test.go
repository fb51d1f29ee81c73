package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 254, cfg.Runtime.MaxAccounts)
	assert.Equal(t, 32*1024, cfg.Runtime.HeapSize)
	assert.Equal(t, uint64(200_000), cfg.Runtime.ComputeBudget)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anvil.yaml")
	content := []byte(`
runtime:
  heap_size: 65536
  compute_budget: 1400000
log:
  level: debug
  format: json
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 65536, cfg.Runtime.HeapSize)
	assert.Equal(t, uint64(1_400_000), cfg.Runtime.ComputeBudget)
	assert.Equal(t, 254, cfg.Runtime.MaxAccounts)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ANVIL_RUNTIME_COMPUTE_BUDGET", "5000")
	path := filepath.Join(t.TempDir(), "anvil.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), cfg.Runtime.ComputeBudget)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"too many accounts", func(c *Config) { c.Runtime.MaxAccounts = 255 }},
		{"heap too large", func(c *Config) { c.Runtime.HeapSize = 512 * 1024 }},
		{"heap not KiB multiple", func(c *Config) { c.Runtime.HeapSize = 1000 }},
		{"zero budget", func(c *Config) { c.Runtime.ComputeBudget = 0 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
