package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDefaultConfig verifies default configuration values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ":8000", cfg.Listen)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, 10*time.Minute, cfg.StepTimeout)
	assert.Equal(t, 15*time.Minute, cfg.TestTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, EditorNote, cfg.Editor)
}

// TestLoadValidFile tests loading a valid YAML config file.
func TestLoadValidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `listen: ":9000"
store: redis
redis_addr: "redis.internal:6379"
step_timeout: 5m
test_timeout: 30m
log_level: debug
github_token: tok_from_file
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, StoreRedis, cfg.Store)
	assert.Equal(t, "redis.internal:6379", cfg.RedisAddr)
	assert.Equal(t, 5*time.Minute, cfg.StepTimeout)
	assert.Equal(t, 30*time.Minute, cfg.TestTimeout)
	// Unset fields keep defaults.
	assert.NotEmpty(t, cfg.WorkDir, "WorkDir default was not applied")
}

// TestLoadMissingFile verifies that a missing config file yields defaults.
func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err, "missing file should fall back to defaults")
	assert.Equal(t, ":8000", cfg.Listen)
}

// TestLoadMalformedFile verifies that broken YAML is an error.
func TestLoadMalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("listen: [unclosed"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

// TestLoadBadDuration verifies that unparseable durations are an error.
func TestLoadBadDuration(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("step_timeout: soon"), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
}

// TestEnvTokenOverridesFile verifies GITHUB_TOKEN precedence.
func TestEnvTokenOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("github_token: tok_from_file"), 0644))

	t.Setenv("GITHUB_TOKEN", "tok_from_env")

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "tok_from_env", cfg.GitHubToken)
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.GitHubToken = "tok"
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store", func(c *Config) { c.Store = "etcd" }},
		{"file store without path", func(c *Config) { c.Store = StoreFile; c.StateFile = "" }},
		{"sqlite store without path", func(c *Config) { c.Store = StoreSQLite; c.SQLitePath = "" }},
		{"redis store without addr", func(c *Config) { c.Store = StoreRedis; c.RedisAddr = "" }},
		{"unknown editor", func(c *Config) { c.Editor = "vim" }},
		{"command editor without command", func(c *Config) { c.Editor = EditorCommand; c.AgentCommand = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"zero step timeout", func(c *Config) { c.StepTimeout = 0 }},
		{"negative test timeout", func(c *Config) { c.TestTimeout = -time.Second }},
		{"empty workdir", func(c *Config) { c.WorkDir = "" }},
		{"missing token", func(c *Config) { c.GitHubToken = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
