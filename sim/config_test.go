package sim

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	valid := testConfig(3, 2, 5)
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative read duration", func(c *Config) { c.ReadDuration = -1 }},
		{"negative delete duration", func(c *Config) { c.DeleteDuration = -3 }},
		{"zero files", func(c *Config) { c.ResourceCount = 0 }},
		{"zero cap", func(c *Config) { c.MaxConcurrentUsers = 0 }},
		{"negative timeout", func(c *Config) { c.WaitTimeout = -1 }},
		{"zero tick", func(c *Config) { c.Tick = Duration{} }},
		{"negative stagger", func(c *Config) { c.Stagger = Duration{-time.Millisecond} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_ServiceDuration(t *testing.T) {
	cfg := Config{ReadDuration: 1, WriteDuration: 2, DeleteDuration: 3}
	assert.Equal(t, int64(1), cfg.ServiceDuration(OpRead))
	assert.Equal(t, int64(2), cfg.ServiceDuration(OpWrite))
	assert.Equal(t, int64(3), cfg.ServiceDuration(OpDelete))
	assert.Panics(t, func() { cfg.ServiceDuration(Operation(7)) })
}

func TestDefaultConfig_WallClockKnobs(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, time.Second, cfg.Tick.Duration)
	assert.Equal(t, 500*time.Microsecond, cfg.Stagger.Duration)
	assert.Equal(t, 1, cfg.MaxConcurrentUsers)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_YAML(t *testing.T) {
	// GIVEN a YAML config that leaves stagger unset
	path := writeFile(t, "lazy.yaml", `
read_duration: 3
write_duration: 4
delete_duration: 1
files: 5
max_concurrent_users: 2
wait_timeout: 6
tick: 250ms
`)

	// WHEN loaded
	cfg, err := LoadConfig(path)

	// THEN file values apply and unset fields keep their defaults
	require.NoError(t, err)
	assert.Equal(t, int64(3), cfg.ReadDuration)
	assert.Equal(t, int64(4), cfg.WriteDuration)
	assert.Equal(t, 5, cfg.ResourceCount)
	assert.Equal(t, 2, cfg.MaxConcurrentUsers)
	assert.Equal(t, int64(6), cfg.WaitTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Tick.Duration)
	assert.Equal(t, 500*time.Microsecond, cfg.Stagger.Duration)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_TOML(t *testing.T) {
	path := writeFile(t, "lazy.toml", `
read_duration = 2
write_duration = 2
delete_duration = 1
files = 4
max_concurrent_users = 3
wait_timeout = 5
stagger = "1ms"
`)

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, 4, cfg.ResourceCount)
	assert.Equal(t, 3, cfg.MaxConcurrentUsers)
	assert.Equal(t, time.Millisecond, cfg.Stagger.Duration)
	assert.Equal(t, time.Second, cfg.Tick.Duration)
}

func TestLoadConfig_UnknownField_Errors(t *testing.T) {
	// Typos must surface in both formats.
	yamlPath := writeFile(t, "typo.yaml", "fils: 3\n")
	_, err := LoadConfig(yamlPath)
	assert.Error(t, err)

	tomlPath := writeFile(t, "typo.toml", "fils = 3\n")
	_, err = LoadConfig(tomlPath)
	assert.Error(t, err)
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, "lazy.json", "{}")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
