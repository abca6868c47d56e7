package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anamnesis-pool/anamnesis-analyze/anam"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "analysis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	// GIVEN a config that sets capacity and levels only
	path := writeConfig(t, "num_slots: 256\nlevels: [2, 4]\nexport:\n  path: out.msgpack\n  format: msgpack\n")

	// WHEN loaded
	cfg, err := LoadConfig(path)

	// THEN set keys win and the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.NumSlots)
	assert.Equal(t, []int{2, 4}, cfg.Levels)
	assert.Equal(t, anam.DefaultLevelDir, cfg.LevelDir)
	assert.Equal(t, "msgpack", cfg.Export.Format)
	assert.Equal(t, "out.msgpack", cfg.Export.Path)
}

func TestLoadConfig_UnknownKey_Rejected(t *testing.T) {
	// GIVEN a typo in a key name
	path := writeConfig(t, "num_slot: 256\n")

	// WHEN loaded
	_, err := LoadConfig(path)

	// THEN strict parsing reports it instead of ignoring it
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num_slot")
}

func TestLoadConfig_EmptyFile_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))

	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MissingFile_Error(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"tiny capacity is allowed", func(c *Config) { c.NumSlots = 1 }, false},
		{"zero level", func(c *Config) { c.Levels = []int{1, 0} }, true},
		{"negative jobs", func(c *Config) { c.Jobs = -1 }, true},
		{"custom level dir", func(c *Config) { c.LevelDir = "run-%d/traces" }, false},
		{"level dir without verb", func(c *Config) { c.LevelDir = "traces" }, true},
		{"level dir with two verbs", func(c *Config) { c.LevelDir = "c%d_%d" }, true},
		{"level dir with wrong verb", func(c *Config) { c.LevelDir = "traces_%s%d" }, true},
		{"bad export format", func(c *Config) { c.Export.Format = "png" }, true},
		{"empty export format", func(c *Config) { c.Export.Format = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfig_LevelsNotAliased(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Levels[0] = 99

	assert.Equal(t, 1, anam.DefaultLevels[0])
}

func TestLoadConfig_LevelDirWithoutVerb_Rejected(t *testing.T) {
	// GIVEN a level layout that cannot receive the contention
	path := writeConfig(t, "level_dir: traces\n")

	// WHEN loaded
	_, err := LoadConfig(path)

	// THEN it fails up front instead of skipping every level
	require.Error(t, err)
	assert.Contains(t, err.Error(), "level_dir")
}
