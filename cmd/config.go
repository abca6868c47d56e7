package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/anamnesis-pool/anamnesis-analyze/anam"
)

// ExportConfig selects where a sweep's (contention, H_norm) series is written.
type ExportConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"`
}

// Config represents the optional analysis YAML file.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	NumSlots int          `yaml:"num_slots"`
	Levels   []int        `yaml:"levels"`
	LevelDir string       `yaml:"level_dir"`
	Patterns []string     `yaml:"patterns"`
	Jobs     int          `yaml:"jobs"`
	Export   ExportConfig `yaml:"export"`
}

// DefaultConfig returns the settings used when neither a file nor flags override them.
func DefaultConfig() Config {
	return Config{
		NumSlots: anam.DefaultNumSlots,
		Levels:   append([]int(nil), anam.DefaultLevels...),
		LevelDir: anam.DefaultLevelDir,
		Export:   ExportConfig{Format: string(anam.FormatYAML)},
	}
}

// LoadConfig parses path over DefaultConfig with strict field checking:
// a misspelled key is an error, not a silently ignored setting.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the analyzer cannot act on. A num_slots below 2
// is accepted (entropy degrades to 0) so misconfigured runs stay diagnosable.
func (c Config) Validate() error {
	for _, l := range c.Levels {
		if l <= 0 {
			return fmt.Errorf("contention level must be positive, got %d", l)
		}
	}
	if !strings.Contains(c.LevelDir, "%d") || strings.Contains(fmt.Sprintf(c.LevelDir, 1), "%!") {
		return fmt.Errorf("level_dir %q must contain exactly one %%d for the contention level", c.LevelDir)
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", c.Jobs)
	}
	if c.Export.Format != "" && !anam.IsValidExportFormat(c.Export.Format) {
		return fmt.Errorf("unknown export format %q (want yaml, msgpack or csv)", c.Export.Format)
	}
	return nil
}
