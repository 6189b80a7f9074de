// Package config loads the optional YAML file holding CLI defaults.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/graphsync/internal/logging"
)

// Config holds defaults for the graphsync commands. Command-line flags
// take precedence over every field.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// Format is the output format, text or json.
	Format string `yaml:"format"`

	// Journal is the SQLite journal path used by sync and replay.
	Journal string `yaml:"journal"`

	// Seed is the CUE seed file or directory used by sync.
	Seed string `yaml:"seed"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{LogLevel: "info", Format: "text"}
}

// Load reads path over the defaults. Unknown keys are rejected. Relative
// journal and seed paths are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Journal = resolve(dir, cfg.Journal)
	cfg.Seed = resolve(dir, cfg.Seed)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the enumerated fields.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format %q: must be text or json", c.Format)
	}
	return nil
}

func resolve(dir, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
