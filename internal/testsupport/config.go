package testsupport

import (
	"path/filepath"
	"testing"

	"newswire/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config rooted in unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.MediaDir = filepath.Join(base, "media")
	cfg.Paths.SourcesFile = filepath.Join(base, "sources.yaml")
	cfg.Paths.EnvFile = ""

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithThreshold overrides the significance threshold.
func WithThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.SignificanceThreshold = threshold
	}
}

// WithStrictRevision turns on strict checklist enforcement.
func WithStrictRevision() ConfigOption {
	return func(cfg *config.Config) {
		cfg.Revision.Strict = true
	}
}

// WithCuration overrides the highlight thresholds and window.
func WithCuration(curation config.Curation) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Curation = curation
	}
}
