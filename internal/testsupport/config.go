package testsupport

import (
	"path/filepath"
	"testing"

	"mediabutler/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryRoot = filepath.Join(base, "library")
	cfgVal.Paths.WatchFolders = []string{filepath.Join(base, "downloads")}
	cfgVal.Paths.PendingReview = filepath.Join(base, "review")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Paths.SocketPath = filepath.Join(base, "data", "mediabutler.sock")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWatchFolders overrides the watch folder list on the test config.
func WithWatchFolders(folders ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.WatchFolders = folders
	}
}

// WithMinFileSizeMB overrides the discovery size floor on the test config.
func WithMinFileSizeMB(sizeMB int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Discovery.MinFileSizeMB = sizeMB
	}
}

// WithThresholds overrides the classifier confidence thresholds.
func WithThresholds(auto, suggest float64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Classification.AutoThreshold = auto
		b.cfg.Classification.SuggestThreshold = suggest
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
