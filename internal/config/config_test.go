package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("file at %s should not exist", path)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8765" {
		t.Fatalf("api_bind = %s", cfg.Paths.APIBind)
	}
	if cfg.Discovery.MinFileSizeMB != 50 {
		t.Fatalf("min_file_size_mb = %d", cfg.Discovery.MinFileSizeMB)
	}
	if cfg.Classification.AutoThreshold != 0.85 || cfg.Classification.SuggestThreshold != 0.50 {
		t.Fatalf("thresholds = %v/%v", cfg.Classification.AutoThreshold, cfg.Classification.SuggestThreshold)
	}
	if !cfg.Discovery.EnableEventWatcher {
		t.Fatal("event watcher should default on")
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
library_root = "~/library"
watch_folders = ["~/downloads", " ", "~/incoming"]

[discovery]
file_extensions = ["MKV", "mp4", " .avi "]

[logging]
format = "JSON"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("config file should be found")
	}
	if cfg.Paths.LibraryRoot != filepath.Join(home, "library") {
		t.Fatalf("library_root = %s", cfg.Paths.LibraryRoot)
	}
	if len(cfg.Paths.WatchFolders) != 2 {
		t.Fatalf("watch_folders = %v", cfg.Paths.WatchFolders)
	}
	for _, folder := range cfg.Paths.WatchFolders {
		if !filepath.IsAbs(folder) {
			t.Fatalf("watch folder not absolute: %s", folder)
		}
	}
	want := []string{".mkv", ".mp4", ".avi"}
	if len(cfg.Discovery.FileExtensions) != len(want) {
		t.Fatalf("extensions = %v", cfg.Discovery.FileExtensions)
	}
	for i, ext := range want {
		if cfg.Discovery.FileExtensions[i] != ext {
			t.Fatalf("extensions = %v, want %v", cfg.Discovery.FileExtensions, want)
		}
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging format = %s", cfg.Logging.Format)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty library root", func(c *Config) { c.Paths.LibraryRoot = "" }, "library_root"},
		{"no extensions", func(c *Config) { c.Discovery.FileExtensions = nil }, "file_extensions"},
		{"bad exclude pattern", func(c *Config) { c.Discovery.ExcludePatterns = []string{"("} }, "exclude_patterns"},
		{"threshold out of range", func(c *Config) { c.Classification.AutoThreshold = 1.5 }, "auto_threshold"},
		{"suggest above auto", func(c *Config) {
			c.Classification.SuggestThreshold = 0.9
			c.Classification.AutoThreshold = 0.8
		}, "suggest_threshold"},
		{"zero workers", func(c *Config) { c.Processing.WorkerCount = -1 }, "worker_count"},
		{"negative retry delay", func(c *Config) { c.Processing.RetryDelaysMS = []int{-5} }, "retry_delays_ms"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %s", err, tc.want)
			}
		})
	}
}

func TestExpandPathTilde(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/media/library")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "media", "library") {
		t.Fatalf("expanded = %s", got)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = "/var/lib/mediabutler"
	if cfg.DatabasePath() != "/var/lib/mediabutler/mediabutler.db" {
		t.Fatalf("database path = %s", cfg.DatabasePath())
	}
	if cfg.LockFilePath() != "/var/lib/mediabutler/mediabutler.lock" {
		t.Fatalf("lock path = %s", cfg.LockFilePath())
	}
}

func TestCreateSampleParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist")
	}
	if cfg.Paths.DataDir == "" {
		t.Fatal("sample config lost its defaults")
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.PendingReview = filepath.Join(base, "pending")
	cfg.Paths.LibraryRoot = filepath.Join(base, "library")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.PendingReview, cfg.Paths.LibraryRoot} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %s missing: %v", dir, err)
		}
	}
}
