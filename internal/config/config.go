package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	LibraryRoot   string   `toml:"library_root"`
	WatchFolders  []string `toml:"watch_folders"`
	PendingReview string   `toml:"pending_review"`
	ModelsPath    string   `toml:"models_path"`
	DataDir       string   `toml:"data_dir"`
	LogDir        string   `toml:"log_dir"`
	APIBind       string   `toml:"api_bind"`
	SocketPath    string   `toml:"socket_path"`
}

// Discovery contains configuration for filesystem discovery of new media.
type Discovery struct {
	FileExtensions      []string `toml:"file_extensions"`
	ExcludePatterns     []string `toml:"exclude_patterns"`
	MinFileSizeMB       int      `toml:"min_file_size_mb"`
	DebounceSeconds     int      `toml:"debounce_seconds"`
	ScanIntervalMinutes int      `toml:"scan_interval_minutes"`
	MaxConcurrentScans  int      `toml:"max_concurrent_scans"`
	EnableEventWatcher  bool     `toml:"enable_event_watcher"`
}

// Classification contains confidence thresholds and classifier limits.
type Classification struct {
	AutoThreshold       float64 `toml:"auto_threshold"`
	SuggestThreshold    float64 `toml:"suggest_threshold"`
	MaxClassificationMS int     `toml:"max_classification_ms"`
	MaxAlternatives     int     `toml:"max_alternatives"`
}

// Processing contains retry and queue sizing configuration.
type Processing struct {
	MaxRetry               int   `toml:"max_retry"`
	RetryDelaysMS          []int `toml:"retry_delays_ms"`
	QueueCapacity          int   `toml:"queue_capacity"`
	WorkerCount            int   `toml:"worker_count"`
	MaxBatchSize           int   `toml:"max_batch_size"`
	MaxBatchConcurrency    int   `toml:"max_batch_concurrency"`
	ShutdownTimeoutSeconds int   `toml:"shutdown_timeout_seconds"`
}

// Resources contains memory guard configuration for constrained hardware.
type Resources struct {
	MemoryThresholdMB int `toml:"memory_threshold_mb"`
	AutoGCTriggerMB   int `toml:"auto_gc_trigger_mb"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Classification bool   `toml:"classification"`
	Organization   bool   `toml:"organization"`
	Batches        bool   `toml:"batches"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for MediaButler.
//
// Configuration sections by subsystem:
//   - Paths: library root, watch folders, data directory, API bind address
//   - Discovery: extension/size filters, debounce, scan cadence
//   - Classification: confidence thresholds and classifier timeout
//   - Processing: retry policy, queue capacity, worker and batch sizing
//   - Resources: memory guard thresholds for small hosts
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths          Paths          `toml:"paths"`
	Discovery      Discovery      `toml:"discovery"`
	Classification Classification `toml:"classification"`
	Processing     Processing     `toml:"processing"`
	Resources      Resources      `toml:"resources"`
	Notifications  Notifications  `toml:"notifications"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/mediabutler/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("mediabutler.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// LibraryRoot is created on a best-effort basis so the daemon can run when
// external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.PendingReview} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.LibraryRoot) != "" {
		// Best-effort to avoid failing config load when storage is offline.
		_ = os.MkdirAll(c.Paths.LibraryRoot, 0o755)
	}
	return nil
}

// DatabasePath returns the location of the embedded SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "mediabutler.db")
}

// LockFilePath returns the daemon lock file location.
func (c *Config) LockFilePath() string {
	return filepath.Join(c.Paths.DataDir, "mediabutler.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
