package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiscovery()
	c.normalizeProcessing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryRoot, err = expandPath(c.Paths.LibraryRoot); err != nil {
		return fmt.Errorf("paths.library_root: %w", err)
	}
	if c.Paths.PendingReview, err = expandPath(c.Paths.PendingReview); err != nil {
		return fmt.Errorf("paths.pending_review: %w", err)
	}
	if c.Paths.ModelsPath, err = expandPath(c.Paths.ModelsPath); err != nil {
		return fmt.Errorf("paths.models_path: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
		return fmt.Errorf("paths.socket_path: %w", err)
	}
	expanded := make([]string, 0, len(c.Paths.WatchFolders))
	for _, folder := range c.Paths.WatchFolders {
		if strings.TrimSpace(folder) == "" {
			continue
		}
		abs, err := expandPath(folder)
		if err != nil {
			return fmt.Errorf("paths.watch_folders: %w", err)
		}
		expanded = append(expanded, abs)
	}
	c.Paths.WatchFolders = expanded
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDiscovery() {
	normalized := make([]string, 0, len(c.Discovery.FileExtensions))
	for _, ext := range c.Discovery.FileExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	if len(normalized) > 0 {
		c.Discovery.FileExtensions = normalized
	}
	if c.Discovery.DebounceSeconds <= 0 {
		c.Discovery.DebounceSeconds = defaultDebounceSeconds
	}
	if c.Discovery.ScanIntervalMinutes <= 0 {
		c.Discovery.ScanIntervalMinutes = defaultScanIntervalMinutes
	}
	if c.Discovery.MaxConcurrentScans <= 0 {
		c.Discovery.MaxConcurrentScans = defaultMaxConcurrentScans
	}
}

func (c *Config) normalizeProcessing() {
	if c.Processing.MaxRetry <= 0 {
		c.Processing.MaxRetry = defaultMaxRetry
	}
	if len(c.Processing.RetryDelaysMS) == 0 {
		c.Processing.RetryDelaysMS = []int{5000, 30000, 60000}
	}
	if c.Processing.QueueCapacity <= 0 {
		c.Processing.QueueCapacity = defaultQueueCapacity
	}
	if c.Processing.WorkerCount <= 0 {
		c.Processing.WorkerCount = defaultWorkerCount
	}
	if c.Processing.MaxBatchSize <= 0 {
		c.Processing.MaxBatchSize = defaultMaxBatchSize
	}
	if c.Processing.MaxBatchConcurrency <= 0 {
		c.Processing.MaxBatchConcurrency = defaultMaxBatchConcurrency
	}
	if c.Processing.ShutdownTimeoutSeconds <= 0 {
		c.Processing.ShutdownTimeoutSeconds = defaultShutdownTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
