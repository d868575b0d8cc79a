package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateClassification(); err != nil {
		return err
	}
	if err := c.validateProcessing(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryRoot) == "" {
		return errors.New("paths.library_root must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if len(c.Discovery.FileExtensions) == 0 {
		return errors.New("discovery.file_extensions must list at least one extension")
	}
	if c.Discovery.MinFileSizeMB < 0 {
		return errors.New("discovery.min_file_size_mb must not be negative")
	}
	for _, pattern := range c.Discovery.ExcludePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("discovery.exclude_patterns: invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}

func (c *Config) validateClassification() error {
	if c.Classification.AutoThreshold < 0 || c.Classification.AutoThreshold > 1 {
		return errors.New("classification.auto_threshold must be between 0 and 1")
	}
	if c.Classification.SuggestThreshold < 0 || c.Classification.SuggestThreshold > 1 {
		return errors.New("classification.suggest_threshold must be between 0 and 1")
	}
	if c.Classification.SuggestThreshold > c.Classification.AutoThreshold {
		return errors.New("classification.suggest_threshold must not exceed classification.auto_threshold")
	}
	if c.Classification.MaxClassificationMS <= 0 {
		return errors.New("classification.max_classification_ms must be positive")
	}
	if c.Classification.MaxAlternatives < 0 {
		return errors.New("classification.max_alternatives must not be negative")
	}
	return nil
}

func (c *Config) validateProcessing() error {
	if err := ensurePositiveMap(map[string]int{
		"processing.max_retry":                c.Processing.MaxRetry,
		"processing.queue_capacity":           c.Processing.QueueCapacity,
		"processing.worker_count":             c.Processing.WorkerCount,
		"processing.max_batch_size":           c.Processing.MaxBatchSize,
		"processing.max_batch_concurrency":    c.Processing.MaxBatchConcurrency,
		"processing.shutdown_timeout_seconds": c.Processing.ShutdownTimeoutSeconds,
	}); err != nil {
		return err
	}
	for _, delay := range c.Processing.RetryDelaysMS {
		if delay < 0 {
			return errors.New("processing.retry_delays_ms must not contain negative values")
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
