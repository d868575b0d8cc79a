package config

const (
	defaultLibraryRoot         = "~/library"
	defaultPendingReview       = "~/.local/share/mediabutler/pending"
	defaultModelsPath          = "~/.local/share/mediabutler/models"
	defaultDataDir             = "~/.local/share/mediabutler"
	defaultLogDir              = "~/.local/share/mediabutler/logs"
	defaultAPIBind             = "127.0.0.1:8765"
	defaultSocketPath          = "~/.local/share/mediabutler/mediabutler.sock"
	defaultMinFileSizeMB       = 50
	defaultDebounceSeconds     = 3
	defaultScanIntervalMinutes = 5
	defaultMaxConcurrentScans  = 2
	defaultAutoThreshold       = 0.85
	defaultSuggestThreshold    = 0.50
	defaultMaxClassificationMS = 500
	defaultMaxAlternatives     = 3
	defaultMaxRetry            = 3
	defaultQueueCapacity       = 100
	defaultWorkerCount         = 2
	defaultMaxBatchSize        = 50
	defaultMaxBatchConcurrency = 2
	defaultShutdownTimeout     = 30
	defaultMemoryThresholdMB   = 300
	defaultAutoGCTriggerMB     = 250
	defaultNotifyTimeout       = 10
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryRoot:   defaultLibraryRoot,
			PendingReview: defaultPendingReview,
			ModelsPath:    defaultModelsPath,
			DataDir:       defaultDataDir,
			LogDir:        defaultLogDir,
			APIBind:       defaultAPIBind,
			SocketPath:    defaultSocketPath,
		},
		Discovery: Discovery{
			FileExtensions:      []string{".mkv", ".mp4", ".avi", ".m4v", ".ts"},
			ExcludePatterns:     []string{`\.part$`, `\.!qB$`, `(?i)sample`},
			MinFileSizeMB:       defaultMinFileSizeMB,
			DebounceSeconds:     defaultDebounceSeconds,
			ScanIntervalMinutes: defaultScanIntervalMinutes,
			MaxConcurrentScans:  defaultMaxConcurrentScans,
			EnableEventWatcher:  true,
		},
		Classification: Classification{
			AutoThreshold:       defaultAutoThreshold,
			SuggestThreshold:    defaultSuggestThreshold,
			MaxClassificationMS: defaultMaxClassificationMS,
			MaxAlternatives:     defaultMaxAlternatives,
		},
		Processing: Processing{
			MaxRetry:               defaultMaxRetry,
			RetryDelaysMS:          []int{5000, 30000, 60000},
			QueueCapacity:          defaultQueueCapacity,
			WorkerCount:            defaultWorkerCount,
			MaxBatchSize:           defaultMaxBatchSize,
			MaxBatchConcurrency:    defaultMaxBatchConcurrency,
			ShutdownTimeoutSeconds: defaultShutdownTimeout,
		},
		Resources: Resources{
			MemoryThresholdMB: defaultMemoryThresholdMB,
			AutoGCTriggerMB:   defaultAutoGCTriggerMB,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Classification: true,
			Organization:   true,
			Batches:        true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
