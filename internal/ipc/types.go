package ipc

import "time"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is the daemon snapshot returned over the socket.
type StatusResponse struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	DatabasePath  string         `json:"database_path"`
	LockPath      string         `json:"lock_path"`
	APIBind       string         `json:"api_bind"`
	FilesByStatus map[string]int `json:"files_by_status"`
	QueueDepth    int            `json:"queue_depth"`
	QueueCapacity int            `json:"queue_capacity"`
	JobsInFlight  int            `json:"jobs_in_flight"`
	JobsCompleted int64          `json:"jobs_completed"`
	JobsFailed    int64          `json:"jobs_failed"`
}

// StopRequest asks the daemon to shut down.
type StopRequest struct{}

// StopResponse confirms shutdown.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// ReloadLibraryRequest rebuilds the classifier corpus.
type ReloadLibraryRequest struct{}

// ReloadLibraryResponse reports how many titles the corpus now holds.
type ReloadLibraryResponse struct {
	Titles int `json:"titles"`
}

// RollbackRequest undoes the newest move recorded for a file.
type RollbackRequest struct {
	FileHash string `json:"file_hash"`
	Force    bool   `json:"force"`
}

// RollbackResponse confirms the rollback.
type RollbackResponse struct {
	Restored bool `json:"restored"`
}

// CleanupRollbackRequest drops rollback points older than MaxAgeHours.
type CleanupRollbackRequest struct {
	MaxAgeHours int `json:"max_age_hours"`
}

// CleanupRollbackResponse reports how many points were removed.
type CleanupRollbackResponse struct {
	Removed int64 `json:"removed"`
}

// FileSummary mirrors a tracked file for control-plane callers.
type FileSummary struct {
	Hash              string     `json:"hash"`
	FileName          string     `json:"file_name"`
	Status            string     `json:"status"`
	SuggestedCategory string     `json:"suggested_category,omitempty"`
	Confidence        *float64   `json:"confidence,omitempty"`
	Category          string     `json:"category,omitempty"`
	TargetPath        string     `json:"target_path,omitempty"`
	MovedToPath       string     `json:"moved_to_path,omitempty"`
	SizeBytes         int64      `json:"size_bytes"`
	RetryCount        int        `json:"retry_count"`
	LastError         string     `json:"last_error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	MovedAt           *time.Time `json:"moved_at,omitempty"`
}

// LogEntry is one processing-log line attached to a file.
type LogEntry struct {
	Level      string    `json:"level"`
	Category   string    `json:"category"`
	Message    string    `json:"message"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListFilesRequest pages through tracked files, optionally filtered by status.
type ListFilesRequest struct {
	Statuses []string `json:"statuses,omitempty"`
	Category string   `json:"category,omitempty"`
	Skip     int      `json:"skip"`
	Take     int      `json:"take"`
}

// ListFilesResponse is one page plus the total row count for the filter.
type ListFilesResponse struct {
	Files []FileSummary `json:"files"`
	Total int           `json:"total"`
}

// ListPendingRequest lists files still traveling the pipeline.
type ListPendingRequest struct{}

// ListPendingResponse carries the pending files oldest first.
type ListPendingResponse struct {
	Files []FileSummary `json:"files"`
}

// SearchFilesRequest matches file names against an SQL-like pattern.
type SearchFilesRequest struct {
	Pattern string `json:"pattern"`
}

// SearchFilesResponse lists the matches oldest first.
type SearchFilesResponse struct {
	Files []FileSummary `json:"files"`
}

// ShowFileRequest fetches one file with its processing history.
type ShowFileRequest struct {
	Hash string `json:"hash"`
}

// ShowFileResponse carries the file and its log trail.
type ShowFileResponse struct {
	File FileSummary `json:"file"`
	Logs []LogEntry  `json:"logs"`
}

// ConfirmRequest locks in a category for a classified file.
type ConfirmRequest struct {
	Hash     string `json:"hash"`
	Category string `json:"category"`
}

// IgnoreRequest excludes a file from processing.
type IgnoreRequest struct {
	Hash string `json:"hash"`
}

// ResetFileRequest returns an errored file to the discovery state.
type ResetFileRequest struct {
	Hash string `json:"hash"`
}

// FileResponse returns the file after a state change.
type FileResponse struct {
	File FileSummary `json:"file"`
}

// OrganizeRequest queues a move for one file.
type OrganizeRequest struct {
	Hash     string `json:"hash"`
	Category string `json:"category,omitempty"`
}

// OrganizeResponse identifies the queued job.
type OrganizeResponse struct {
	JobID string `json:"job_id"`
}

// PreviewRequest dry-runs a move without touching the filesystem.
type PreviewRequest struct {
	Hash     string `json:"hash"`
	Category string `json:"category,omitempty"`
}

// PreviewResponse describes what the move would do.
type PreviewResponse struct {
	TargetPath     string   `json:"target_path"`
	IsSafe         bool     `json:"is_safe"`
	SafetyIssues   []string `json:"safety_issues,omitempty"`
	Siblings       []string `json:"siblings,omitempty"`
	RequiredBytes  uint64   `json:"required_bytes"`
	AvailableBytes uint64   `json:"available_bytes"`
}

// BatchFile is one file inside a batch submission.
type BatchFile struct {
	Hash     string `json:"hash"`
	Category string `json:"category,omitempty"`
}

// BatchSubmitRequest validates and queues a batch of moves.
type BatchSubmitRequest struct {
	Files []BatchFile `json:"files"`
}

// BatchSubmitResponse identifies the accepted batch.
type BatchSubmitResponse struct {
	BatchID string `json:"batch_id"`
}

// BatchSummary is a point-in-time view of a batch.
type BatchSummary struct {
	ID                 string            `json:"id"`
	State              string            `json:"state"`
	Total              int               `json:"total"`
	Completed          int               `json:"completed"`
	Failed             int               `json:"failed"`
	CancelledRemaining int               `json:"cancelled_remaining,omitempty"`
	Errors             map[string]string `json:"errors,omitempty"`
	SubmittedAt        time.Time         `json:"submitted_at"`
	FinishedAt         *time.Time        `json:"finished_at,omitempty"`
}

// BatchStatusRequest fetches one batch by id.
type BatchStatusRequest struct {
	ID string `json:"id"`
}

// BatchStatusResponse carries the batch snapshot.
type BatchStatusResponse struct {
	Batch BatchSummary `json:"batch"`
}

// BatchListRequest lists known batches newest first.
type BatchListRequest struct{}

// BatchListResponse carries the batch snapshots.
type BatchListResponse struct {
	Batches []BatchSummary `json:"batches"`
}

// BatchCancelRequest stops dispatching a running or pending batch.
type BatchCancelRequest struct {
	ID string `json:"id"`
}

// BatchCancelResponse confirms the cancellation.
type BatchCancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}
