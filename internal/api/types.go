package api

import (
	"time"

	"mediabutler/internal/store"
)

// ErrorBody is the JSON error envelope every failing endpoint returns.
type ErrorBody struct {
	Kind            string   `json:"kind"`
	Message         string   `json:"message"`
	ResolutionSteps []string `json:"resolution_steps,omitempty"`
}

// ErrorResponse wraps ErrorBody.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// FileView is the wire shape of one tracked file.
type FileView struct {
	Hash              string     `json:"hash"`
	OriginalPath      string     `json:"original_path"`
	FileName          string     `json:"file_name"`
	FileSize          int64      `json:"file_size"`
	Status            string     `json:"status"`
	SuggestedCategory string     `json:"suggested_category,omitempty"`
	Confidence        *float64   `json:"confidence,omitempty"`
	Category          string     `json:"category,omitempty"`
	TargetPath        string     `json:"target_path,omitempty"`
	MovedToPath       string     `json:"moved_to_path,omitempty"`
	MovedAt           *time.Time `json:"moved_at,omitempty"`
	RetryCount        int        `json:"retry_count"`
	LastError         string     `json:"last_error,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// FromTrackedFile converts a store row into its wire shape.
func FromTrackedFile(file *store.TrackedFile) FileView {
	return FileView{
		Hash:              file.Hash,
		OriginalPath:      file.OriginalPath,
		FileName:          file.FileName,
		FileSize:          file.FileSize,
		Status:            string(file.Status),
		SuggestedCategory: file.SuggestedCategory,
		Confidence:        file.Confidence,
		Category:          file.Category,
		TargetPath:        file.TargetPath,
		MovedToPath:       file.MovedToPath,
		MovedAt:           file.MovedAt,
		RetryCount:        file.RetryCount,
		LastError:         file.LastError,
		CreatedAt:         file.CreatedAt,
		UpdatedAt:         file.UpdatedAt,
	}
}

// FileListResponse is the paginated list payload.
type FileListResponse struct {
	Files []FileView `json:"files"`
	Total int        `json:"total"`
	Skip  int        `json:"skip"`
	Take  int        `json:"take"`
}

// LogView is the wire shape of one processing log line.
type LogView struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FileDetailResponse carries a file plus its processing history.
type FileDetailResponse struct {
	File FileView  `json:"file"`
	Logs []LogView `json:"logs"`
}

// RegisterRequest asks the daemon to track a file by path.
type RegisterRequest struct {
	Path string `json:"path"`
}

// ConfirmRequest accepts a category for a classified file.
type ConfirmRequest struct {
	Category string `json:"category"`
}

// OrganizeRequest moves a file, optionally overriding the category.
type OrganizeRequest struct {
	Category string `json:"category,omitempty"`
}

// DeleteRequest soft-deletes a file with a reason.
type DeleteRequest struct {
	Reason string `json:"reason,omitempty"`
}

// PreviewResponse is the dry-run view of an organize.
type PreviewResponse struct {
	TargetPath     string   `json:"target_path"`
	IsSafe         bool     `json:"is_safe"`
	SafetyIssues   []string `json:"safety_issues,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
	Siblings       []string `json:"siblings,omitempty"`
	RequiredBytes  uint64   `json:"required_bytes"`
	AvailableBytes uint64   `json:"available_bytes"`
}

// StatusResponse is the daemon health snapshot.
type StatusResponse struct {
	Running          bool           `json:"running"`
	Stats            map[string]int `json:"files_by_status"`
	QueueDepth       int            `json:"queue_depth"`
	QueueCapacity    int            `json:"queue_capacity"`
	JobsInFlight     int            `json:"jobs_in_flight"`
	JobsCompleted    int64          `json:"jobs_completed"`
	JobsFailed       int64          `json:"jobs_failed"`
	AutoThreshold    float64        `json:"auto_threshold"`
	SuggestThreshold float64        `json:"suggest_threshold"`
}

// CategoriesResponse lists the known categories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// BatchSubmitResponse returns the identifier of an accepted batch.
type BatchSubmitResponse struct {
	BatchID string `json:"batch_id"`
}
