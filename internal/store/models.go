package store

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a tracked file.
type Status string

const (
	StatusNew         Status = "new"
	StatusProcessing  Status = "processing"
	StatusClassified  Status = "classified"
	StatusReadyToMove Status = "ready_to_move"
	StatusMoving      Status = "moving"
	StatusMoved       Status = "moved"
	StatusError       Status = "error"
	StatusRetry       Status = "retry"
	StatusIgnored     Status = "ignored"
)

var allStatuses = []Status{
	StatusNew,
	StatusProcessing,
	StatusClassified,
	StatusReadyToMove,
	StatusMoving,
	StatusMoved,
	StatusError,
	StatusRetry,
	StatusIgnored,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// allowedTransitions is the state machine graph. Any transition not listed
// here is illegal and rejected by the file service.
var allowedTransitions = map[Status][]Status{
	StatusNew:         {StatusProcessing, StatusClassified, StatusIgnored},
	StatusProcessing:  {StatusClassified, StatusRetry, StatusError, StatusIgnored},
	StatusClassified:  {StatusReadyToMove, StatusRetry, StatusError, StatusIgnored},
	StatusReadyToMove: {StatusMoving, StatusRetry, StatusError, StatusIgnored},
	StatusMoving:      {StatusMoved, StatusRetry, StatusError, StatusIgnored},
	StatusRetry:       {StatusProcessing, StatusReadyToMove, StatusRetry, StatusNew, StatusError, StatusIgnored},
	StatusError:       {StatusNew, StatusIgnored},
	StatusMoved:       {},
	StatusIgnored:     {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Audit carries the fields every entity shares. CreatedAt and UpdatedAt are
// stamped by the store on commit; Active implements soft deletion.
type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Note      string
	Active    bool
}

// TrackedFile is one discovered media file moving through the pipeline.
// Hash is the immutable identity (SHA-256 of content, 64 hex chars).
type TrackedFile struct {
	Hash         string
	OriginalPath string
	FileName     string
	FileSize     int64
	Status       Status

	SuggestedCategory string
	Confidence        *float64
	ClassifiedAt      *time.Time

	Category   string
	TargetPath string

	MovedToPath string
	MovedAt     *time.Time

	RetryCount  int
	LastError   string
	LastErrorAt *time.Time

	Audit
}

// LogLevel grades processing log entries.
type LogLevel string

const (
	LogInfo  LogLevel = "INFO"
	LogWarn  LogLevel = "WARN"
	LogError LogLevel = "ERROR"
)

// ProcessingLog is one append-only audit record tied to a tracked file.
type ProcessingLog struct {
	ID          int64
	FileHash    string
	Level       LogLevel
	Category    string
	Message     string
	DetailsJSON string
	DurationMS  int64
	CreatedAt   time.Time
}

// RollbackPoint records enough of a completed move to revert it.
type RollbackPoint struct {
	ID            string
	FileHash      string
	OperationType string
	OriginalPath  string
	TargetPath    string
	Info          string
	CreatedAt     time.Time
	Active        bool
}

// OperationMove is the operation type recorded for file moves.
const OperationMove = "MOVE"

// HealthSummary describes aggregated tracked-file counts per key lifecycle states.
type HealthSummary struct {
	Total      int
	New        int
	Processing int
	AwaitingOK int
	Moved      int
	Errored    int
}
