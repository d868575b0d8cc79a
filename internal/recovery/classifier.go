package recovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"
	"time"
)

// ErrorContext carries everything the classifier needs about a failed operation.
type ErrorContext struct {
	Err            error
	OperationType  string
	SourcePath     string
	TargetPath     string
	FileSize       int64
	AvailableSpace int64
	FileHash       string
	RetryAttempts  int
}

// Classification is the classifier's verdict on a failure.
type Classification struct {
	Kind             Kind
	CanRetry         bool
	RequiresUser     bool
	RecommendedDelay time.Duration
	MaxRetryAttempts int
	Confidence       float64
	UserMessage      string
	TechnicalDetails string
	ResolutionSteps  []string
}

// RecoveryAction tells the caller what to do with a classified failure.
type RecoveryAction string

const (
	ActionAutomaticRetry  RecoveryAction = "automatic_retry"
	ActionWaitForUser     RecoveryAction = "wait_for_user"
	ActionLogAndFail      RecoveryAction = "log_and_fail"
	ActionEscalateToAdmin RecoveryAction = "escalate_to_admin"
	ActionSkip            RecoveryAction = "skip"
)

// Classifier maps failures to recovery policy. Retry delays come from
// configuration so the backoff schedule matches the queue workers.
type Classifier struct {
	retryDelays []time.Duration
	maxRetry    int
}

// NewClassifier builds a Classifier with the configured backoff schedule.
func NewClassifier(retryDelaysMS []int, maxRetry int) *Classifier {
	delays := make([]time.Duration, 0, len(retryDelaysMS))
	for _, ms := range retryDelaysMS {
		delays = append(delays, time.Duration(ms)*time.Millisecond)
	}
	if len(delays) == 0 {
		delays = []time.Duration{5 * time.Second, 30 * time.Second, time.Minute}
	}
	if maxRetry <= 0 {
		maxRetry = 3
	}
	return &Classifier{retryDelays: delays, maxRetry: maxRetry}
}

// Classify inspects the failed operation and returns the recovery policy.
func (c *Classifier) Classify(ectx ErrorContext) Classification {
	kind := c.detectKind(ectx)
	cls := Classification{
		Kind:             kind,
		Confidence:       confidenceFor(kind),
		TechnicalDetails: technicalDetails(ectx),
	}

	switch kind {
	case KindPermission:
		cls.RequiresUser = true
		cls.UserMessage = "Access was denied while touching the file or its destination."
		cls.ResolutionSteps = []string{
			"Check ownership and permissions on the source and target directories",
			"Verify the daemon user can write to the library root",
		}
	case KindPath:
		cls.RequiresUser = true
		cls.UserMessage = "A path involved in the operation is missing or too long."
		cls.ResolutionSteps = []string{
			"Confirm the source file still exists",
			"Shorten the category or filename if the target path exceeds limits",
		}
	case KindSpace:
		cls.RequiresUser = true
		cls.UserMessage = "Not enough free space on the target volume."
		cls.ResolutionSteps = []string{
			"Free space on the library volume or choose a different library root",
		}
		if ectx.FileSize > 0 && ectx.AvailableSpace > 0 {
			cls.TechnicalDetails = fmt.Sprintf("required %d bytes, available %d bytes", ectx.FileSize, ectx.AvailableSpace)
		}
	case KindClassifierTimeout:
		cls.CanRetry = true
		cls.RecommendedDelay = c.retryDelays[0]
		cls.MaxRetryAttempts = c.maxRetry
		cls.UserMessage = "The classifier did not answer in time; the file will be retried."
	case KindTransient:
		cls.CanRetry = true
		cls.RecommendedDelay = c.delayForAttempt(ectx.RetryAttempts)
		cls.MaxRetryAttempts = c.maxRetry
		cls.UserMessage = "A temporary error occurred; the operation will be retried."
	default:
		cls.Kind = KindUnknown
		cls.RequiresUser = true
		cls.UserMessage = "An unexpected error occurred."
		cls.ResolutionSteps = []string{
			"Inspect the processing log for this file",
			"Reset the file to retry once the cause is addressed",
		}
	}
	return cls
}

// Action derives the recovery action from a classification and the retry
// budget already consumed.
func (c *Classifier) Action(cls Classification, attempts int) RecoveryAction {
	if cls.CanRetry {
		if attempts < cls.MaxRetryAttempts {
			return ActionAutomaticRetry
		}
		return ActionLogAndFail
	}
	if cls.RequiresUser {
		return ActionWaitForUser
	}
	return ActionLogAndFail
}

func (c *Classifier) delayForAttempt(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(c.retryDelays) {
		return c.retryDelays[len(c.retryDelays)-1]
	}
	return c.retryDelays[attempt]
}

func (c *Classifier) detectKind(ectx ErrorContext) Kind {
	err := ectx.Err
	if err == nil {
		return KindUnknown
	}
	if kind := KindOf(err); kind != KindUnknown {
		return kind
	}

	switch {
	case errors.Is(err, fs.ErrPermission) || os.IsPermission(err):
		return KindPermission
	case errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err):
		return KindPath
	case errors.Is(err, syscall.ENOSPC) || errors.Is(err, syscall.EDQUOT):
		return KindSpace
	case errors.Is(err, syscall.ENAMETOOLONG):
		return KindPath
	case errors.Is(err, syscall.EBUSY), errors.Is(err, syscall.EAGAIN),
		errors.Is(err, syscall.EINTR), errors.Is(err, syscall.EIO):
		return KindTransient
	case errors.Is(err, context.DeadlineExceeded):
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no space left"), strings.Contains(msg, "disk full"):
		return KindSpace
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "access is denied"):
		return KindPermission
	case strings.Contains(msg, "file name too long"), strings.Contains(msg, "no such file"):
		return KindPath
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "temporarily"),
		strings.Contains(msg, "in use"), strings.Contains(msg, "i/o error"):
		return KindTransient
	}
	return KindUnknown
}

func confidenceFor(kind Kind) float64 {
	switch kind {
	case KindUnknown:
		return 0.3
	case KindTransient:
		return 0.7
	default:
		return 0.9
	}
}

func technicalDetails(ectx ErrorContext) string {
	if ectx.Err == nil {
		return ""
	}
	parts := []string{ectx.Err.Error()}
	if ectx.OperationType != "" {
		parts = append(parts, "operation="+ectx.OperationType)
	}
	if ectx.SourcePath != "" {
		parts = append(parts, "source="+ectx.SourcePath)
	}
	if ectx.TargetPath != "" {
		parts = append(parts, "target="+ectx.TargetPath)
	}
	return strings.Join(parts, " ")
}
