package recovery

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for the error kinds recognized across the pipeline.
// Wrap tags an error with one of these so callers can branch with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrConflict          = errors.New("conflict")
	ErrPermission        = errors.New("permission denied")
	ErrPath              = errors.New("path error")
	ErrSpace             = errors.New("insufficient space")
	ErrTransient         = errors.New("transient failure")
	ErrClassifierTimeout = errors.New("classifier timeout")
	ErrUnavailable       = errors.New("service unavailable")
	ErrUnknown           = errors.New("unknown error")
)

// Kind is the machine-readable error category carried on API responses,
// processing logs, and events.
type Kind string

const (
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindIllegalTransition Kind = "ILLEGAL_TRANSITION"
	KindConflict          Kind = "CONFLICT"
	KindPermission        Kind = "PERMISSION"
	KindPath              Kind = "PATH"
	KindSpace             Kind = "SPACE"
	KindTransient         Kind = "TRANSIENT"
	KindClassifierTimeout Kind = "CLASSIFIER_TIMEOUT"
	KindUnavailable       Kind = "UNAVAILABLE"
	KindUnknown           Kind = "UNKNOWN"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrUnknown
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps an error to its Kind using the sentinel markers.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrIllegalTransition):
		return KindIllegalTransition
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrPermission):
		return KindPermission
	case errors.Is(err, ErrPath):
		return KindPath
	case errors.Is(err, ErrSpace):
		return KindSpace
	case errors.Is(err, ErrClassifierTimeout):
		return KindClassifierTimeout
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	default:
		return KindUnknown
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "operation failure"
	}
	return strings.Join(parts, ": ")
}
