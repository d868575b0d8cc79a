package classifier

import (
	"context"
	"time"

	"mediabutler/internal/recovery"
)

// Unknown is the category returned when no candidate clears the floor.
const Unknown = "UNKNOWN"

// Alternative is one ranked candidate beyond the best match.
type Alternative struct {
	Category   string
	Confidence float64
}

// Result is the outcome of one classification call.
type Result struct {
	Category     string
	Confidence   float64
	Alternatives []Alternative
}

// Classifier maps filename tokens to a category suggestion.
type Classifier interface {
	Classify(ctx context.Context, tokens []string, filename string) (Result, error)
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, tokens []string, filename string) (Result, error)

func (f Func) Classify(ctx context.Context, tokens []string, filename string) (Result, error) {
	return f(ctx, tokens, filename)
}

// Static always answers with the same result. Useful for tests and for
// manual-only deployments where every file goes through user confirmation.
type Static struct {
	Result Result
}

func (s Static) Classify(context.Context, []string, string) (Result, error) {
	return s.Result, nil
}

// NewUnknown returns a classifier that reports insufficient evidence for
// every file.
func NewUnknown() Classifier {
	return Static{Result: Result{Category: Unknown}}
}

type timeoutClassifier struct {
	inner   Classifier
	timeout time.Duration
}

// WithTimeout bounds every Classify call. When the inner classifier misses
// the deadline its eventual result is discarded and the call fails with a
// classifier-timeout error.
func WithTimeout(inner Classifier, timeout time.Duration) Classifier {
	if timeout <= 0 {
		return inner
	}
	return &timeoutClassifier{inner: inner, timeout: timeout}
}

func (t *timeoutClassifier) Classify(ctx context.Context, tokens []string, filename string) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type outcome struct {
		result Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := t.inner.Classify(callCtx, tokens, filename)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && callCtx.Err() == context.DeadlineExceeded {
			return Result{}, timeoutError(filename, out.err)
		}
		return out.result, out.err
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, timeoutError(filename, callCtx.Err())
	}
}

func timeoutError(filename string, cause error) error {
	return recovery.Wrap(recovery.ErrClassifierTimeout, "classifier", "classify", "classification deadline exceeded for "+filename, cause)
}
