package organizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mediabutler/internal/events"
	"mediabutler/internal/files"
	"mediabutler/internal/fsx"
	"mediabutler/internal/logging"
	"mediabutler/internal/mover"
	"mediabutler/internal/paths"
	"mediabutler/internal/recovery"
	"mediabutler/internal/rollback"
	"mediabutler/internal/store"
)

// Organizer moves confirmed files to their library targets.
type Organizer struct {
	files    *files.Service
	mover    *mover.Mover
	builder  *paths.Builder
	rollback *rollback.Service
	recovery *recovery.Classifier
	fs       fsx.FileSystem
	sink     events.Sink
	logger   *slog.Logger
	clock    func() time.Time
}

// New wires an Organizer.
func New(
	fileService *files.Service,
	fileMover *mover.Mover,
	builder *paths.Builder,
	rollbackService *rollback.Service,
	errorClassifier *recovery.Classifier,
	fsys fsx.FileSystem,
	sink events.Sink,
	logger *slog.Logger,
) *Organizer {
	if sink == nil {
		sink = events.NopSink{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Organizer{
		files:    fileService,
		mover:    fileMover,
		builder:  builder,
		rollback: rollbackService,
		recovery: errorClassifier,
		fs:       fsys,
		sink:     sink,
		logger:   logging.NewComponentLogger(logger, "organizer"),
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Preview describes what an organize run would do.
type Preview struct {
	TargetPath     string
	Report         paths.Report
	IsSafe         bool
	SafetyIssues   []string
	Siblings       []string
	RequiredBytes  uint64
	AvailableBytes uint64
}

// Outcome is the result of one organize run. Recommendation is populated on
// failure with the classified recovery policy.
type Outcome struct {
	File           *store.TrackedFile
	Receipt        *mover.Receipt
	RollbackID     string
	DurationMS     int64
	Recommendation *recovery.Classification
	Action         recovery.RecoveryAction
}

// Preview validates an organize without mutating anything.
func (o *Organizer) Preview(ctx context.Context, hash, category string) (*Preview, error) {
	file, err := o.files.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	category = o.effectiveCategory(file, category)

	target, report, buildErr := o.buildTarget(file, category)
	preview := &Preview{TargetPath: target, Report: report, IsSafe: true}
	if buildErr != nil {
		preview.IsSafe = false
		preview.SafetyIssues = append(preview.SafetyIssues, report.Errors...)
		if len(report.Errors) == 0 {
			preview.SafetyIssues = append(preview.SafetyIssues, buildErr.Error())
		}
		return preview, nil
	}

	if _, err := o.mover.Preflight(file.OriginalPath, target); err != nil {
		preview.IsSafe = false
		preview.SafetyIssues = append(preview.SafetyIssues, userFacing(err))
	}

	preview.Siblings = o.mover.Siblings(file.OriginalPath)
	preview.RequiredBytes = uint64(float64(file.FileSize) * 1.1)
	if free, err := o.fs.FreeSpace(target); err == nil {
		preview.AvailableBytes = free
	}
	return preview, nil
}

// Organize runs the full move pipeline for one file.
func (o *Organizer) Organize(ctx context.Context, hash, category string) (*Outcome, error) {
	start := o.clock()

	file, err := o.files.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	category = o.effectiveCategory(file, category)

	// A classified file is confirmed on the way through; a confirmed file
	// keeps its computed target. A file parked in RETRY by a transient move
	// failure rejoins at READY_TO_MOVE with the target it already has.
	switch file.Status {
	case store.StatusClassified:
		file, err = o.files.Confirm(ctx, hash, category)
		if err != nil {
			return nil, err
		}
	case store.StatusRetry:
		file, err = o.files.ResumeMove(ctx, hash)
		if err != nil {
			return nil, err
		}
	}
	if file.Status != store.StatusReadyToMove {
		return nil, recovery.Wrap(recovery.ErrIllegalTransition, "organizer", "organize",
			fmt.Sprintf("file is %s, not ready to move", file.Status), nil)
	}

	target := file.TargetPath
	if target == "" {
		built, _, buildErr := o.buildTarget(file, category)
		if buildErr != nil {
			return o.fail(ctx, file, category, target, buildErr, start)
		}
		target = built
	}

	rollbackID := ""
	if id, rbErr := o.rollback.Create(ctx, hash, store.OperationMove, file.OriginalPath, target, category); rbErr != nil {
		// Best-effort: a missing rollback point never blocks the move.
		o.logger.Warn("rollback point creation failed",
			slog.String(logging.FieldFileHash, hash),
			slog.String("error", rbErr.Error()))
	} else {
		rollbackID = id
	}

	file, err = o.files.BeginMove(ctx, hash)
	if err != nil {
		return nil, err
	}

	receipt, moveErr := o.mover.Move(ctx, file.OriginalPath, target)
	if moveErr != nil {
		return o.fail(ctx, file, category, target, moveErr, start)
	}

	file, err = o.files.MarkMoved(ctx, hash, receipt.TargetPath)
	if err != nil {
		return nil, err
	}

	duration := o.clock().Sub(start).Milliseconds()
	o.appendSuccessLog(ctx, hash, receipt, rollbackID, duration)
	o.logger.Info("file organized",
		slog.String(logging.FieldFileHash, hash),
		slog.String("category", category),
		slog.String("target", receipt.TargetPath),
		slog.Int64("duration_ms", duration))

	return &Outcome{
		File:       file,
		Receipt:    receipt,
		RollbackID: rollbackID,
		DurationMS: duration,
	}, nil
}

func (o *Organizer) fail(ctx context.Context, file *store.TrackedFile, category, target string, cause error, start time.Time) (*Outcome, error) {
	available := int64(0)
	if free, err := o.fs.FreeSpace(target); err == nil {
		available = int64(free)
	}
	cls := o.recovery.Classify(recovery.ErrorContext{
		Err:            cause,
		OperationType:  store.OperationMove,
		SourcePath:     file.OriginalPath,
		TargetPath:     target,
		FileSize:       file.FileSize,
		AvailableSpace: available,
		FileHash:       file.Hash,
		RetryAttempts:  file.RetryCount,
	})

	failed, recErr := o.files.RecordError(ctx, file.Hash, userFacing(cause), map[string]any{
		"kind":     string(cls.Kind),
		"target":   target,
		"category": category,
	})
	if recErr != nil {
		o.logger.Warn("record error failed",
			slog.String(logging.FieldFileHash, file.Hash),
			slog.String("error", recErr.Error()))
		failed = file
	}

	_ = o.sink.Publish(ctx, events.New(events.ErrorMoveFailed, map[string]any{
		"hash":        file.Hash,
		"reason":      userFacing(cause),
		"retry_count": failed.RetryCount,
	}))

	return &Outcome{
		File:           failed,
		DurationMS:     o.clock().Sub(start).Milliseconds(),
		Recommendation: &cls,
		Action:         o.recovery.Action(cls, failed.RetryCount),
	}, cause
}

func (o *Organizer) appendSuccessLog(ctx context.Context, hash string, receipt *mover.Receipt, rollbackID string, durationMS int64) {
	message := fmt.Sprintf("organized to %s", receipt.TargetPath)
	if rollbackID != "" {
		message += " (rollback " + rollbackID + ")"
	}
	err := o.files.Store().WithScope(ctx, func(sc *store.Scope) error {
		return sc.AppendLog(ctx, &store.ProcessingLog{
			FileHash:   hash,
			Category:   "organization",
			Message:    message,
			DurationMS: durationMS,
		})
	})
	if err != nil {
		o.logger.Warn("organize log append failed",
			slog.String(logging.FieldFileHash, hash),
			slog.String("error", err.Error()))
	}
}

func (o *Organizer) buildTarget(file *store.TrackedFile, category string) (string, paths.Report, error) {
	return o.builder.Build(file, category)
}

func (o *Organizer) effectiveCategory(file *store.TrackedFile, category string) string {
	category = strings.TrimSpace(category)
	if category != "" {
		return category
	}
	if file.Category != "" {
		return file.Category
	}
	return file.SuggestedCategory
}

func userFacing(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
