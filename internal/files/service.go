package files

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"mediabutler/internal/classifier"
	"mediabutler/internal/config"
	"mediabutler/internal/events"
	"mediabutler/internal/fsx"
	"mediabutler/internal/logging"
	"mediabutler/internal/paths"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
)

// Service owns every tracked-file state transition.
type Service struct {
	store            *store.Store
	fs               fsx.FileSystem
	builder          *paths.Builder
	logger           *slog.Logger
	autoThreshold    float64
	suggestThreshold float64
	maxRetry         int
}

// NewService wires the state machine against its dependencies.
func NewService(cfg *config.Config, st *store.Store, fsys fsx.FileSystem, builder *paths.Builder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:            st,
		fs:               fsys,
		builder:          builder,
		logger:           logging.NewComponentLogger(logger, "files"),
		autoThreshold:    cfg.Classification.AutoThreshold,
		suggestThreshold: cfg.Classification.SuggestThreshold,
		maxRetry:         cfg.Processing.MaxRetry,
	}
}

// Store exposes the underlying store for read paths.
func (s *Service) Store() *store.Store { return s.store }

// MaxRetry reports the configured retry ceiling.
func (s *Service) MaxRetry() int { return s.maxRetry }

// withConflictRetry runs the scoped operation, retrying once when the commit
// hits an optimistic or database-level conflict.
func (s *Service) withConflictRetry(ctx context.Context, fn func(*store.Scope) error) error {
	err := s.store.WithScope(ctx, fn)
	if err != nil && errors.Is(err, recovery.ErrConflict) {
		err = s.store.WithScope(ctx, fn)
	}
	return err
}

// Register computes the content hash of path and tracks it. A file already
// known by hash is returned unchanged, regardless of the path it was seen
// under.
func (s *Service) Register(ctx context.Context, path string) (*store.TrackedFile, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, recovery.Wrap(recovery.ErrNotFound, "files", "register", fmt.Sprintf("file %s does not exist", path), err)
		}
		return nil, recovery.Wrap(recovery.ErrTransient, "files", "register", "stat file", err)
	}
	if info.IsDir() {
		return nil, recovery.Wrap(recovery.ErrValidation, "files", "register", fmt.Sprintf("%s is a directory", path), nil)
	}

	hash, err := fsx.HashFile(s.fs, path)
	if err != nil {
		return nil, recovery.Wrap(recovery.ErrTransient, "files", "register", "hash file", err)
	}

	existing, err := s.store.GetTrackedAny(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	file := &store.TrackedFile{
		Hash:         hash,
		OriginalPath: path,
		FileName:     filepath.Base(path),
		FileSize:     info.Size(),
		Status:       store.StatusNew,
	}
	err = s.withConflictRetry(ctx, func(sc *store.Scope) error {
		if err := sc.InsertTracked(ctx, file); err != nil {
			return err
		}
		if err := sc.AppendLog(ctx, &store.ProcessingLog{
			FileHash: hash,
			Category: "discovery",
			Message:  fmt.Sprintf("registered %s (%d bytes)", path, info.Size()),
		}); err != nil {
			return err
		}
		sc.Publish(events.New(events.FileDiscovered, map[string]any{"hash": hash}))
		return nil
	})
	if err != nil {
		// A concurrent register may have won the insert race.
		if raced, getErr := s.store.GetTrackedAny(ctx, hash); getErr == nil && raced != nil {
			return raced, nil
		}
		return nil, err
	}
	s.logger.Info("file registered",
		slog.String(logging.FieldFileHash, hash),
		slog.String("path", path))
	return file, nil
}

// BeginProcessing moves a file from NEW to PROCESSING before classification.
func (s *Service) BeginProcessing(ctx context.Context, hash string) (*store.TrackedFile, error) {
	return s.transition(ctx, hash, store.StatusProcessing, "classification", "processing started", nil)
}

// UpdateClassification records a classifier verdict: NEW or PROCESSING moves
// to CLASSIFIED with the suggestion and confidence stored. Below the suggest
// threshold the stored suggestion degrades to UNKNOWN.
func (s *Service) UpdateClassification(ctx context.Context, hash, category string, confidence float64) (*store.TrackedFile, error) {
	if confidence < 0 || confidence > 1 {
		return nil, recovery.Wrap(recovery.ErrValidation, "files", "update classification",
			fmt.Sprintf("confidence %v outside [0,1]", confidence), nil)
	}

	suggested := category
	if confidence < s.suggestThreshold {
		suggested = classifier.Unknown
	}

	return s.transition(ctx, hash, store.StatusClassified, "classification",
		fmt.Sprintf("classified as %s (confidence %.2f)", suggested, confidence),
		func(sc *store.Scope, file *store.TrackedFile) error {
			now := sc.Now()
			file.SuggestedCategory = suggested
			file.Confidence = &confidence
			file.ClassifiedAt = &now
			sc.Publish(events.New(events.ClassificationCompleted, map[string]any{
				"hash":       hash,
				"category":   suggested,
				"confidence": confidence,
			}))
			return nil
		})
}

// Confirm accepts a category for a classified file and computes its library
// target. A path-building failure aborts the commit, leaving the file
// CLASSIFIED.
func (s *Service) Confirm(ctx context.Context, hash, category string) (*store.TrackedFile, error) {
	return s.transition(ctx, hash, store.StatusReadyToMove, "confirmation",
		fmt.Sprintf("confirmed as %s", category),
		func(sc *store.Scope, file *store.TrackedFile) error {
			target, report, err := s.builder.Build(file, category)
			if err != nil {
				return err
			}
			for _, warning := range report.Warnings {
				s.logger.Warn("target path warning",
					slog.String(logging.FieldFileHash, hash),
					slog.String("warning", warning))
			}
			file.Category = category
			file.TargetPath = target
			return nil
		})
}

// ResumeMove returns a retrying file to READY_TO_MOVE so its move can run
// again against the target computed at confirmation time.
func (s *Service) ResumeMove(ctx context.Context, hash string) (*store.TrackedFile, error) {
	return s.transition(ctx, hash, store.StatusReadyToMove, "organization", "move retry",
		func(sc *store.Scope, file *store.TrackedFile) error {
			if file.TargetPath == "" {
				return recovery.Wrap(recovery.ErrValidation, "files", "resume move",
					"no target path recorded, the failure predates confirmation", nil)
			}
			return nil
		})
}

// BeginMove marks a confirmed file as MOVING while the mover runs.
func (s *Service) BeginMove(ctx context.Context, hash string) (*store.TrackedFile, error) {
	return s.transition(ctx, hash, store.StatusMoving, "organization", "move started", nil)
}

// MarkMoved completes a move: MOVING to MOVED with the landing path recorded.
func (s *Service) MarkMoved(ctx context.Context, hash, actualPath string) (*store.TrackedFile, error) {
	return s.transition(ctx, hash, store.StatusMoved, "organization",
		fmt.Sprintf("moved to %s", actualPath),
		func(sc *store.Scope, file *store.TrackedFile) error {
			now := sc.Now()
			file.MovedToPath = actualPath
			file.MovedAt = &now
			return nil
		})
}

// RecordError notes a failure against the file. Below the retry ceiling the
// file goes to RETRY; at the ceiling it goes to ERROR. Calls against a file
// already at the ceiling are no-ops.
func (s *Service) RecordError(ctx context.Context, hash, message string, details map[string]any) (*store.TrackedFile, error) {
	var result *store.TrackedFile
	err := s.withConflictRetry(ctx, func(sc *store.Scope) error {
		file, err := sc.GetTracked(ctx, hash)
		if err != nil {
			return err
		}
		if file == nil {
			return notFound(hash, "record error")
		}
		if file.Status == store.StatusError && file.RetryCount >= s.maxRetry {
			result = file
			return nil
		}

		file.RetryCount++
		next := store.StatusRetry
		if file.RetryCount >= s.maxRetry {
			next = store.StatusError
		}
		if !store.CanTransition(file.Status, next) {
			return illegalTransition(file.Status, next)
		}
		now := sc.Now()
		file.Status = next
		file.LastError = message
		file.LastErrorAt = &now

		detailsJSON := ""
		if len(details) > 0 {
			if encoded, encErr := json.Marshal(details); encErr == nil {
				detailsJSON = string(encoded)
			}
		}
		if err := sc.UpdateTracked(ctx, file); err != nil {
			return err
		}
		if err := sc.AppendLog(ctx, &store.ProcessingLog{
			FileHash:    hash,
			Level:       store.LogError,
			Category:    "error",
			Message:     message,
			DetailsJSON: detailsJSON,
		}); err != nil {
			return err
		}
		result = file
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResetError returns a failed file to NEW, clearing its error bookkeeping.
func (s *Service) ResetError(ctx context.Context, hash string) (*store.TrackedFile, error) {
	return s.transition(ctx, hash, store.StatusNew, "recovery", "error state reset",
		func(sc *store.Scope, file *store.TrackedFile) error {
			file.RetryCount = 0
			file.LastError = ""
			file.LastErrorAt = nil
			return nil
		})
}

// Ignore parks a file in the IGNORED terminal state. Moved files are
// rejected.
func (s *Service) Ignore(ctx context.Context, hash string) (*store.TrackedFile, error) {
	return s.transition(ctx, hash, store.StatusIgnored, "lifecycle", "ignored", nil)
}

// SoftDelete deactivates a file so default reads no longer see it.
func (s *Service) SoftDelete(ctx context.Context, hash, reason string) error {
	return s.withConflictRetry(ctx, func(sc *store.Scope) error {
		file, err := sc.GetTracked(ctx, hash)
		if err != nil {
			return err
		}
		if file == nil {
			return notFound(hash, "soft delete")
		}
		file.Active = false
		file.Note = reason
		if err := sc.UpdateTracked(ctx, file); err != nil {
			return err
		}
		return sc.AppendLog(ctx, &store.ProcessingLog{
			FileHash: hash,
			Category: "lifecycle",
			Message:  fmt.Sprintf("soft-deleted: %s", reason),
		})
	})
}

// Get returns an active tracked file or a not-found error.
func (s *Service) Get(ctx context.Context, hash string) (*store.TrackedFile, error) {
	file, err := s.store.GetTracked(ctx, hash)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, notFound(hash, "get")
	}
	return file, nil
}

// ListPending returns files still traveling the pipeline, oldest first.
// Terminal, errored, and ignored files are excluded.
func (s *Service) ListPending(ctx context.Context) ([]*store.TrackedFile, error) {
	return s.store.ListByStatus(ctx,
		store.StatusNew, store.StatusProcessing, store.StatusClassified,
		store.StatusReadyToMove, store.StatusMoving, store.StatusRetry)
}

// ListReadyForClassification returns up to limit discovered files that no
// classification has touched yet, oldest first. A non-positive limit means
// no cap.
func (s *Service) ListReadyForClassification(ctx context.Context, limit int) ([]*store.TrackedFile, error) {
	files, err := s.store.ListByStatus(ctx, store.StatusNew)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

// transition applies one guarded status change plus optional mutation under
// a single scope.
func (s *Service) transition(
	ctx context.Context,
	hash string,
	to store.Status,
	logCategory, logMessage string,
	mutate func(*store.Scope, *store.TrackedFile) error,
) (*store.TrackedFile, error) {
	var result *store.TrackedFile
	err := s.withConflictRetry(ctx, func(sc *store.Scope) error {
		file, err := sc.GetTracked(ctx, hash)
		if err != nil {
			return err
		}
		if file == nil {
			return notFound(hash, string(to))
		}
		if !store.CanTransition(file.Status, to) {
			return illegalTransition(file.Status, to)
		}
		file.Status = to
		if mutate != nil {
			if err := mutate(sc, file); err != nil {
				return err
			}
		}
		if err := sc.UpdateTracked(ctx, file); err != nil {
			return err
		}
		if err := sc.AppendLog(ctx, &store.ProcessingLog{
			FileHash: hash,
			Category: logCategory,
			Message:  logMessage,
		}); err != nil {
			return err
		}
		result = file
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func notFound(hash, operation string) error {
	return recovery.Wrap(recovery.ErrNotFound, "files", operation, fmt.Sprintf("no tracked file with hash %s", hash), nil)
}

func illegalTransition(from, to store.Status) error {
	return recovery.Wrap(recovery.ErrIllegalTransition, "files", "transition",
		fmt.Sprintf("cannot move from %s to %s", from, to), nil)
}

// AutoThreshold reports the configured auto-confirmation threshold. Current
// policy never auto-confirms; the threshold is surfaced for status output.
func (s *Service) AutoThreshold() float64 { return s.autoThreshold }

// SuggestThreshold reports the floor below which suggestions degrade to
// UNKNOWN.
func (s *Service) SuggestThreshold() float64 { return s.suggestThreshold }
