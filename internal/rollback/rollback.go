// Package rollback reverts completed library moves.
//
// Every organize records a durable rollback point before files are touched.
// Executing a point validates that the moved file is still at its target and
// the original location is free, then moves it back and retires the point.
package rollback

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"mediabutler/internal/fsx"
	"mediabutler/internal/logging"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
)

// Service creates, validates, and executes rollback points.
type Service struct {
	store  *store.Store
	fs     fsx.FileSystem
	logger *slog.Logger
}

// NewService wires a rollback service against the store and file system.
func NewService(st *store.Store, fsys fsx.FileSystem, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		store:  st,
		fs:     fsys,
		logger: logging.NewComponentLogger(logger, "rollback"),
	}
}

// Create persists a rollback point for a move about to happen and returns
// its id.
func (s *Service) Create(ctx context.Context, fileHash, operationType, originalPath, targetPath, info string) (string, error) {
	point := &store.RollbackPoint{
		ID:            uuid.NewString(),
		FileHash:      fileHash,
		OperationType: operationType,
		OriginalPath:  originalPath,
		TargetPath:    targetPath,
		Info:          info,
	}
	err := s.store.WithScope(ctx, func(sc *store.Scope) error {
		return sc.InsertRollbackPoint(ctx, point)
	})
	if err != nil {
		return "", err
	}
	return point.ID, nil
}

// Report is the pre-flight outcome for executing a rollback point.
type Report struct {
	Valid              bool
	Reasons            []string
	SuccessProbability float64
}

// Validate checks whether a rollback point can still be executed.
func (s *Service) Validate(ctx context.Context, id string) (Report, error) {
	point, err := s.store.GetRollbackPoint(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if point == nil {
		return Report{}, recovery.Wrap(recovery.ErrNotFound, "rollback", "validate", fmt.Sprintf("no rollback point %s", id), nil)
	}
	return s.validatePoint(point, false), nil
}

func (s *Service) validatePoint(point *store.RollbackPoint, force bool) Report {
	report := Report{Valid: true, SuccessProbability: 1.0}
	fail := func(reason string, probability float64) {
		report.Valid = false
		report.Reasons = append(report.Reasons, reason)
		if probability < report.SuccessProbability {
			report.SuccessProbability = probability
		}
	}

	if !point.Active {
		fail("rollback point already consumed", 0)
	}
	if _, err := s.fs.Stat(point.TargetPath); err != nil {
		fail(fmt.Sprintf("moved file no longer at %s", point.TargetPath), 0)
	}
	if info, err := s.fs.Stat(filepath.Dir(point.OriginalPath)); err == nil && !info.IsDir() {
		fail(fmt.Sprintf("original parent %s is not a directory", filepath.Dir(point.OriginalPath)), 0)
	}
	if _, err := s.fs.Stat(point.OriginalPath); err == nil && !force {
		fail(fmt.Sprintf("a file already exists at %s", point.OriginalPath), 0.2)
	}
	return report
}

// Execute moves the file back to its original location and retires the
// point. With force set, an occupant at the original path is overwritten.
func (s *Service) Execute(ctx context.Context, id string, force bool) error {
	point, err := s.store.GetRollbackPoint(ctx, id)
	if err != nil {
		return err
	}
	if point == nil {
		return recovery.Wrap(recovery.ErrNotFound, "rollback", "execute", fmt.Sprintf("no rollback point %s", id), nil)
	}

	report := s.validatePoint(point, force)
	if !report.Valid {
		return recovery.Wrap(recovery.ErrValidation, "rollback", "execute",
			fmt.Sprintf("rollback point %s not executable: %v", id, report.Reasons), nil)
	}

	if err := s.fs.MkdirAll(filepath.Dir(point.OriginalPath), 0o755); err != nil {
		return recovery.Wrap(recovery.ErrPermission, "rollback", "execute", "recreate original directory", err)
	}
	if err := s.moveBack(point.TargetPath, point.OriginalPath); err != nil {
		return err
	}

	err = s.store.WithScope(ctx, func(sc *store.Scope) error {
		if err := sc.DeactivateRollbackPoint(ctx, point.ID); err != nil {
			return err
		}
		return sc.AppendLog(ctx, &store.ProcessingLog{
			FileHash: point.FileHash,
			Category: "rollback",
			Message:  fmt.Sprintf("restored %s from %s", point.OriginalPath, point.TargetPath),
		})
	})
	if err != nil {
		return err
	}
	s.logger.Info("rollback executed",
		slog.String("rollback_id", point.ID),
		slog.String(logging.FieldFileHash, point.FileHash),
		slog.String("restored_to", point.OriginalPath))
	return nil
}

// RollbackLast executes the newest active point for a file.
func (s *Service) RollbackLast(ctx context.Context, fileHash string, force bool) error {
	point, err := s.store.NewestRollbackPoint(ctx, fileHash)
	if err != nil {
		return err
	}
	if point == nil {
		return recovery.Wrap(recovery.ErrNotFound, "rollback", "rollback last",
			fmt.Sprintf("no active rollback point for %s", fileHash), nil)
	}
	return s.Execute(ctx, point.ID, force)
}

// Cleanup retires active points older than the cutoff.
func (s *Service) Cleanup(ctx context.Context, olderThan time.Time) (int64, error) {
	retired, err := s.store.CleanupRollbackPoints(ctx, olderThan)
	if err != nil {
		return 0, err
	}
	if retired > 0 {
		s.logger.Info("rollback points cleaned up", slog.Int64("retired", retired))
	}
	return retired, nil
}

func (s *Service) moveBack(from, to string) error {
	err := s.fs.Rename(from, to)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		if errors.Is(err, fs.ErrNotExist) {
			return recovery.Wrap(recovery.ErrPath, "rollback", "move back", fmt.Sprintf("restore %s", to), err)
		}
		return recovery.Wrap(recovery.ErrTransient, "rollback", "move back", fmt.Sprintf("restore %s", to), err)
	}
	if copyErr := fsx.CopyVerified(s.fs, from, to); copyErr != nil {
		return recovery.Wrap(recovery.ErrTransient, "rollback", "move back", "cross-volume restore", copyErr)
	}
	if removeErr := s.fs.Remove(from); removeErr != nil {
		return recovery.Wrap(recovery.ErrTransient, "rollback", "move back", "remove library copy", removeErr)
	}
	return nil
}
