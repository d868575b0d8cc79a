package mover

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"mediabutler/internal/fsx"
	"mediabutler/internal/logging"
	"mediabutler/internal/paths"
	"mediabutler/internal/recovery"
)

// spaceHeadroom is the multiplier applied to the source size when checking
// free space at the target volume.
const spaceHeadroom = 1.1

// siblingExtensions are the related-file extensions that follow a primary.
var siblingExtensions = map[string]struct{}{
	".srt": {}, ".sub": {}, ".ass": {}, ".nfo": {}, ".jpg": {}, ".png": {},
}

// SiblingFailure records one related file that could not be moved.
type SiblingFailure struct {
	Path  string
	Error string
}

// Receipt describes a completed move.
type Receipt struct {
	TargetPath     string
	FileSizeBytes  int64
	SiblingsMoved  []string
	SiblingsFailed []SiblingFailure
	DurationMS     int64
}

// Mover moves files with pre-flight validation and sibling handling.
type Mover struct {
	fs      fsx.FileSystem
	builder *paths.Builder
	logger  *slog.Logger
	clock   func() time.Time
}

// New creates a Mover. The builder supplies target validation and conflict
// resolution.
func New(fsys fsx.FileSystem, builder *paths.Builder, logger *slog.Logger) *Mover {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mover{
		fs:      fsys,
		builder: builder,
		logger:  logging.NewComponentLogger(logger, "mover"),
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// Preflight validates a move without mutating anything. The returned error
// carries the recovery kind a failed check maps to.
func (m *Mover) Preflight(source, target string) (int64, error) {
	info, err := m.fs.Stat(source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, recovery.Wrap(recovery.ErrPath, "mover", "preflight", fmt.Sprintf("source %s does not exist", source), err)
		}
		return 0, recovery.Wrap(recovery.ErrTransient, "mover", "preflight", "stat source", err)
	}
	if info.IsDir() {
		return 0, recovery.Wrap(recovery.ErrValidation, "mover", "preflight", fmt.Sprintf("source %s is a directory", source), nil)
	}

	probe, err := m.fs.Open(source)
	if err != nil {
		return 0, recovery.Wrap(recovery.ErrPermission, "mover", "preflight", fmt.Sprintf("source %s is not readable", source), err)
	}
	_ = probe.Close()

	parent := filepath.Dir(target)
	if parentInfo, statErr := m.fs.Stat(parent); statErr == nil && !parentInfo.IsDir() {
		return 0, recovery.Wrap(recovery.ErrPath, "mover", "preflight", fmt.Sprintf("target parent %s is not a directory", parent), nil)
	}

	free, err := m.fs.FreeSpace(target)
	if err != nil {
		return 0, recovery.Wrap(recovery.ErrTransient, "mover", "preflight", "query free space", err)
	}
	required := uint64(float64(info.Size()) * spaceHeadroom)
	if free < required {
		return 0, recovery.Wrap(recovery.ErrSpace, "mover", "preflight",
			fmt.Sprintf("insufficient disk space: need %d bytes, %d available", required, free), nil)
	}

	if report := m.builder.ValidateTarget(target); !report.OK() {
		return 0, recovery.Wrap(recovery.ErrPath, "mover", "preflight", strings.Join(report.Errors, "; "), nil)
	}
	return info.Size(), nil
}

// Move relocates source to target after pre-flight checks. The target may be
// adjusted by conflict resolution; the receipt carries the final path.
func (m *Mover) Move(ctx context.Context, source, target string) (*Receipt, error) {
	start := m.clock()

	size, err := m.Preflight(source, target)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved, err := m.builder.ResolveConflict(target)
	if err != nil {
		return nil, err
	}
	if err := m.fs.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return nil, recovery.Wrap(recovery.ErrPermission, "mover", "move",
			fmt.Sprintf("create target directory %s", filepath.Dir(resolved)), err)
	}

	if err := m.relocate(source, resolved); err != nil {
		return nil, err
	}
	m.logger.Info("moved file",
		slog.String("source", source),
		slog.String("target", resolved),
		slog.Int64("size_bytes", size))

	receipt := &Receipt{TargetPath: resolved, FileSizeBytes: size}
	m.moveSiblings(ctx, source, resolved, receipt)
	receipt.DurationMS = m.clock().Sub(start).Milliseconds()
	return receipt, nil
}

// relocate moves one file: rename on the same volume, verified copy plus
// delete across volumes. A torn cross-volume copy never leaves a partial
// destination behind.
func (m *Mover) relocate(source, target string) error {
	err := m.fs.Rename(source, target)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("rename %s: %w", source, err)
	}

	if copyErr := fsx.CopyVerified(m.fs, source, target); copyErr != nil {
		return fmt.Errorf("cross-volume copy %s: %w", source, copyErr)
	}
	if removeErr := m.fs.Remove(source); removeErr != nil {
		return fmt.Errorf("remove source after copy %s: %w", source, removeErr)
	}
	return nil
}

// Siblings returns the related files that would follow source on a move.
func (m *Mover) Siblings(source string) []string {
	dir := filepath.Dir(source)
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))

	entries, err := m.fs.ReadDir(dir)
	if err != nil {
		return nil
	}
	var siblings []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := siblingExtensions[ext]; !ok {
			continue
		}
		if strings.TrimSuffix(name, filepath.Ext(name)) != base {
			continue
		}
		siblings = append(siblings, filepath.Join(dir, name))
	}
	return siblings
}

func (m *Mover) moveSiblings(ctx context.Context, source, primaryTarget string, receipt *Receipt) {
	targetDir := filepath.Dir(primaryTarget)
	newBase := strings.TrimSuffix(filepath.Base(primaryTarget), filepath.Ext(primaryTarget))

	for _, sibling := range m.Siblings(source) {
		if ctx.Err() != nil {
			return
		}
		siblingTarget := filepath.Join(targetDir, newBase+filepath.Ext(sibling))
		if err := m.relocate(sibling, siblingTarget); err != nil {
			m.logger.Warn("sibling move failed",
				slog.String("sibling", sibling),
				slog.String("error", err.Error()))
			receipt.SiblingsFailed = append(receipt.SiblingsFailed, SiblingFailure{Path: sibling, Error: err.Error()})
			continue
		}
		receipt.SiblingsMoved = append(receipt.SiblingsMoved, siblingTarget)
	}
}
