package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertRollbackPoint records a completed move so it can be reverted later.
func (sc *Scope) InsertRollbackPoint(ctx context.Context, point *RollbackPoint) error {
	if point == nil {
		return errors.New("rollback point is nil")
	}
	if point.OperationType == "" {
		point.OperationType = OperationMove
	}
	point.CreatedAt = sc.auditStamp(point.CreatedAt)
	point.Active = true

	_, err := sc.tx.ExecContext(
		ctx,
		`INSERT INTO rollback_points (id, file_hash, operation_type, original_path, target_path, info, created_at, active)
         VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		point.ID,
		point.FileHash,
		point.OperationType,
		point.OriginalPath,
		point.TargetPath,
		nullableString(point.Info),
		formatTime(point.CreatedAt),
	)
	if err != nil {
		return mapSQLiteErr("insert rollback point", err)
	}
	return nil
}

// DeactivateRollbackPoint soft-deletes a rollback point after it was consumed
// or invalidated.
func (sc *Scope) DeactivateRollbackPoint(ctx context.Context, id string) error {
	res, err := sc.tx.ExecContext(ctx, `UPDATE rollback_points SET active = 0 WHERE id = ? AND active = 1`, id)
	if err != nil {
		return mapSQLiteErr("deactivate rollback point", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("no active rollback point with id %s", id)
	}
	return nil
}

// GetRollbackPoint fetches a rollback point by id, active or not. Returns nil
// when absent.
func (s *Store) GetRollbackPoint(ctx context.Context, id string) (*RollbackPoint, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, file_hash, operation_type, original_path, target_path, info, created_at, active
         FROM rollback_points WHERE id = ?`,
		id,
	)
	point, err := scanRollbackPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rollback point: %w", err)
	}
	return point, nil
}

// NewestRollbackPoint returns a file's most recent active rollback point, or
// nil when the file has none.
func (s *Store) NewestRollbackPoint(ctx context.Context, fileHash string) (*RollbackPoint, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, file_hash, operation_type, original_path, target_path, info, created_at, active
         FROM rollback_points WHERE file_hash = ? AND active = 1
         ORDER BY created_at DESC, id DESC LIMIT 1`,
		fileHash,
	)
	point, err := scanRollbackPoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("newest rollback point: %w", err)
	}
	return point, nil
}

// ListRollbackPoints returns a file's active rollback points, newest first.
func (s *Store) ListRollbackPoints(ctx context.Context, fileHash string) ([]*RollbackPoint, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, file_hash, operation_type, original_path, target_path, info, created_at, active
         FROM rollback_points WHERE file_hash = ? AND active = 1
         ORDER BY created_at DESC, id DESC`,
		fileHash,
	)
	if err != nil {
		return nil, fmt.Errorf("list rollback points: %w", err)
	}
	defer rows.Close()

	var points []*RollbackPoint
	for rows.Next() {
		point, err := scanRollbackPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

// CleanupRollbackPoints soft-deletes active rollback points older than the
// cutoff and returns how many were retired.
func (s *Store) CleanupRollbackPoints(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE rollback_points SET active = 0 WHERE active = 1 AND created_at < ?`,
		formatTime(olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup rollback points: %w", err)
	}
	return res.RowsAffected()
}

func scanRollbackPoint(scanner interface{ Scan(dest ...any) error }) (*RollbackPoint, error) {
	var (
		point      RollbackPoint
		info       sql.NullString
		createdRaw string
		active     int
	)
	if err := scanner.Scan(
		&point.ID,
		&point.FileHash,
		&point.OperationType,
		&point.OriginalPath,
		&point.TargetPath,
		&info,
		&createdRaw,
		&active,
	); err != nil {
		return nil, err
	}
	point.Info = info.String
	point.Active = active != 0
	if created, err := parseTimeString(createdRaw); err == nil {
		point.CreatedAt = created
	}
	return &point, nil
}
