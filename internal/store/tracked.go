package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"mediabutler/internal/recovery"
)

const trackedColumns = "hash, original_path, file_name, file_size, status, suggested_category, confidence, classified_at, category, target_path, moved_to_path, moved_at, retry_count, last_error, last_error_at, created_at, updated_at, note, active"

// InsertTracked persists a new tracked file inside the scope. Audit fields
// are stamped on commit; Active defaults to true.
func (sc *Scope) InsertTracked(ctx context.Context, file *TrackedFile) error {
	if file == nil {
		return errors.New("tracked file is nil")
	}
	created := sc.auditStamp(file.CreatedAt)
	file.CreatedAt = created
	file.UpdatedAt = created
	file.Active = true

	_, err := sc.tx.ExecContext(
		ctx,
		`INSERT INTO tracked_files (
            hash, original_path, file_name, file_size, status,
            suggested_category, confidence, classified_at, category, target_path,
            moved_to_path, moved_at, retry_count, last_error, last_error_at,
            created_at, updated_at, note, active
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		file.Hash,
		file.OriginalPath,
		file.FileName,
		file.FileSize,
		file.Status,
		nullableString(file.SuggestedCategory),
		nullableFloat(file.Confidence),
		nullableTime(file.ClassifiedAt),
		nullableString(file.Category),
		nullableString(file.TargetPath),
		nullableString(file.MovedToPath),
		nullableTime(file.MovedAt),
		file.RetryCount,
		nullableString(file.LastError),
		nullableTime(file.LastErrorAt),
		formatTime(file.CreatedAt),
		formatTime(file.UpdatedAt),
		nullableString(file.Note),
		boolToInt(file.Active),
	)
	if err != nil {
		return mapSQLiteErr("insert tracked file", err)
	}
	return nil
}

// UpdateTracked persists changes to an existing row. The row's loaded
// updated_at stamp guards the write: a concurrent transition invalidates it
// and the update surfaces a retryable conflict.
func (sc *Scope) UpdateTracked(ctx context.Context, file *TrackedFile) error {
	if file == nil {
		return errors.New("tracked file is nil")
	}
	previousStamp := formatTime(file.UpdatedAt)
	file.UpdatedAt = sc.now

	res, err := sc.tx.ExecContext(
		ctx,
		`UPDATE tracked_files
         SET status = ?, suggested_category = ?, confidence = ?, classified_at = ?,
             category = ?, target_path = ?, moved_to_path = ?, moved_at = ?,
             retry_count = ?, last_error = ?, last_error_at = ?,
             updated_at = ?, note = ?, active = ?
         WHERE hash = ? AND updated_at = ?`,
		file.Status,
		nullableString(file.SuggestedCategory),
		nullableFloat(file.Confidence),
		nullableTime(file.ClassifiedAt),
		nullableString(file.Category),
		nullableString(file.TargetPath),
		nullableString(file.MovedToPath),
		nullableTime(file.MovedAt),
		file.RetryCount,
		nullableString(file.LastError),
		nullableTime(file.LastErrorAt),
		formatTime(file.UpdatedAt),
		nullableString(file.Note),
		boolToInt(file.Active),
		file.Hash,
		previousStamp,
	)
	if err != nil {
		return mapSQLiteErr("update tracked file", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		row := sc.tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tracked_files WHERE hash = ?`, file.Hash)
		var count int
		if scanErr := row.Scan(&count); scanErr != nil {
			return fmt.Errorf("verify tracked file: %w", scanErr)
		}
		if count == 0 {
			return recovery.Wrap(recovery.ErrNotFound, "store", "update tracked file", fmt.Sprintf("no tracked file with hash %s", file.Hash), nil)
		}
		return recovery.Wrap(recovery.ErrConflict, "store", "update tracked file", "row changed since read", nil)
	}
	return nil
}

// GetTracked loads a tracked file inside the scope, seeing in-scope writes.
func (sc *Scope) GetTracked(ctx context.Context, hash string) (*TrackedFile, error) {
	row := sc.tx.QueryRowContext(ctx, `SELECT `+trackedColumns+` FROM tracked_files WHERE hash = ? AND active = 1`, hash)
	return scanTrackedRow(row, "get tracked file")
}

// GetTracked fetches an active tracked file by hash, or nil when absent.
func (s *Store) GetTracked(ctx context.Context, hash string) (*TrackedFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackedColumns+` FROM tracked_files WHERE hash = ? AND active = 1`, hash)
	return scanTrackedRow(row, "get tracked file")
}

// GetTrackedAny fetches a tracked file by hash regardless of the active flag.
func (s *Store) GetTrackedAny(ctx context.Context, hash string) (*TrackedFile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackedColumns+` FROM tracked_files WHERE hash = ?`, hash)
	return scanTrackedRow(row, "get tracked file")
}

// ListByStatus returns active files matching any of the statuses, oldest first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*TrackedFile, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	placeholders := makePlaceholders(len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
	}
	query := `SELECT ` + trackedColumns + ` FROM tracked_files WHERE active = 1 AND status IN (` + placeholders + `) ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list by status: %w", err)
	}
	defer rows.Close()
	return collectTracked(rows)
}

// ListOptions filters the paged listing.
type ListOptions struct {
	Skip            int
	Take            int
	Statuses        []Status
	Category        string
	IncludeInactive bool
}

// List returns a page of tracked files plus the total row count for the filter.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*TrackedFile, int, error) {
	var conditions []string
	var args []any
	if !opts.IncludeInactive {
		conditions = append(conditions, "active = 1")
	}
	if len(opts.Statuses) > 0 {
		placeholders := makePlaceholders(len(opts.Statuses))
		conditions = append(conditions, "status IN ("+placeholders+")")
		for _, status := range opts.Statuses {
			args = append(args, status)
		}
	}
	if strings.TrimSpace(opts.Category) != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, opts.Category)
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tracked_files`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tracked files: %w", err)
	}

	take := opts.Take
	if take <= 0 {
		take = 50
	}
	query := `SELECT ` + trackedColumns + ` FROM tracked_files` + where + ` ORDER BY created_at LIMIT ? OFFSET ?`
	args = append(args, take, opts.Skip)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tracked files: %w", err)
	}
	defer rows.Close()
	files, err := collectTracked(rows)
	if err != nil {
		return nil, 0, err
	}
	return files, total, nil
}

// Search returns active files whose name matches an SQL-like pattern
// (wildcards % and _), oldest first.
func (s *Store) Search(ctx context.Context, pattern string) ([]*TrackedFile, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+trackedColumns+` FROM tracked_files WHERE active = 1 AND file_name LIKE ? ORDER BY created_at`,
		pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search tracked files: %w", err)
	}
	defer rows.Close()
	return collectTracked(rows)
}

// DistinctCategories returns the confirmed categories present on active rows.
func (s *Store) DistinctCategories(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT DISTINCT category FROM tracked_files WHERE active = 1 AND category IS NOT NULL AND category != '' ORDER BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("distinct categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

// Stats returns a count of active files grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tracked_files WHERE active = 1 GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("tracked file stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates tracked-file state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusNew:
			health.New += count
		case StatusProcessing, StatusMoving, StatusRetry:
			health.Processing += count
		case StatusClassified, StatusReadyToMove:
			health.AwaitingOK += count
		case StatusMoved:
			health.Moved += count
		case StatusError:
			health.Errored += count
		}
	}
	return health, nil
}

// ResetStuck returns rows left mid-flight by a crash to their stage start:
// PROCESSING back to NEW and MOVING back to READY_TO_MOVE.
func (s *Store) ResetStuck(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE tracked_files
         SET status = CASE status
             WHEN ? THEN ?
             WHEN ? THEN ?
             ELSE status
         END,
             updated_at = ?
         WHERE active = 1 AND status IN (?, ?)`,
		StatusProcessing, StatusNew,
		StatusMoving, StatusReadyToMove,
		formatTime(s.clock()),
		StatusProcessing,
		StatusMoving,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck files: %w", err)
	}
	return res.RowsAffected()
}

func scanTrackedRow(row *sql.Row, operation string) (*TrackedFile, error) {
	file, err := scanTracked(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return file, nil
}

func collectTracked(rows *sql.Rows) ([]*TrackedFile, error) {
	var files []*TrackedFile
	for rows.Next() {
		file, err := scanTracked(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func scanTracked(scanner interface{ Scan(dest ...any) error }) (*TrackedFile, error) {
	var (
		hash              string
		originalPath      string
		fileName          string
		fileSize          int64
		statusStr         string
		suggestedCategory sql.NullString
		confidence        sql.NullFloat64
		classifiedRaw     sql.NullString
		category          sql.NullString
		targetPath        sql.NullString
		movedToPath       sql.NullString
		movedRaw          sql.NullString
		retryCount        int
		lastError         sql.NullString
		lastErrorRaw      sql.NullString
		createdRaw        string
		updatedRaw        string
		note              sql.NullString
		active            int
	)

	if err := scanner.Scan(
		&hash,
		&originalPath,
		&fileName,
		&fileSize,
		&statusStr,
		&suggestedCategory,
		&confidence,
		&classifiedRaw,
		&category,
		&targetPath,
		&movedToPath,
		&movedRaw,
		&retryCount,
		&lastError,
		&lastErrorRaw,
		&createdRaw,
		&updatedRaw,
		&note,
		&active,
	); err != nil {
		return nil, err
	}

	file := &TrackedFile{
		Hash:              hash,
		OriginalPath:      originalPath,
		FileName:          fileName,
		FileSize:          fileSize,
		Status:            Status(statusStr),
		SuggestedCategory: suggestedCategory.String,
		Category:          category.String,
		TargetPath:        targetPath.String,
		MovedToPath:       movedToPath.String,
		RetryCount:        retryCount,
		LastError:         lastError.String,
	}
	file.Note = note.String
	file.Active = active != 0

	if confidence.Valid {
		value := confidence.Float64
		file.Confidence = &value
	}
	if classifiedRaw.Valid {
		if at, err := parseTimeString(classifiedRaw.String); err == nil {
			file.ClassifiedAt = &at
		}
	}
	if movedRaw.Valid {
		if at, err := parseTimeString(movedRaw.String); err == nil {
			file.MovedAt = &at
		}
	}
	if lastErrorRaw.Valid {
		if at, err := parseTimeString(lastErrorRaw.String); err == nil {
			file.LastErrorAt = &at
		}
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		file.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		file.UpdatedAt = updated
	}
	return file, nil
}
