package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AppendLog records a processing log entry inside the scope. Entries are
// append-only and survive soft deletion of their file.
func (sc *Scope) AppendLog(ctx context.Context, entry *ProcessingLog) error {
	if entry.Level == "" {
		entry.Level = LogInfo
	}
	entry.CreatedAt = sc.now

	res, err := sc.tx.ExecContext(
		ctx,
		`INSERT INTO processing_logs (file_hash, level, category, message, details_json, duration_ms, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.FileHash,
		entry.Level,
		entry.Category,
		entry.Message,
		nullableString(entry.DetailsJSON),
		entry.DurationMS,
		formatTime(entry.CreatedAt),
	)
	if err != nil {
		return mapSQLiteErr("append processing log", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

// LogsForFile returns a file's processing history, oldest first.
func (s *Store) LogsForFile(ctx context.Context, fileHash string) ([]*ProcessingLog, error) {
	return s.queryLogs(
		ctx,
		`SELECT id, file_hash, level, category, message, details_json, duration_ms, created_at
         FROM processing_logs WHERE file_hash = ? ORDER BY id`,
		fileHash,
	)
}

// LogsByCategory returns log entries whose category contains the fragment,
// newest first, capped at limit.
func (s *Store) LogsByCategory(ctx context.Context, fragment string, limit int) ([]*ProcessingLog, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryLogs(
		ctx,
		`SELECT id, file_hash, level, category, message, details_json, duration_ms, created_at
         FROM processing_logs WHERE category LIKE ? ORDER BY id DESC LIMIT ?`,
		"%"+fragment+"%",
		limit,
	)
}

// RecentLogs returns the newest log entries across all files.
func (s *Store) RecentLogs(ctx context.Context, limit int) ([]*ProcessingLog, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryLogs(
		ctx,
		`SELECT id, file_hash, level, category, message, details_json, duration_ms, created_at
         FROM processing_logs ORDER BY id DESC LIMIT ?`,
		limit,
	)
}

func (s *Store) queryLogs(ctx context.Context, query string, args ...any) ([]*ProcessingLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query processing logs: %w", err)
	}
	defer rows.Close()

	var entries []*ProcessingLog
	for rows.Next() {
		var (
			entry      ProcessingLog
			details    sql.NullString
			createdRaw string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.FileHash,
			&entry.Level,
			&entry.Category,
			&entry.Message,
			&details,
			&entry.DurationMS,
			&createdRaw,
		); err != nil {
			return nil, err
		}
		entry.DetailsJSON = details.String
		if created, err := parseTimeString(createdRaw); err == nil {
			entry.CreatedAt = created
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
