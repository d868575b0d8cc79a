package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// SetPreference upserts a user preference. The value type is recorded so
// readers can interpret the stored string.
func (s *Store) SetPreference(ctx context.Context, key, value, valueType string) error {
	if valueType == "" {
		valueType = "string"
	}
	now := formatTime(s.clock())
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO user_preferences (key, value, value_type, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (key) DO UPDATE SET value = excluded.value, value_type = excluded.value_type, updated_at = excluded.updated_at`,
		key, value, valueType, now, now,
	)
	if err != nil {
		return mapSQLiteErr("set preference", err)
	}
	return nil
}

// GetPreference returns a preference value, or fallback when unset.
func (s *Store) GetPreference(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM user_preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference: %w", err)
	}
	return value, nil
}

// GetPreferenceBool returns a boolean preference, or fallback when unset or
// unparsable.
func (s *Store) GetPreferenceBool(ctx context.Context, key string, fallback bool) (bool, error) {
	raw, err := s.GetPreference(ctx, key, "")
	if err != nil {
		return fallback, err
	}
	if raw == "" {
		return fallback, nil
	}
	parsed, parseErr := strconv.ParseBool(raw)
	if parseErr != nil {
		return fallback, nil
	}
	return parsed, nil
}

// DeletePreference removes a preference if present.
func (s *Store) DeletePreference(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_preferences WHERE key = ?`, key); err != nil {
		return mapSQLiteErr("delete preference", err)
	}
	return nil
}
