package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mediabutler/internal/config"
	"mediabutler/internal/events"
	"mediabutler/internal/recovery"
)

// Clock supplies the current UTC time. Injectable for tests.
type Clock func() time.Time

// Store manages all persistence backed by SQLite.
type Store struct {
	db    *sql.DB
	path  string
	clock Clock
	sink  events.Sink
}

// Option configures optional Store behavior.
type Option func(*Store)

// WithClock overrides the audit-stamping clock.
func WithClock(clock Clock) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithEventSink sets the sink that receives post-commit domain events.
func WithEventSink(sink events.Sink) Option {
	return func(s *Store) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// Open initializes or connects to the database and applies the schema.
func Open(cfg *config.Config, opts ...Option) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:    db,
		path:  dbPath,
		clock: func() time.Time { return time.Now().UTC() },
		sink:  events.NopSink{},
	}
	for _, opt := range opts {
		opt(store)
	}

	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Now returns the store's current UTC time.
func (s *Store) Now() time.Time { return s.clock() }

// Scope is one unit of work: a transaction plus the domain events queued
// during it. Events are dispatched only after a successful commit.
type Scope struct {
	tx     *sql.Tx
	store  *Store
	now    time.Time
	events []events.Event
}

// Publish queues a domain event for post-commit delivery, in queue order.
func (sc *Scope) Publish(event events.Event) {
	if event.At.IsZero() {
		event.At = sc.now
	}
	sc.events = append(sc.events, event)
}

// Now returns the timestamp the scope stamps audit fields with.
func (sc *Scope) Now() time.Time { return sc.now }

// WithScope runs fn inside a unit-of-work transaction. On success the
// transaction commits and queued events are dispatched in order; on failure
// everything rolls back and no event leaves the scope. Commit conflicts are
// surfaced as retryable conflict errors.
func (s *Store) WithScope(ctx context.Context, fn func(*Scope) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapSQLiteErr("begin scope", err)
	}
	scope := &Scope{tx: tx, store: s, now: s.clock()}

	if err := fn(scope); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapSQLiteErr("commit scope", err)
	}

	for _, event := range scope.events {
		if err := s.sink.Publish(ctx, event); err != nil {
			// At-least-once, fire-and-forget: a sink failure never fails the
			// committed operation.
			continue
		}
	}
	return nil
}

func mapSQLiteErr(operation string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy") {
		return recovery.Wrap(recovery.ErrConflict, "store", operation, "database busy", err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// auditStamp applies the audit-field rules for an inserted row: both stamps
// default to the scope time, but a preset value further than 10 s from now
// is preserved so tests can inject timestamps.
func (sc *Scope) auditStamp(preset time.Time) time.Time {
	if preset.IsZero() {
		return sc.now
	}
	if diff := sc.now.Sub(preset); diff > 10*time.Second || diff < -10*time.Second {
		return preset
	}
	return sc.now
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func formatTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
