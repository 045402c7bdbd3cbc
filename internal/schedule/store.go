package schedule

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"upkeep/internal/config"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases with another version are refused.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an
// incompatible version.
var ErrSchemaMismatch = errors.New("schedule: schema version mismatch")

// Store manages schedule persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the schedule database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "schedules.db")
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

	store := &Store{db: db, path: dbPath}
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

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// Create validates and inserts a new schedule. The id, timestamps, and
// initial next fire time are assigned here.
func (s *Store) Create(ctx context.Context, def Definition) (Definition, error) {
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	now := time.Now()
	def.ID = uuid.NewString()
	def.CreatedAt = now.UTC()
	def.UpdatedAt = now.UTC()
	next, err := NextFire(def, now)
	if err != nil {
		return Definition{}, err
	}
	def.NextFire = next

	operations, weekdays, err := encodeLists(def)
	if err != nil {
		return Definition{}, err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO schedules (
            id, name, operations, frequency, time_of_day, weekdays,
            day_of_month, enabled, last_fired_at, next_fire_at,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, def.Name, operations, string(def.Frequency), def.TimeOfDay, weekdays,
		def.DayOfMonth, boolToInt(def.Enabled), encodeTime(def.LastFired), encodeTime(def.NextFire),
		encodeTime(def.CreatedAt), encodeTime(def.UpdatedAt),
	)
	if err != nil {
		return Definition{}, fmt.Errorf("insert schedule: %w", err)
	}
	return def, nil
}

// Get returns one schedule by id.
func (s *Store) Get(ctx context.Context, id string) (Definition, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" FROM schedules WHERE id = ?", id)
	def, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Definition{}, ErrNotFound
	}
	if err != nil {
		return Definition{}, fmt.Errorf("load schedule: %w", err)
	}
	return def, nil
}

// List returns all schedules ordered by name.
func (s *Store) List(ctx context.Context) ([]Definition, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" FROM schedules ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return defs, nil
}

// Update validates and rewrites an existing schedule. The next fire time
// is recomputed from the new recurrence fields.
func (s *Store) Update(ctx context.Context, def Definition) (Definition, error) {
	if err := def.Validate(); err != nil {
		return Definition{}, err
	}
	now := time.Now()
	def.UpdatedAt = now.UTC()
	next, err := NextFire(def, now)
	if err != nil {
		return Definition{}, err
	}
	def.NextFire = next

	operations, weekdays, err := encodeLists(def)
	if err != nil {
		return Definition{}, err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE schedules SET
            name = ?, operations = ?, frequency = ?, time_of_day = ?,
            weekdays = ?, day_of_month = ?, enabled = ?, next_fire_at = ?,
            updated_at = ?
        WHERE id = ?`,
		def.Name, operations, string(def.Frequency), def.TimeOfDay,
		weekdays, def.DayOfMonth, boolToInt(def.Enabled), encodeTime(def.NextFire),
		encodeTime(def.UpdatedAt), def.ID,
	)
	if err != nil {
		return Definition{}, fmt.Errorf("update schedule: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return Definition{}, ErrNotFound
	}
	return def, nil
}

// Delete removes a schedule.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFired records a fire and the recomputed next fire time.
func (s *Store) MarkFired(ctx context.Context, id string, firedAt, next time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE schedules SET last_fired_at = ?, next_fire_at = ?, updated_at = ? WHERE id = ?",
		encodeTime(firedAt.UTC()), encodeTime(next), encodeTime(time.Now().UTC()), id,
	)
	if err != nil {
		return fmt.Errorf("mark schedule fired: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetNextFire rewrites only the next fire time, used when a tick finds a
// stale value on a disabled schedule.
func (s *Store) SetNextFire(ctx context.Context, id string, next time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE schedules SET next_fire_at = ? WHERE id = ?",
		encodeTime(next), id,
	)
	if err != nil {
		return fmt.Errorf("set next fire: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `SELECT
    id, name, operations, frequency, time_of_day, weekdays,
    day_of_month, enabled, last_fired_at, next_fire_at,
    created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (Definition, error) {
	var (
		def        Definition
		operations string
		weekdays   string
		frequency  string
		enabled    int
		lastFired  sql.NullString
		nextFire   sql.NullString
		createdAt  string
		updatedAt  string
	)
	err := row.Scan(
		&def.ID, &def.Name, &operations, &frequency, &def.TimeOfDay, &weekdays,
		&def.DayOfMonth, &enabled, &lastFired, &nextFire, &createdAt, &updatedAt,
	)
	if err != nil {
		return Definition{}, err
	}
	def.Frequency = Frequency(frequency)
	def.Enabled = enabled != 0
	if err := json.Unmarshal([]byte(operations), &def.Operations); err != nil {
		return Definition{}, fmt.Errorf("decode operations: %w", err)
	}
	if err := json.Unmarshal([]byte(weekdays), &def.Weekdays); err != nil {
		return Definition{}, fmt.Errorf("decode weekdays: %w", err)
	}
	if def.LastFired, err = decodeNullTime(lastFired); err != nil {
		return Definition{}, err
	}
	if def.NextFire, err = decodeNullTime(nextFire); err != nil {
		return Definition{}, err
	}
	if def.CreatedAt, err = decodeTime(createdAt); err != nil {
		return Definition{}, err
	}
	if def.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return Definition{}, err
	}
	return def, nil
}

func encodeLists(def Definition) (string, string, error) {
	operations, err := json.Marshal(def.Operations)
	if err != nil {
		return "", "", fmt.Errorf("encode operations: %w", err)
	}
	weekdays := def.Weekdays
	if weekdays == nil {
		weekdays = []time.Weekday{}
	}
	days, err := json.Marshal(weekdays)
	if err != nil {
		return "", "", fmt.Errorf("encode weekdays: %w", err)
	}
	return string(operations), string(days), nil
}

func encodeTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func decodeTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t, nil
}

func decodeNullTime(value sql.NullString) (time.Time, error) {
	if !value.Valid || value.String == "" {
		return time.Time{}, nil
	}
	return decodeTime(value.String)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
