/*
Package sqlite provides a SQLite-backed DataStore and AuditLog.

PURPOSE:
  Persists the whole dataset as one JSON document in a key-value table,
  plus an append-only audit table.

KEY TABLES:
  kv:        key -> JSON document (the dataset lives under one key)
  audit_log: one row per successful mutation, never updated or deleted

MIGRATIONS:
  Versioned goose migrations are embedded and applied on New().

CONCURRENCY:
  The service already serializes writers; the pool is capped at one
  connection so ":memory:" databases stay a single database.

USAGE:
  st, err := sqlite.New("./leave-tracker.db", "employeeData")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

SEE ALSO:
  - tracker/store.go: interface definitions
  - tracker/store/memory.go: in-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/warp/leave-tracker/tracker"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// DefaultKey is the document key the dataset is stored under.
const DefaultKey = "employeeData"

// Store implements tracker.DataStore and tracker.AuditLog.
type Store struct {
	db  *sqlx.DB
	key string
}

// New opens (or creates) the database at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath, key string) (*Store, error) {
	if key == "" {
		key = DefaultKey
	}
	db, err := sqlx.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, key: key}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// DATA STORE (tracker.DataStore interface)
// =============================================================================

// Load decodes the stored dataset. found is false if the key was never written.
func (s *Store) Load(ctx context.Context) (*tracker.DataSet, bool, error) {
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT value FROM kv WHERE key = ?`, s.key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %q: %w", s.key, err)
	}

	var ds tracker.DataSet
	if err := json.Unmarshal([]byte(raw), &ds); err != nil {
		return nil, false, fmt.Errorf("failed to decode %q: %w", s.key, err)
	}
	return &ds, true, nil
}

// Save replaces the stored dataset.
func (s *Store) Save(ctx context.Context, ds *tracker.DataSet) error {
	raw, err := json.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to encode dataset: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.key, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", s.key, err)
	}
	return nil
}

// =============================================================================
// AUDIT LOG (tracker.AuditLog interface)
// =============================================================================

type auditRow struct {
	ID          string         `db:"id"`
	Timestamp   string         `db:"timestamp"`
	Action      string         `db:"action"`
	EmployeeID  int64          `db:"employee_id"`
	RequestID   int64          `db:"request_id"`
	PayloadJSON sql.NullString `db:"payload_json"`
}

// Append adds an audit entry. Append-only.
func (s *Store) Append(ctx context.Context, e tracker.AuditEntry) error {
	var payload sql.NullString
	if len(e.Payload) > 0 {
		b, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode audit payload: %w", err)
		}
		payload = sql.NullString{String: string(b), Valid: true}
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, action, employee_id, request_id, payload_json)
		VALUES (:id, :timestamp, :action, :employee_id, :request_id, :payload_json)
	`, auditRow{
		ID:          e.ID,
		Timestamp:   e.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:      string(e.Action),
		EmployeeID:  e.EmployeeID,
		RequestID:   e.RequestID,
		PayloadJSON: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Query returns matching entries, newest first.
func (s *Store) Query(ctx context.Context, f tracker.AuditFilter) ([]tracker.AuditEntry, error) {
	query := `SELECT id, timestamp, action, employee_id, request_id, payload_json FROM audit_log WHERE 1=1`
	var args []any
	if f.EmployeeID != 0 {
		query += ` AND employee_id = ?`
		args = append(args, f.EmployeeID)
	}
	if f.RequestID != 0 {
		query += ` AND request_id = ?`
		args = append(args, f.RequestID)
	}
	if len(f.Actions) > 0 {
		actions := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			actions[i] = string(a)
		}
		query += ` AND action IN (?)`
		args = append(args, actions)
	}
	query += ` ORDER BY seq DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to build audit query: %w", err)
	}

	var rows []auditRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}

	out := make([]tracker.AuditEntry, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEntry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r auditRow) toEntry() (tracker.AuditEntry, error) {
	ts, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return tracker.AuditEntry{}, fmt.Errorf("audit entry %s: bad timestamp: %w", r.ID, err)
	}
	e := tracker.AuditEntry{
		ID:         r.ID,
		Timestamp:  ts,
		Action:     tracker.AuditAction(r.Action),
		EmployeeID: r.EmployeeID,
		RequestID:  r.RequestID,
	}
	if r.PayloadJSON.Valid {
		if err := json.Unmarshal([]byte(r.PayloadJSON.String), &e.Payload); err != nil {
			return tracker.AuditEntry{}, fmt.Errorf("audit entry %s: bad payload: %w", r.ID, err)
		}
	}
	return e, nil
}
