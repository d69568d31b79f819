package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists invocations in SQLite.
type SQLiteStore struct {
	db    *sql.DB
	owned bool
}

// NewSQLiteStore creates a SQLite-backed store on an existing connection and
// ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureAuditSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// Close closes the underlying database when this store opened it.
func (s *SQLiteStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Record stores a single invocation.
func (s *SQLiteStore) Record(ctx context.Context, inv Invocation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO capability_invocations (
			session_id, run_id, iteration, capability, call_id, arguments, outcome, error_text, started_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.SessionID,
		inv.RunID,
		inv.Iteration,
		inv.Capability,
		inv.CallID,
		inv.Arguments,
		inv.Outcome,
		inv.Error,
		normalizeTime(inv.StartedAt),
		float64(inv.Duration.Microseconds())/1000.0,
	)
	return err
}

// List returns invocations matching the filter.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]Invocation, error) {
	query := `
		SELECT session_id, run_id, iteration, capability, call_id, arguments, outcome, error_text, started_at, duration_ms
		FROM capability_invocations
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		if value != nil {
			args = append(args, value)
		}
	}
	if filter.SessionID != "" {
		addFilter("session_id = ?", filter.SessionID)
	}
	if filter.Capability != "" {
		addFilter("capability = ?", filter.Capability)
	}
	if filter.FailedOnly {
		addFilter("error_text != ''", nil)
	}
	query += where + " ORDER BY started_at ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invocations []Invocation
	for rows.Next() {
		var (
			inv        Invocation
			started    sql.NullTime
			durationMs float64
		)
		if err := rows.Scan(
			&inv.SessionID,
			&inv.RunID,
			&inv.Iteration,
			&inv.Capability,
			&inv.CallID,
			&inv.Arguments,
			&inv.Outcome,
			&inv.Error,
			&started,
			&durationMs,
		); err != nil {
			return nil, err
		}
		if started.Valid {
			inv.StartedAt = started.Time
		}
		inv.Duration = time.Duration(durationMs * float64(time.Millisecond))
		invocations = append(invocations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invocations, nil
}

func ensureAuditSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS capability_invocations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			run_id TEXT,
			iteration INTEGER NOT NULL DEFAULT 0,
			capability TEXT NOT NULL,
			call_id TEXT,
			arguments TEXT,
			outcome TEXT,
			error_text TEXT,
			started_at TIMESTAMP,
			duration_ms REAL
		);
		CREATE INDEX IF NOT EXISTS idx_capability_invocations_session ON capability_invocations(session_id);
		CREATE INDEX IF NOT EXISTS idx_capability_invocations_capability ON capability_invocations(capability);
	`)
	return err
}
