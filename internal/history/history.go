package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry is one recorded state change.
type Entry struct {
	ID        int64           `json:"id"`
	Kind      string          `json:"kind"`
	Address   string          `json:"address"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
}

// Repository records published state changes in SQLite for the admin
// history endpoint.
//
// Thread Safety: database/sql connections are safe for concurrent use.
type Repository struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database.
//
// Parameters:
//   - path: SQLite file location
//
// Returns:
//   - *Repository: Ready repository with schema applied
//   - error: If the database cannot be opened or migrated
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS state_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	kind TEXT NOT NULL,
	address TEXT NOT NULL,
	state TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_state_history_addr
	ON state_history (kind, address, created_at);`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history db: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Record inserts a state change for a device.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - kind: Device kind ("light", "cover", "temp", ...)
//   - address: Bus address string (or group ID)
//   - state: State payload as published
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Record(ctx context.Context, kind, address string, state json.RawMessage) error {
	if kind == "" || address == "" {
		return fmt.Errorf("kind and address are required")
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO state_history (kind, address, state) VALUES (?, ?, ?)",
		kind, address, string(state),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// Get returns recent entries for a device, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - kind, address: Device identity
//   - limit: Maximum entries (default 50, max 200)
func (r *Repository) Get(ctx context.Context, kind, address string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, kind, address, state, created_at
		 FROM state_history
		 WHERE kind = ? AND address = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		kind, address, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var e Entry
		var stateJSON, createdAt string
		if err := rows.Scan(&e.ID, &e.Kind, &e.Address, &stateJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		e.State = json.RawMessage(stateJSON)

		ts, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = ts
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than the given duration.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM state_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	return result.RowsAffected()
}

// parseTimestamp parses a timestamp stored in SQLite.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	ts, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return ts, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02 15:04:05", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
