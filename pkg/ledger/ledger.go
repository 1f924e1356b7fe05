// Package ledger records tombstones for asset IDs that were probed
// and found absent, so later runs can tell a confirmed hole from an ID
// that was never checked.
//
// The ledger is an optional side index: archive contents and the scan
// frontier never depend on it. Losing the ledger only costs gapfill
// some redundant probes.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Ledger is a SQLite-backed tombstone store.
type Ledger struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS tombstone (
	id        INTEGER PRIMARY KEY,
	probed_at TEXT NOT NULL
);`

// Open opens or creates the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// MarkAbsent records that the ID was probed at t and no asset existed.
// Re-marking an ID updates its probe time.
func (l *Ledger) MarkAbsent(ctx context.Context, id int64, t time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO tombstone (id, probed_at) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET probed_at = excluded.probed_at`,
		id, t.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("mark asset %d absent: %w", id, err)
	}
	return nil
}

// ClearAbsent drops the tombstone for an ID that turned out to exist.
// Clearing an ID with no tombstone is a no-op.
func (l *Ledger) ClearAbsent(ctx context.Context, id int64) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM tombstone WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("clear tombstone for asset %d: %w", id, err)
	}
	return nil
}

// IsAbsent reports whether the ID has a tombstone.
func (l *Ledger) IsAbsent(ctx context.Context, id int64) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tombstone WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query tombstone for asset %d: %w", id, err)
	}
	return n > 0, nil
}

// AbsentIDs returns the set of all tombstoned IDs.
func (l *Ledger) AbsentIDs(ctx context.Context) (map[int64]struct{}, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT id FROM tombstone`)
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tombstone row: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tombstones: %w", err)
	}
	return ids, nil
}
