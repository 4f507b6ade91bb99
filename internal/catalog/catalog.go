// Package catalog is the storage core's Index (C4): a transactional
// modernc.org/sqlite-backed view of notes, folders, storage directories,
// images, and in-flight moves, plus a small key-value state table. It
// never touches note content — that is the CRDT manager's job — only the
// metadata needed to enumerate and locate notes without loading them.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS notes (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	sd_id TEXT NOT NULL,
	folder_id TEXT,
	created INTEGER NOT NULL,
	modified INTEGER NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	pinned INTEGER NOT NULL DEFAULT 0,
	content_preview TEXT,
	content_text TEXT
);
CREATE INDEX IF NOT EXISTS idx_notes_sd ON notes(sd_id);

CREATE TABLE IF NOT EXISTS folders (
	id TEXT PRIMARY KEY,
	sd_id TEXT NOT NULL,
	name TEXT NOT NULL,
	parent_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_folders_sd ON folders(sd_id);

CREATE TABLE IF NOT EXISTS storage_dirs (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	path TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS images (
	id TEXT PRIMARY KEY,
	sd_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_images_sd ON images(sd_id);

CREATE TABLE IF NOT EXISTS note_moves (
	id TEXT PRIMARY KEY,
	note_id TEXT NOT NULL,
	source_sd_id TEXT NOT NULL,
	target_sd_id TEXT NOT NULL,
	target_folder_id TEXT,
	state TEXT NOT NULL,
	initiated_by TEXT NOT NULL,
	initiated_at INTEGER NOT NULL,
	last_modified INTEGER NOT NULL,
	source_sd_path TEXT,
	target_sd_path TEXT,
	error TEXT
);
CREATE INDEX IF NOT EXISTS idx_moves_state ON note_moves(state);

CREATE TABLE IF NOT EXISTS state (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Catalog wraps a single modernc.org/sqlite connection.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite catalog at dbPath and applies
// its schema. dbPath may be ":memory:" for tests.
func Open(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := db.Exec(`
		INSERT INTO state (key, value) VALUES ('schemaVersion', ?)
		ON CONFLICT(key) DO NOTHING
	`, currentSchemaVersion); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("stamp schema version: %w", err)
	}
	return &Catalog{db: db}, nil
}

// currentSchemaVersion is recorded once per database under the
// "schemaVersion" state key on first Open; a future migration would bump
// this and branch on the stored value.
const currentSchemaVersion = "1"

// Close closes the underlying database handle.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// WithTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic. Multi-statement catalog work (e.g. the move
// engine's delete-then-insert) must go through this to get atomicity.
func (c *Catalog) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	err = fn(tx)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool { return i != 0 }

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// notFoundErr mirrors the §7 error taxonomy's NotFound{entity, id}.
type notFoundErr struct {
	entity string
	id     string
}

func (e *notFoundErr) Error() string {
	return fmt.Sprintf("%s not found: %s", e.entity, e.id)
}

// NotFound reports whether err is the catalog's own not-found sentinel.
func NotFound(err error) bool {
	_, ok := err.(*notFoundErr)
	return ok
}
