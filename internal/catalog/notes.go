package catalog

import (
	"context"
	"database/sql"

	"github.com/drewcsillag/notecove-storage/api"
)

// UpsertNote inserts or replaces a note row. notes.id is globally unique,
// enforced by the primary key.
func (c *Catalog) UpsertNote(ctx context.Context, n api.Note) error {
	return c.upsertNoteTx(ctx, nil, n)
}

// UpsertNoteTx is UpsertNote run inside an existing transaction, used by
// the move engine's delete-then-insert sequence.
func (c *Catalog) UpsertNoteTx(tx *sql.Tx, n api.Note) error {
	return c.upsertNoteTx(context.Background(), tx, n)
}

func (c *Catalog) upsertNoteTx(ctx context.Context, tx *sql.Tx, n api.Note) error {
	const q = `
	INSERT INTO notes (id, title, sd_id, folder_id, created, modified, deleted, pinned, content_preview, content_text)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title=excluded.title, sd_id=excluded.sd_id, folder_id=excluded.folder_id,
		created=excluded.created, modified=excluded.modified, deleted=excluded.deleted,
		pinned=excluded.pinned, content_preview=excluded.content_preview, content_text=excluded.content_text
	`
	args := []any{
		n.ID, n.Title, n.SDID, n.FolderID, n.Created.UnixMilli(), n.Modified.UnixMilli(),
		boolToInt(n.Deleted), boolToInt(n.Pinned), n.ContentPreview, n.ContentText,
	}
	if tx != nil {
		_, err := tx.ExecContext(ctx, q, args...)
		return err
	}
	_, err := c.db.ExecContext(ctx, q, args...)
	return err
}

// GetNote reads a single note by id.
func (c *Catalog) GetNote(ctx context.Context, id string) (api.Note, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, title, sd_id, folder_id, created, modified, deleted, pinned, content_preview, content_text
		FROM notes WHERE id = ?`, id)
	return scanNote(row)
}

// ListNotesBySD enumerates every note row in an SD, soft-deleted ones
// included.
func (c *Catalog) ListNotesBySD(ctx context.Context, sdID string) ([]api.Note, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, title, sd_id, folder_id, created, modified, deleted, pinned, content_preview, content_text
		FROM notes WHERE sd_id = ?`, sdID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var notes []api.Note
	for rows.Next() {
		n, err := scanNoteRows(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// MostRecentNonDeletedNote returns the most-recently-modified note across
// every SD this catalog tracks that has not been soft-deleted, for the
// default-note bootstrap's "select an existing note instead" fallback
// (§4.9): once the user deletes the default note, it is never recreated,
// so something else has to be shown in its place. ok is false when no
// such note exists (a brand-new, fully empty instance).
func (c *Catalog) MostRecentNonDeletedNote(ctx context.Context) (n api.Note, ok bool, err error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, title, sd_id, folder_id, created, modified, deleted, pinned, content_preview, content_text
		FROM notes WHERE deleted = 0 ORDER BY modified DESC LIMIT 1`)
	n, err = scanNote(row)
	if err == sql.ErrNoRows {
		return api.Note{}, false, nil
	}
	if err != nil {
		return api.Note{}, false, err
	}
	return n, true, nil
}

// DeleteNote removes a note's catalog row, scoped to sdID so a cross-SD
// move's delete cannot touch a note of the same id in another SD (it
// can't happen by invariant, but the scope makes the intent explicit).
func (c *Catalog) DeleteNote(ctx context.Context, id, sdID string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND sd_id = ?`, id, sdID)
	return err
}

// DeleteNoteTx is DeleteNote run inside an existing transaction.
func (c *Catalog) DeleteNoteTx(tx *sql.Tx, id, sdID string) error {
	_, err := tx.Exec(`DELETE FROM notes WHERE id = ? AND sd_id = ?`, id, sdID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row *sql.Row) (api.Note, error) {
	return scanNoteGeneric(row)
}

func scanNoteRows(rows *sql.Rows) (api.Note, error) {
	return scanNoteGeneric(rows)
}

func scanNoteGeneric(s rowScanner) (api.Note, error) {
	var n api.Note
	var folderID sql.NullString
	var created, modified int64
	var deleted, pinned int
	var preview, text sql.NullString

	if err := s.Scan(&n.ID, &n.Title, &n.SDID, &folderID, &created, &modified, &deleted, &pinned, &preview, &text); err != nil {
		return api.Note{}, err
	}
	n.FolderID = folderID.String
	n.Created = millisToTime(created)
	n.Modified = millisToTime(modified)
	n.Deleted = intToBool(deleted)
	n.Pinned = intToBool(pinned)
	n.ContentPreview = preview.String
	n.ContentText = text.String
	return n, nil
}
