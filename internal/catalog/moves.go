package catalog

import (
	"context"
	"database/sql"

	"github.com/drewcsillag/notecove-storage/api"
)

// InsertMove creates a new move record in the initiated state.
func (c *Catalog) InsertMove(ctx context.Context, m api.MoveRecord) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO note_moves (id, note_id, source_sd_id, target_sd_id, target_folder_id, state,
			initiated_by, initiated_at, last_modified, source_sd_path, target_sd_path, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.NoteID, m.SourceSDID, m.TargetSDID, m.TargetFolderID, string(m.State),
		m.InitiatedBy, m.InitiatedAt.UnixMilli(), m.LastModified.UnixMilli(),
		m.SourceSDPath, m.TargetSDPath, m.Error)
	return err
}

// GetMove reads a move record by id.
func (c *Catalog) GetMove(ctx context.Context, id string) (api.MoveRecord, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT id, note_id, source_sd_id, target_sd_id, target_folder_id, state,
			initiated_by, initiated_at, last_modified, source_sd_path, target_sd_path, error
		FROM note_moves WHERE id = ?`, id)
	m, err := scanMove(row)
	if err == sql.ErrNoRows {
		return api.MoveRecord{}, &notFoundErr{entity: "move", id: id}
	}
	return m, err
}

// UpdateMoveState updates a move's state, last_modified, and error fields.
// Callers are expected to have already validated the transition against
// the move package's state graph (move.ValidateTransition) before calling
// this.
func (c *Catalog) UpdateMoveState(ctx context.Context, id string, state api.MoveState, lastModifiedMs int64, moveErr string) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE note_moves SET state = ?, last_modified = ?, error = ? WHERE id = ?
	`, string(state), lastModifiedMs, moveErr, id)
	return err
}

// UpdateMovePaths refreshes the cached source/target SD paths, used when
// recovery re-resolves them from the current storage_dirs rows.
func (c *Catalog) UpdateMovePaths(ctx context.Context, id, sourcePath, targetPath string) error {
	_, err := c.db.ExecContext(ctx, `
		UPDATE note_moves SET source_sd_path = ?, target_sd_path = ? WHERE id = ?
	`, sourcePath, targetPath, id)
	return err
}

// ListNonTerminalMoves returns every move not in a terminal state.
func (c *Catalog) ListNonTerminalMoves(ctx context.Context) ([]api.MoveRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, note_id, source_sd_id, target_sd_id, target_folder_id, state,
			initiated_by, initiated_at, last_modified, source_sd_path, target_sd_path, error
		FROM note_moves WHERE state NOT IN (?, ?, ?)
	`, string(api.MoveCompleted), string(api.MoveCancelled), string(api.MoveRolledBack))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	return scanMoves(rows)
}

// HasNonTerminalMoveForNote reports whether noteId already has a
// non-terminal move record, used to enforce the §9 open-question
// assumption that at most one move is ever in flight per note.
func (c *Catalog) HasNonTerminalMoveForNote(ctx context.Context, noteID string) (bool, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT 1 FROM note_moves WHERE note_id = ? AND state NOT IN (?, ?, ?) LIMIT 1
	`, noteID, string(api.MoveCompleted), string(api.MoveCancelled), string(api.MoveRolledBack))
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteTerminalMovesOlderThan deletes terminal move records whose
// last_modified predates cutoffMs, per the 30-day sweep in §4.7.
func (c *Catalog) DeleteTerminalMovesOlderThan(ctx context.Context, cutoffMs int64) (int64, error) {
	res, err := c.db.ExecContext(ctx, `
		DELETE FROM note_moves WHERE state IN (?, ?, ?) AND last_modified < ?
	`, string(api.MoveCompleted), string(api.MoveCancelled), string(api.MoveRolledBack), cutoffMs)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanMove(row *sql.Row) (api.MoveRecord, error) {
	return scanMoveGeneric(row)
}

func scanMoves(rows *sql.Rows) ([]api.MoveRecord, error) {
	var out []api.MoveRecord
	for rows.Next() {
		m, err := scanMoveGeneric(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMoveGeneric(s rowScanner) (api.MoveRecord, error) {
	var m api.MoveRecord
	var state string
	var targetFolderID, sourcePath, targetPath, moveErr sql.NullString
	var initiatedAt, lastModified int64

	if err := s.Scan(&m.ID, &m.NoteID, &m.SourceSDID, &m.TargetSDID, &targetFolderID, &state,
		&m.InitiatedBy, &initiatedAt, &lastModified, &sourcePath, &targetPath, &moveErr); err != nil {
		return api.MoveRecord{}, err
	}
	m.TargetFolderID = targetFolderID.String
	m.State = api.MoveState(state)
	m.InitiatedAt = millisToTime(initiatedAt)
	m.LastModified = millisToTime(lastModified)
	m.SourceSDPath = sourcePath.String
	m.TargetSDPath = targetPath.String
	m.Error = moveErr.String
	return m, nil
}
