package move

import (
	"context"
	"database/sql"

	"github.com/drewcsillag/notecove-storage/api"
	"github.com/drewcsillag/notecove-storage/internal/events"
)

// transition validates and persists a state change, updating rec in place
// and publishing a move:transitioned event. State transitions are written
// to the catalog synchronously before the next physical action begins
// (§5's ordering guarantee).
func (e *Engine) transition(ctx context.Context, rec *api.MoveRecord, to api.MoveState) error {
	if err := ValidateTransition(rec.ID, rec.State, to); err != nil {
		return err
	}
	from := rec.State
	now := e.now()
	if err := e.Catalog.UpdateMoveState(ctx, rec.ID, to, now.UnixMilli(), ""); err != nil {
		return err
	}
	rec.State = to
	rec.LastModified = now
	if e.Bus != nil {
		e.Bus.Publish(events.TopicMoveTransitioned, api.MoveTransitioned{MoveID: rec.ID, From: from, To: to})
	}
	return nil
}

// rollback implements §4.7's rollback procedure: remove any in-flight
// .moving- directory, revert the catalog row to the source SD if the
// delete-then-insert already ran, record the composite error, and
// transition to rolled_back. A rollback that itself fails still forces
// the terminal transition so the move is never retried forever.
func (e *Engine) rollback(ctx context.Context, rec *api.MoveRecord, cause error) error {
	var composite error

	if rec.State == api.MoveCopying || rec.State == api.MoveFilesCopied ||
		rec.State == api.MoveDBUpdated || rec.State == api.MoveCleaning {
		if dstFS := e.OpenFS(rec.TargetSDPath); dstFS != nil {
			if err := dstFS.RemoveAll("notes/.moving-" + rec.NoteID); err != nil {
				composite = appendErr(composite, err)
			}
		}
	}

	if note, err := e.Catalog.GetNote(ctx, rec.NoteID); err == nil && note.SDID == rec.TargetSDID {
		err := e.Catalog.WithTx(ctx, func(tx *sql.Tx) error {
			if err := e.Catalog.DeleteNoteTx(tx, rec.NoteID, rec.TargetSDID); err != nil {
				return err
			}
			note.SDID = rec.SourceSDID
			return e.Catalog.UpsertNoteTx(tx, note)
		})
		if err != nil {
			composite = appendErr(composite, err)
		}
	}

	errMsg := cause.Error()
	if composite != nil {
		errMsg = errMsg + "; rollback: " + composite.Error()
	}

	now := e.now()
	if err := e.Catalog.UpdateMoveState(ctx, rec.ID, api.MoveRolledBack, now.UnixMilli(), errMsg); err != nil {
		return err
	}
	from := rec.State
	rec.State = api.MoveRolledBack
	rec.LastModified = now
	rec.Error = errMsg
	if e.Bus != nil {
		e.Bus.Publish(events.TopicMoveTransitioned, api.MoveTransitioned{MoveID: rec.ID, From: from, To: api.MoveRolledBack})
	}
	return composite
}

func appendErr(existing, next error) error {
	if existing == nil {
		return next
	}
	return &multiErr{first: existing, second: next}
}

type multiErr struct {
	first, second error
}

func (m *multiErr) Error() string {
	return m.first.Error() + "; " + m.second.Error()
}
