package move

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/drewcsillag/notecove-storage/api"
	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/events"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

// FSOpener resolves a Storage Directory's root path to a Filesystem. In
// production this is storagefs.NewOS; tests substitute an in-memory
// registry so two "different" SDs can be exercised in one process without
// touching the real disk.
type FSOpener func(root string) *storagefs.Filesystem

// Engine drives the cross-SD move state machine described in §4.7.
type Engine struct {
	Catalog    *catalog.Catalog
	OpenFS     FSOpener
	Bus        *events.Bus
	InstanceID string
	Now        func() time.Time // overridable for deterministic tests
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now().UTC()
}

// InitiateMove creates a new move record in the initiated state. Per
// §9's open question on ".moving-" collisions, a note may have at most
// one non-terminal move in flight at a time; this is enforced here with
// a catalog query rather than left to chance.
func (e *Engine) InitiateMove(ctx context.Context, noteID, sourceSDID, targetSDID, targetFolderID string) (string, error) {
	if inFlight, err := e.Catalog.HasNonTerminalMoveForNote(ctx, noteID); err != nil {
		return "", fmt.Errorf("move: check in-flight moves: %w", err)
	} else if inFlight {
		return "", fmt.Errorf("move: note %s already has a move in flight", noteID)
	}

	source, err := e.Catalog.GetStorageDir(ctx, sourceSDID)
	if err != nil {
		return "", fmt.Errorf("move: resolve source sd: %w", err)
	}
	target, err := e.Catalog.GetStorageDir(ctx, targetSDID)
	if err != nil {
		return "", fmt.Errorf("move: resolve target sd: %w", err)
	}

	now := e.now()
	rec := api.MoveRecord{
		ID:             uuid.NewString(),
		NoteID:         noteID,
		SourceSDID:     sourceSDID,
		TargetSDID:     targetSDID,
		TargetFolderID: targetFolderID,
		State:          api.MoveInitiated,
		InitiatedBy:    e.InstanceID,
		InitiatedAt:    now,
		LastModified:   now,
		SourceSDPath:   source.Path,
		TargetSDPath:   target.Path,
	}
	if err := e.Catalog.InsertMove(ctx, rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// ExecuteMove runs the happy-path sequence in §4.7 from start to finish.
// Any failure triggers rollback.
func (e *Engine) ExecuteMove(ctx context.Context, moveID string) error {
	return e.run(ctx, moveID, "")
}

// CancelMove transitions a move from initiated directly to cancelled,
// the one terminal state reachable without ever having touched disk.
func (e *Engine) CancelMove(ctx context.Context, moveID string) error {
	rec, err := e.Catalog.GetMove(ctx, moveID)
	if err != nil {
		return err
	}
	return e.transition(ctx, &rec, api.MoveCancelled)
}

// ExecuteMoveToState is the test hook from §4.7: it runs the state
// machine and returns once moveID reaches stopAtState, without
// transitioning past it. Recovery must still complete the move correctly
// afterward — this only simulates a crash, it never corrupts state.
func (e *Engine) ExecuteMoveToState(ctx context.Context, moveID string, stopAtState api.MoveState) error {
	return e.run(ctx, moveID, stopAtState)
}

func (e *Engine) run(ctx context.Context, moveID string, stopAtState api.MoveState) (err error) {
	rec, err := e.Catalog.GetMove(ctx, moveID)
	if err != nil {
		return err
	}
	if rec.State != api.MoveInitiated {
		return &InvalidTransition{MoveID: moveID, From: rec.State, To: api.MoveCopying}
	}

	defer func() {
		if err != nil {
			if rbErr := e.rollback(ctx, &rec, err); rbErr != nil {
				err = fmt.Errorf("move %s: rollback also failed: %v (original: %w)", moveID, rbErr, err)
			}
		}
	}()

	srcFS := e.OpenFS(rec.SourceSDPath)
	dstFS := e.OpenFS(rec.TargetSDPath)
	movingPath := "notes/.moving-" + rec.NoteID
	finalPath := "notes/" + rec.NoteID
	sourcePath := "notes/" + rec.NoteID

	if err = e.transition(ctx, &rec, api.MoveCopying); err != nil {
		return err
	}
	if stopAtState == api.MoveCopying {
		return nil
	}

	if err = storagefs.CopyTree(srcFS, sourcePath, dstFS, movingPath); err != nil {
		return fmt.Errorf("move %s: copy: %w", moveID, err)
	}

	if err = e.transition(ctx, &rec, api.MoveFilesCopied); err != nil {
		return err
	}
	if stopAtState == api.MoveFilesCopied {
		return nil
	}

	if err = e.updateCatalogForMove(ctx, &rec); err != nil {
		return fmt.Errorf("move %s: catalog update: %w", moveID, err)
	}

	if err = e.transition(ctx, &rec, api.MoveDBUpdated); err != nil {
		return err
	}
	if stopAtState == api.MoveDBUpdated {
		return nil
	}

	if err = dstFS.RenamePath(movingPath, finalPath); err != nil {
		return fmt.Errorf("move %s: rename: %w", moveID, err)
	}

	if err = e.transition(ctx, &rec, api.MoveCleaning); err != nil {
		return err
	}
	if stopAtState == api.MoveCleaning {
		return nil
	}

	if err = srcFS.RemoveAll(sourcePath); err != nil {
		return fmt.Errorf("move %s: cleanup source: %w", moveID, err)
	}

	if err = e.transition(ctx, &rec, api.MoveCompleted); err != nil {
		return err
	}
	return nil
}

// updateCatalogForMove performs the delete-then-insert required because
// notes.id is globally unique (§4.7 step 5): delete the source row, then
// insert (or, if a prior failed attempt already left a row in the target
// SD, update) the target row, inside one transaction.
func (e *Engine) updateCatalogForMove(ctx context.Context, rec *api.MoveRecord) error {
	note, err := e.Catalog.GetNote(ctx, rec.NoteID)
	if err != nil {
		return err
	}
	note.SDID = rec.TargetSDID
	if rec.TargetFolderID != "" {
		note.FolderID = rec.TargetFolderID
	}

	return e.Catalog.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.Catalog.DeleteNoteTx(tx, rec.NoteID, rec.SourceSDID); err != nil {
			return err
		}
		return e.Catalog.UpsertNoteTx(tx, note)
	})
}
