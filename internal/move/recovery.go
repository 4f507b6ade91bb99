package move

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/drewcsillag/notecove-storage/api"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

const staleMoveThreshold = 5 * time.Minute

// StaleMove reports a non-terminal move owned by another instance that
// has not advanced recently. §4.7: these are only reported, never acted
// upon — the initiating instance owns the move.
type StaleMove struct {
	MoveID       string
	InitiatedBy  string
	State        api.MoveState
	LastModified time.Time
}

// RecoverIncompleteMoves resumes every non-terminal move this instance
// initiated, and reports (without touching) stale moves owned by other
// instances. Idempotent: running it twice on the same catalog state
// yields the same terminal outcome both times.
func (e *Engine) RecoverIncompleteMoves(ctx context.Context) ([]StaleMove, error) {
	pending, err := e.Catalog.ListNonTerminalMoves(ctx)
	if err != nil {
		return nil, err
	}

	var stale []StaleMove
	now := e.now()

	for _, rec := range pending {
		if rec.InitiatedBy != e.InstanceID {
			if now.Sub(rec.LastModified) > staleMoveThreshold {
				stale = append(stale, StaleMove{
					MoveID: rec.ID, InitiatedBy: rec.InitiatedBy, State: rec.State, LastModified: rec.LastModified,
				})
			}
			continue
		}

		if err := e.recoverOne(ctx, rec); err != nil {
			log.Printf("move: recovery failed for %s: %v", rec.ID, err)
		}
	}

	return stale, nil
}

func (e *Engine) recoverOne(ctx context.Context, rec api.MoveRecord) (err error) {
	source, err := e.Catalog.GetStorageDir(ctx, rec.SourceSDID)
	if err != nil {
		log.Printf("move: source sd %s not mounted, deferring move %s", rec.SourceSDID, rec.ID)
		return nil
	}
	target, err := e.Catalog.GetStorageDir(ctx, rec.TargetSDID)
	if err != nil {
		log.Printf("move: target sd %s not mounted, deferring move %s", rec.TargetSDID, rec.ID)
		return nil
	}

	if err := e.Catalog.UpdateMovePaths(ctx, rec.ID, source.Path, target.Path); err != nil {
		return err
	}
	rec.SourceSDPath = source.Path
	rec.TargetSDPath = target.Path

	defer func() {
		if err != nil {
			if rbErr := e.rollback(ctx, &rec, err); rbErr != nil {
				err = fmt.Errorf("move %s: rollback also failed during recovery: %v (original: %w)", rec.ID, rbErr, err)
			}
		}
	}()

	switch rec.State {
	case api.MoveInitiated:
		return e.run(ctx, rec.ID, "")

	case api.MoveCopying:
		dstFS := e.OpenFS(rec.TargetSDPath)
		movingPath := "notes/.moving-" + rec.NoteID
		if ok, _ := dstFS.Exists(movingPath); ok {
			if err := dstFS.RemoveAll(movingPath); err != nil {
				return err
			}
		}
		return e.resumeFromCopy(ctx, &rec)

	case api.MoveFilesCopied:
		return e.resumeFromDBUpdate(ctx, &rec)

	case api.MoveDBUpdated:
		note, nerr := e.Catalog.GetNote(ctx, rec.NoteID)
		if nerr != nil || note.SDID != rec.TargetSDID {
			return fmt.Errorf("move %s: note not present in target sd after db_updated", rec.ID)
		}
		return e.resumeFromRename(ctx, &rec)

	case api.MoveCleaning:
		return e.resumeFromCleaning(ctx, &rec)

	default:
		return nil
	}
}

func (e *Engine) resumeFromCopy(ctx context.Context, rec *api.MoveRecord) error {
	srcFS := e.OpenFS(rec.SourceSDPath)
	dstFS := e.OpenFS(rec.TargetSDPath)
	sourcePath := "notes/" + rec.NoteID
	movingPath := "notes/.moving-" + rec.NoteID

	if err := storagefs.CopyTree(srcFS, sourcePath, dstFS, movingPath); err != nil {
		return err
	}
	if err := e.transition(ctx, rec, api.MoveFilesCopied); err != nil {
		return err
	}
	return e.resumeFromDBUpdate(ctx, rec)
}

func (e *Engine) resumeFromDBUpdate(ctx context.Context, rec *api.MoveRecord) error {
	if err := e.updateCatalogForMove(ctx, rec); err != nil {
		return err
	}
	if err := e.transition(ctx, rec, api.MoveDBUpdated); err != nil {
		return err
	}
	return e.resumeFromRename(ctx, rec)
}

func (e *Engine) resumeFromRename(ctx context.Context, rec *api.MoveRecord) error {
	dstFS := e.OpenFS(rec.TargetSDPath)
	movingPath := "notes/.moving-" + rec.NoteID
	finalPath := "notes/" + rec.NoteID

	if ok, _ := dstFS.Exists(movingPath); ok {
		if err := dstFS.RenamePath(movingPath, finalPath); err != nil {
			return err
		}
	}
	if err := e.transition(ctx, rec, api.MoveCleaning); err != nil {
		return err
	}
	return e.resumeFromCleaning(ctx, rec)
}

func (e *Engine) resumeFromCleaning(ctx context.Context, rec *api.MoveRecord) error {
	srcFS := e.OpenFS(rec.SourceSDPath)
	sourcePath := "notes/" + rec.NoteID
	if err := srcFS.RemoveAll(sourcePath); err != nil {
		return err
	}
	return e.transition(ctx, rec, api.MoveCompleted)
}
