package catalog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/drewcsillag/notecove-storage/api"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestUpsertNoteRoundTrip(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	n := api.Note{ID: "n1", Title: "Hello", SDID: "sd1", FolderID: "f1", Created: now, Modified: now}
	require.NoError(t, c.UpsertNote(ctx, n))

	got, err := c.GetNote(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, n.ID, got.ID)
	require.Equal(t, n.Title, got.Title)
	require.Equal(t, n.SDID, got.SDID)
	require.True(t, n.Created.Equal(got.Created))
}

func TestNoteIDGloballyUnique(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	n := api.Note{ID: "n1", Title: "A", SDID: "sd1", Created: time.Now(), Modified: time.Now()}
	require.NoError(t, c.UpsertNote(ctx, n))

	n.Title = "B"
	n.SDID = "sd2"
	require.NoError(t, c.UpsertNote(ctx, n))

	notes1, err := c.ListNotesBySD(ctx, "sd1")
	require.NoError(t, err)
	require.Empty(t, notes1)

	notes2, err := c.ListNotesBySD(ctx, "sd2")
	require.NoError(t, err)
	require.Len(t, notes2, 1)
	require.Equal(t, "B", notes2[0].Title)
}

func TestDeleteThenInsertForMove(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	n := api.Note{ID: "n1", Title: "A", SDID: "sd1", Created: time.Now(), Modified: time.Now()}
	require.NoError(t, c.UpsertNote(ctx, n))

	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		if err := c.DeleteNoteTx(tx, "n1", "sd1"); err != nil {
			return err
		}
		n.SDID = "sd2"
		return c.UpsertNoteTx(tx, n)
	})
	require.NoError(t, err)

	got, err := c.GetNote(ctx, "n1")
	require.NoError(t, err)
	require.Equal(t, "sd2", got.SDID)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	err := c.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO state (key, value) VALUES ('x', 'y')`); err != nil {
			return err
		}
		return assertErr
	})
	require.ErrorIs(t, err, assertErr)

	_, ok, err := c.GetState(ctx, "x")
	require.NoError(t, err)
	require.False(t, ok)
}

var assertErr = &notFoundErr{entity: "test", id: "boom"}

func TestImagesTableExistsByDefault(t *testing.T) {
	c := openTest(t)
	ok, err := c.ImagesTableExists(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
}

func TestImagesTableExistsFalseOnOlderCatalog(t *testing.T) {
	c := openTest(t)
	_, err := c.db.Exec(`DROP TABLE images`)
	require.NoError(t, err)

	ok, err := c.ImagesTableExists(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMoveLifecycleQueries(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()
	now := time.Now().UTC()

	m := api.MoveRecord{
		ID: "m1", NoteID: "n1", SourceSDID: "sd1", TargetSDID: "sd2",
		State: api.MoveInitiated, InitiatedBy: "inst-1", InitiatedAt: now, LastModified: now,
	}
	require.NoError(t, c.InsertMove(ctx, m))

	nonTerminal, err := c.ListNonTerminalMoves(ctx)
	require.NoError(t, err)
	require.Len(t, nonTerminal, 1)

	require.NoError(t, c.UpdateMoveState(ctx, "m1", api.MoveCompleted, now.UnixMilli(), ""))

	nonTerminal, err = c.ListNonTerminalMoves(ctx)
	require.NoError(t, err)
	require.Empty(t, nonTerminal)

	deleted, err := c.DeleteTerminalMovesOlderThan(ctx, now.Add(time.Hour).UnixMilli())
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestStateRoundTrip(t *testing.T) {
	c := openTest(t)
	ctx := context.Background()

	_, ok, err := c.GetState(ctx, StateDefaultNoteDeleted)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.SetState(ctx, StateDefaultNoteDeleted, "true"))
	val, ok, err := c.GetState(ctx, StateDefaultNoteDeleted)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "true", val)
}
