package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/crdt"
	"github.com/drewcsillag/notecove-storage/internal/events"
	"github.com/drewcsillag/notecove-storage/internal/sdstore"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

type fakeLoader struct {
	docs map[string]*crdt.Document
}

func (f *fakeLoader) Load(noteID, sdID string) (*crdt.Document, error) {
	if doc, ok := f.docs[noteID]; ok {
		return doc, nil
	}
	return &crdt.Document{NoteID: noteID, Content: &crdt.XmlFragment{}}, nil
}

func newTestReconciler(t *testing.T, docs map[string]*crdt.Document) (*Reconciler, *catalog.Catalog) {
	t.Helper()
	fs := storagefs.NewMemory()
	require.NoError(t, sdstore.Initialize(fs, "sd1"))

	cat, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	manager := crdt.NewManager(&fakeLoader{docs: docs})
	return &Reconciler{
		FS:      fs,
		Manager: manager,
		Catalog: cat,
		Bus:     events.New(),
	}, cat
}

func TestDiscoverySkipsTombstonedNotes(t *testing.T) {
	docs := map[string]*crdt.Document{
		"live": {NoteID: "live", Content: &crdt.XmlFragment{Children: []crdt.XmlNode{&crdt.XmlText{Text: "hello"}}}},
	}
	r, cat := newTestReconciler(t, docs)

	require.NoError(t, r.FS.MkdirAll("sd1/notes/ghost"))
	require.NoError(t, r.FS.MkdirAll("sd1/notes/live"))
	require.NoError(t, r.FS.WriteFile("sd1/deletions/x.log", []byte("ghost|deleted-by-instance\n")))

	imported, err := r.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
	require.Equal(t, []string{"live"}, imported)

	notes, err := cat.ListNotesBySD(context.Background(), "sd1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	require.Equal(t, "live", notes[0].ID)
}

func TestDiscoverySkipsEmptyContent(t *testing.T) {
	r, cat := newTestReconciler(t, nil)
	require.NoError(t, r.FS.MkdirAll("sd1/notes/syncing"))

	imported, err := r.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
	require.Empty(t, imported)

	notes, err := cat.ListNotesBySD(context.Background(), "sd1")
	require.NoError(t, err)
	require.Empty(t, notes)
}

func TestDiscoveryIdempotentOnSecondRun(t *testing.T) {
	docs := map[string]*crdt.Document{
		"live": {NoteID: "live", Content: &crdt.XmlFragment{Children: []crdt.XmlNode{&crdt.XmlText{Text: "hi"}}}},
	}
	r, _ := newTestReconciler(t, docs)
	require.NoError(t, r.FS.MkdirAll("sd1/notes/live"))

	imported, err := r.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
	require.Len(t, imported, 1)

	imported, err = r.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
	require.Empty(t, imported)
}

func TestDiscoveryMissingDeletionsDirIsSilent(t *testing.T) {
	r, _ := newTestReconciler(t, nil)
	require.NoError(t, r.FS.RemoveAll("sd1/deletions"))
	require.NoError(t, r.FS.MkdirAll("sd1/notes/live"))

	_, err := r.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
}
