// Package discovery implements the Note-Discovery Reconciler (C6): it
// walks an SD's notes/ directory, skips tombstoned and already-cataloged
// notes, and upserts everything new into the catalog.
package discovery

import (
	"bufio"
	"context"
	"errors"
	"log"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/drewcsillag/notecove-storage/api"
	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/crdt"
	"github.com/drewcsillag/notecove-storage/internal/events"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

// FolderLoader reloads an SD's folder tree from its CRDT, external to this
// package because folders are themselves held as a CRDT (§3 "Folder").
type FolderLoader interface {
	LoadFolders(sdID, sdPath string) ([]api.Folder, error)
}

// Reconciler wires the filesystem, CRDT manager, catalog, and event bus
// together to run one discovery pass per SD.
type Reconciler struct {
	FS      *storagefs.Filesystem
	Manager *crdt.Manager
	Catalog *catalog.Catalog
	Bus     *events.Bus
	Folders FolderLoader // optional; nil skips the folder-tree reload step
}

// Run executes one discovery pass over sdPath and returns the set of
// newly-imported note ids, per §4.6's algorithm.
func (r *Reconciler) Run(ctx context.Context, sdID, sdPath string) ([]string, error) {
	candidates, err := r.listNoteDirs(sdPath)
	if err != nil {
		return nil, err
	}

	tombstones := r.buildTombstoneSet(sdPath)

	existing, err := r.Catalog.ListNotesBySD(ctx, sdID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, n := range existing {
		known[n.ID] = true
	}

	var imported []string
	for _, noteID := range candidates {
		if tombstones.ContainsInt(hashNoteID(noteID)) || known[noteID] {
			continue
		}
		if r.importNote(ctx, sdID, sdPath, noteID) {
			imported = append(imported, noteID)
		}
	}

	if len(imported) > 0 {
		if r.Folders != nil {
			folders, err := r.Folders.LoadFolders(sdID, sdPath)
			if err != nil {
				log.Printf("discovery: failed to reload folder tree for %s: %v", sdID, err)
			} else if err := r.Catalog.ReplaceFoldersForSD(ctx, sdID, folders); err != nil {
				log.Printf("discovery: failed to persist folder tree for %s: %v", sdID, err)
			}
		}
		r.Bus.Publish(events.TopicFolderUpdated, api.FolderUpdated{SDID: sdID})
	}

	return imported, nil
}

func (r *Reconciler) listNoteDirs(sdPath string) ([]string, error) {
	entries, err := r.FS.ListDir(sdPath + "/notes")
	if err != nil {
		var fsErr *storagefs.Error
		if errors.As(err, &fsErr) && fsErr.Kind == storagefs.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// buildTombstoneSet reads every *.log file under <sd>/deletions/ and
// returns a RoaringBitmap over a stable hash of each tombstoned noteId,
// per §4.6.2. An unreadable file is skipped with a logged warning; a
// missing deletions directory is skipped silently.
func (r *Reconciler) buildTombstoneSet(sdPath string) *roaring.Bitmap {
	bm := roaring.New()
	entries, err := r.FS.ListDir(sdPath + "/deletions")
	if err != nil {
		return bm
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".log") {
			continue
		}
		data, err := r.FS.ReadFile(sdPath + "/deletions/" + e.Name())
		if err != nil {
			log.Printf("discovery: skipping unreadable deletions file %s: %v", e.Name(), err)
			continue
		}
		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			noteID := strings.SplitN(line, "|", 2)[0]
			bm.AddInt(hashNoteID(noteID))
		}
	}
	return bm
}

// importNote loads noteId's CRDT document, skips it if its content hasn't
// synced yet, and otherwise derives + upserts a catalog row. Any failure
// is logged and treated as a skip, per §4.6's failure semantics.
func (r *Reconciler) importNote(ctx context.Context, sdID, sdPath, noteID string) (imported bool) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("discovery: panic importing note %s: %v", noteID, p)
			imported = false
		}
	}()

	doc, err := r.Manager.LoadNote(noteID, sdID)
	if err != nil {
		log.Printf("discovery: failed to load note %s: %v", noteID, err)
		return false
	}
	defer r.Manager.UnloadNote(noteID)

	if doc.Content.Empty() {
		return false
	}

	text := crdt.ExtractText(doc.Content)
	title := crdt.DeriveTitle(text)
	preview := crdt.ContentPreview(text, 200)
	meta := doc.GetMetadata()

	note := api.Note{
		ID:             noteID,
		Title:          title,
		SDID:           sdID,
		FolderID:       meta.FolderID,
		Created:        meta.Created,
		Modified:       meta.Modified,
		Deleted:        meta.Deleted,
		Pinned:         meta.Pinned,
		ContentPreview: preview,
		ContentText:    text,
	}
	if err := r.Catalog.UpsertNote(ctx, note); err != nil {
		log.Printf("discovery: failed to upsert note %s: %v", noteID, err)
		return false
	}

	r.Bus.Publish(events.TopicNoteCreated, api.NoteCreated{SDID: sdID, NoteID: noteID, FolderID: meta.FolderID})
	return true
}

// hashNoteID folds a UUID string down to a uint32 for the tombstone
// bitmap, the same cross-reference-index usage as mache's
// sqlite_graph.go. A 32-bit hash collision between a tombstoned and a
// live note id would wrongly skip the live note; with UUID-derived ids
// the probability is negligible at the note counts one SD ever holds.
func hashNoteID(id string) int {
	var h uint32 = 2166136261
	for i := 0; i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return int(h)
}
