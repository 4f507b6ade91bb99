// Package crdt is the storage core's CRDT Manager facade (C5). The actual
// CRDT algorithm (apply ordered update files onto a snapshot, resolve
// concurrent edits) is an external collaborator per §4.5 — this package
// only defines the contract every other component programs against, plus
// an in-memory reference implementation good enough to drive discovery,
// the move engine, and image GC against real fixtures in tests.
package crdt

import (
	"sync"
	"time"
)

// XmlText is a leaf node of a content fragment.
type XmlText struct {
	Text string
}

func (t *XmlText) String() string { return t.Text }

// XmlElement is an interior node of a content fragment: a name plus an
// attribute map plus ordered children, mirroring §4.5's "elements carry a
// name and an attribute map".
type XmlElement struct {
	Name       string
	Attributes map[string]string
	Children   []XmlNode
}

// XmlNode is the polymorphic variant every content-fragment node
// satisfies: either an *XmlElement or an *XmlText, per §9's design note on
// the CRDT content tree.
type XmlNode interface {
	isXmlNode()
}

func (*XmlElement) isXmlNode() {}
func (*XmlText) isXmlNode()    {}

// XmlFragment is the root of a note's "content" fragment.
type XmlFragment struct {
	Children []XmlNode
}

// Empty reports whether the fragment has no children, the signal
// discovery and bootstrap both use to decide a note's bytes have not
// finished syncing yet.
func (f *XmlFragment) Empty() bool {
	return f == nil || len(f.Children) == 0
}

// Metadata is a note's CRDT-held, non-content fields, with the defensive
// fallback semantics §4.5 requires: getMetadata() never throws on a
// missing field.
type Metadata struct {
	FolderID string
	Created  time.Time
	Modified time.Time
	Deleted  bool
	Pinned   bool
}

// Document is a materialized note: its content fragment plus metadata.
// Manager.loadNote builds one by applying a snapshot (if present) then
// every ordered update/log record on top of it.
type Document struct {
	NoteID   string
	Content  *XmlFragment
	metadata Metadata
}

// GetMetadata returns the document's metadata. Never nil, never panics —
// a freshly-constructed Document has zero-value metadata rather than an
// absent one.
func (d *Document) GetMetadata() Metadata {
	return d.metadata
}

// Manager is the CRDT Manager facade: load/get/unload by noteId, scoped to
// one SD at a time. The reference implementation keeps materialized
// documents in memory, keyed by noteId, and defers to a Loader to build a
// Document the first time a note is requested.
type Manager struct {
	mu     sync.Mutex
	loader Loader
	docs   map[string]*Document
}

// Loader builds a Document for a note from its on-disk snapshot and log
// files. Implementations are expected to use internal/codec to decode the
// snapshot and log records and an external CRDT algorithm (out of scope
// here) to fold them into content + metadata.
type Loader interface {
	Load(noteID, sdID string) (*Document, error)
}

// NewManager constructs a Manager around loader.
func NewManager(loader Loader) *Manager {
	return &Manager{loader: loader, docs: make(map[string]*Document)}
}

// LoadNote materializes noteId's document if not already resident and
// returns it. Safe to call repeatedly; a second call before UnloadNote is
// a cache hit.
func (m *Manager) LoadNote(noteID, sdID string) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if doc, ok := m.docs[noteID]; ok {
		return doc, nil
	}
	doc, err := m.loader.Load(noteID, sdID)
	if err != nil {
		return nil, err
	}
	m.docs[noteID] = doc
	return doc, nil
}

// GetDocument returns the resident document for noteId, or nil if it has
// not been loaded.
func (m *Manager) GetDocument(noteID string) *Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[noteID]
}

// UnloadNote releases a document's resources. Safe to call on a note that
// was never loaded.
func (m *Manager) UnloadNote(noteID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, noteID)
}

// WithNote scopes a LoadNote/UnloadNote pair around fn, guaranteeing
// release even when fn returns an error — the §5 "scoped acquisition with
// guaranteed release" resource rule.
func WithNote(m *Manager, noteID, sdID string, fn func(*Document) error) error {
	doc, err := m.LoadNote(noteID, sdID)
	if err != nil {
		return err
	}
	defer m.UnloadNote(noteID)
	return fn(doc)
}
