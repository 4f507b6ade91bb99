package crdt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type stubLoader struct {
	docs map[string]*Document
}

func (s *stubLoader) Load(noteID, sdID string) (*Document, error) {
	return s.docs[noteID], nil
}

func TestManagerLoadCachesDocument(t *testing.T) {
	doc := &Document{NoteID: "n1", Content: &XmlFragment{}}
	calls := 0
	loader := loaderFunc(func(noteID, sdID string) (*Document, error) {
		calls++
		return doc, nil
	})

	m := NewManager(loader)
	got1, err := m.LoadNote("n1", "sd1")
	require.NoError(t, err)
	got2, err := m.LoadNote("n1", "sd1")
	require.NoError(t, err)

	require.Same(t, doc, got1)
	require.Same(t, doc, got2)
	require.Equal(t, 1, calls)
}

func TestManagerUnloadReleases(t *testing.T) {
	doc := &Document{NoteID: "n1"}
	m := NewManager(loaderFunc(func(noteID, sdID string) (*Document, error) { return doc, nil }))

	_, err := m.LoadNote("n1", "sd1")
	require.NoError(t, err)
	m.UnloadNote("n1")

	require.Nil(t, m.GetDocument("n1"))
}

func TestWithNoteReleasesOnError(t *testing.T) {
	doc := &Document{NoteID: "n1"}
	m := NewManager(loaderFunc(func(noteID, sdID string) (*Document, error) { return doc, nil }))

	err := WithNote(m, "n1", "sd1", func(d *Document) error {
		return assertBoom
	})
	require.ErrorIs(t, err, assertBoom)
	require.Nil(t, m.GetDocument("n1"))
}

var assertBoom = &boomErr{}

type boomErr struct{}

func (*boomErr) Error() string { return "boom" }

type loaderFunc func(noteID, sdID string) (*Document, error)

func (f loaderFunc) Load(noteID, sdID string) (*Document, error) { return f(noteID, sdID) }

func TestExtractTextJoinsSiblingsWithNewline(t *testing.T) {
	frag := &XmlFragment{Children: []XmlNode{
		&XmlText{Text: "line one"},
		&XmlElement{Name: "p", Children: []XmlNode{&XmlText{Text: "line two"}}},
	}}
	require.Equal(t, "line one\nline two", ExtractText(frag))
}

func TestExtractTextEmptyFragment(t *testing.T) {
	require.Equal(t, "", ExtractText(&XmlFragment{}))
}

func TestReferencedImageIDsCollectsNested(t *testing.T) {
	frag := &XmlFragment{Children: []XmlNode{
		&XmlElement{Name: "p", Children: []XmlNode{
			&XmlElement{Name: "notecoveImage", Attributes: map[string]string{"imageId": "img1"}},
		}},
		&XmlElement{Name: "notecoveImage", Attributes: map[string]string{"imageId": "img2"}},
	}}
	require.ElementsMatch(t, []string{"img1", "img2"}, ReferencedImageIDs(frag))
}

func TestDeriveTitleStripsMarkupAndDefaults(t *testing.T) {
	require.Equal(t, "Hello world", DeriveTitle("<p>Hello <b>world</b></p>"))
	require.Equal(t, "Untitled", DeriveTitle("<br/>"))
}

func TestContentPreviewTruncates(t *testing.T) {
	text := "Title\n" + string(make([]byte, 300))
	preview := ContentPreview(text, 200)
	require.Len(t, []rune(preview), 200)
}

func TestContentPreviewNoSecondLine(t *testing.T) {
	require.Equal(t, "", ContentPreview("just one line", 200))
}
