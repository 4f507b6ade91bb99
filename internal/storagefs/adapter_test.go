package storagefs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMkdirAllIdempotent(t *testing.T) {
	fs := NewMemory()
	require.NoError(t, fs.MkdirAll("a/b/c"))
	require.NoError(t, fs.MkdirAll("a/b/c"))

	ok, err := fs.Exists("a/b/c")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs := NewMemory()
	require.NoError(t, fs.MkdirAll("notes/abc"))
	require.NoError(t, fs.WriteFile("notes/abc/snapshot.yjs", []byte("hello")))

	data, err := fs.ReadFile("notes/abc/snapshot.yjs")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), data)
}

func TestReadFileNotFoundClassified(t *testing.T) {
	fs := NewMemory()
	_, err := fs.ReadFile("missing")
	require.Error(t, err)

	var fsErr *Error
	require.ErrorAs(t, err, &fsErr)
	require.Equal(t, KindNotFound, fsErr.Kind)
}

func TestAtomicWriteFileReplacesExisting(t *testing.T) {
	fs := NewMemory()
	require.NoError(t, fs.WriteFile("marker", []byte("dev")))
	require.NoError(t, fs.AtomicWriteFile("marker", []byte("prod")))

	data, err := fs.ReadFile("marker")
	require.NoError(t, err)
	require.Equal(t, []byte("prod"), data)
}

func TestRemoveAllRecursive(t *testing.T) {
	fs := NewMemory()
	require.NoError(t, fs.MkdirAll("notes/a/updates"))
	require.NoError(t, fs.WriteFile("notes/a/updates/1.bin", []byte("x")))
	require.NoError(t, fs.WriteFile("notes/a/snapshot.yjs", []byte("y")))

	require.NoError(t, fs.RemoveAll("notes/a"))

	ok, err := fs.Exists("notes/a")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRemoveAllMissingPathIsNoop(t *testing.T) {
	fs := NewMemory()
	require.NoError(t, fs.RemoveAll("never-existed"))
}

func TestRenamePathIsAtomicWithinVolume(t *testing.T) {
	fs := NewMemory()
	require.NoError(t, fs.MkdirAll("notes/.moving-abc"))
	require.NoError(t, fs.WriteFile("notes/.moving-abc/snapshot.yjs", []byte("z")))

	require.NoError(t, fs.RenamePath("notes/.moving-abc", "notes/abc"))

	ok, err := fs.Exists("notes/.moving-abc")
	require.NoError(t, err)
	require.False(t, ok)

	data, err := fs.ReadFile("notes/abc/snapshot.yjs")
	require.NoError(t, err)
	require.Equal(t, []byte("z"), data)
}

func TestCopyTreeAcrossFilesystems(t *testing.T) {
	src := NewMemory()
	dst := NewMemory()

	require.NoError(t, src.MkdirAll("notes/abc/updates"))
	require.NoError(t, src.WriteFile("notes/abc/snapshot.yjs", []byte("snap")))
	require.NoError(t, src.WriteFile("notes/abc/updates/1.bin", []byte("u1")))

	require.NoError(t, CopyTree(src, "notes/abc", dst, "notes/.moving-abc"))

	data, err := dst.ReadFile("notes/.moving-abc/snapshot.yjs")
	require.NoError(t, err)
	require.Equal(t, []byte("snap"), data)

	data, err = dst.ReadFile("notes/.moving-abc/updates/1.bin")
	require.NoError(t, err)
	require.Equal(t, []byte("u1"), data)
}

func TestListDirReturnsEntries(t *testing.T) {
	fs := NewMemory()
	require.NoError(t, fs.MkdirAll("media"))
	require.NoError(t, fs.WriteFile("media/a.png", []byte("a")))
	require.NoError(t, fs.WriteFile("media/b.png", []byte("b")))

	entries, err := fs.ListDir("media")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}
