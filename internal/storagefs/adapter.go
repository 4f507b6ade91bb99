// Package storagefs is the sole dependency on the host filesystem for every
// other storage-core component (C1 in the design). It wraps
// github.com/go-git/go-billy/v5 so production code runs against a real OS
// tree (osfs) while tests substitute an in-memory tree (memfs) without any
// change to call sites — the same substitution billy itself is built for.
package storagefs

import (
	"errors"
	"io"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// ErrorKind classifies a filesystem failure so callers can branch on it
// without parsing error strings.
type ErrorKind string

const (
	KindNotFound   ErrorKind = "notFound"
	KindPermission ErrorKind = "permission"
	KindExists     ErrorKind = "exists"
	KindIO         ErrorKind = "io"
)

// Error is the typed error every Filesystem operation returns on failure.
type Error struct {
	Path string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

func classify(path string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &Error{Path: path, Kind: KindNotFound, Err: err}
	case errors.Is(err, os.ErrPermission):
		return &Error{Path: path, Kind: KindPermission, Err: err}
	case errors.Is(err, os.ErrExist):
		return &Error{Path: path, Kind: KindExists, Err: err}
	default:
		return &Error{Path: path, Kind: KindIO, Err: err}
	}
}

// Filesystem is the storage core's abstract directory/file adapter. Every
// method fails with a *Error carrying a path and a kind.
type Filesystem struct {
	billy.Filesystem
}

// NewOS returns a Filesystem rooted at root on the real OS filesystem.
func NewOS(root string) *Filesystem {
	return &Filesystem{Filesystem: osfs.New(root)}
}

// NewMemory returns a Filesystem backed entirely by memory, for tests.
func NewMemory() *Filesystem {
	return &Filesystem{Filesystem: memfs.New()}
}

// MkdirAll idempotently creates path and any missing parents.
func (f *Filesystem) MkdirAll(path string) error {
	if err := f.Filesystem.MkdirAll(path, 0o755); err != nil {
		return classify(path, err)
	}
	return nil
}

// Exists reports whether path exists, distinguishing "definitely absent"
// from a real I/O error.
func (f *Filesystem) Exists(path string) (bool, error) {
	_, err := f.Filesystem.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, classify(path, err)
}

// StatPath returns file info for path.
func (f *Filesystem) StatPath(path string) (os.FileInfo, error) {
	info, err := f.Filesystem.Stat(path)
	if err != nil {
		return nil, classify(path, err)
	}
	return info, nil
}

// ReadFile reads the entire contents of path.
func (f *Filesystem) ReadFile(path string) ([]byte, error) {
	fh, err := f.Filesystem.Open(path)
	if err != nil {
		return nil, classify(path, err)
	}
	defer func() { _ = fh.Close() }()

	data, err := io.ReadAll(fh)
	if err != nil {
		return nil, classify(path, err)
	}
	return data, nil
}

// WriteFile truncates (or creates) path and writes data to it. This is not
// atomic with respect to concurrent readers; callers that need atomicity
// use AtomicWriteFile or the move engine's temp-then-rename pattern.
func (f *Filesystem) WriteFile(path string, data []byte) error {
	fh, err := f.Filesystem.Create(path)
	if err != nil {
		return classify(path, err)
	}
	defer func() { _ = fh.Close() }()

	if _, err := fh.Write(data); err != nil {
		return classify(path, err)
	}
	return nil
}

// AtomicWriteFile writes data to a temp file in the same directory as path,
// then renames it into place. Rename within a single volume is assumed
// atomic by the underlying filesystem (spec invariant).
func (f *Filesystem) AtomicWriteFile(path string, data []byte) error {
	dir := f.Filesystem.Join(splitDir(f, path))
	tmp, err := f.Filesystem.TempFile(dir, ".notecove-tmp-*")
	if err != nil {
		return classify(path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = f.Filesystem.Remove(tmpName)
		return classify(path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = f.Filesystem.Remove(tmpName)
		return classify(path, err)
	}
	if err := f.Filesystem.Rename(tmpName, path); err != nil {
		_ = f.Filesystem.Remove(tmpName)
		return classify(path, err)
	}
	return nil
}

func splitDir(f *Filesystem, path string) string {
	dir, _ := billySplit(f.Filesystem, path)
	return dir
}

// billySplit is a minimal path.Split equivalent since billy filesystems
// always use forward slashes regardless of host OS.
func billySplit(fs billy.Filesystem, path string) (dir, file string) {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i], path[i+1:]
		}
	}
	return "", path
}

// ListDir lists the immediate entries of path.
func (f *Filesystem) ListDir(path string) ([]os.FileInfo, error) {
	entries, err := f.Filesystem.ReadDir(path)
	if err != nil {
		return nil, classify(path, err)
	}
	return entries, nil
}

// Remove removes a single file.
func (f *Filesystem) Remove(path string) error {
	if err := f.Filesystem.Remove(path); err != nil {
		return classify(path, err)
	}
	return nil
}

// RemoveAll recursively removes path, which may be a file or a directory
// tree. Missing paths are not an error — removal is idempotent.
func (f *Filesystem) RemoveAll(path string) error {
	ok, err := f.Exists(path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	info, err := f.StatPath(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return f.Remove(path)
	}

	entries, err := f.ListDir(path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		child := f.Filesystem.Join(path, e.Name())
		if err := f.RemoveAll(child); err != nil {
			return err
		}
	}
	if err := f.Filesystem.Remove(path); err != nil {
		return classify(path, err)
	}
	return nil
}

// RenamePath renames oldpath to newpath within this filesystem. The move
// engine relies on this being atomic for single-volume renames.
func (f *Filesystem) RenamePath(oldpath, newpath string) error {
	if err := f.Filesystem.Rename(oldpath, newpath); err != nil {
		return classify(oldpath, err)
	}
	return nil
}

// CopyTree recursively copies every file under srcPath (on srcFS) into
// dstPath (on dstFS), creating directories as needed. It performs real
// reads and writes — no reflink/clone assumptions — matching the move
// engine's requirement to work across two independently-mounted SDs.
func CopyTree(srcFS *Filesystem, srcPath string, dstFS *Filesystem, dstPath string) error {
	info, err := srcFS.StatPath(srcPath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		data, err := srcFS.ReadFile(srcPath)
		if err != nil {
			return err
		}
		return dstFS.WriteFile(dstPath, data)
	}

	if err := dstFS.MkdirAll(dstPath); err != nil {
		return err
	}
	entries, err := srcFS.ListDir(srcPath)
	if err != nil {
		return err
	}
	for _, e := range entries {
		childSrc := srcFS.Filesystem.Join(srcPath, e.Name())
		childDst := dstFS.Filesystem.Join(dstPath, e.Name())
		if err := CopyTree(srcFS, childSrc, dstFS, childDst); err != nil {
			return err
		}
	}
	return nil
}
