// Package sdstore manages a single Storage Directory's on-disk layout: the
// directory skeleton under its root and the dev/prod marker file that
// guards against accidentally registering the wrong build against it.
package sdstore

import (
	"errors"
	"strings"

	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

const markerFilename = ".notecove-sd-marker"

// MarkerKind is the decoded contents of a Storage Directory's marker file.
type MarkerKind string

const (
	MarkerDev  MarkerKind = "dev"
	MarkerProd MarkerKind = "prod"
	MarkerNone MarkerKind = "none"
)

// subdirs is the fixed directory skeleton every SD must have, per the data
// model's SD layout.
var subdirs = []string{
	"notes",
	"folders/logs",
	"deletions",
	"activity",
	"media",
}

// Initialize idempotently creates the root directory and the fixed
// subdirectory skeleton. Safe to call on a populated SD.
func Initialize(fs *storagefs.Filesystem, sdPath string) error {
	if err := fs.MkdirAll(sdPath); err != nil {
		return err
	}
	for _, d := range subdirs {
		if err := fs.MkdirAll(join(sdPath, d)); err != nil {
			return err
		}
	}
	return nil
}

// ReadSDMarker reads the marker file under sdPath and reports its kind.
// A missing marker file is MarkerNone, not an error.
func ReadSDMarker(fs *storagefs.Filesystem, sdPath string) (MarkerKind, error) {
	data, err := fs.ReadFile(join(sdPath, markerFilename))
	if err != nil {
		var fsErr *storagefs.Error
		if errors.As(err, &fsErr) && fsErr.Kind == storagefs.KindNotFound {
			return MarkerNone, nil
		}
		return MarkerNone, err
	}
	switch strings.TrimSpace(string(data)) {
	case string(MarkerDev):
		return MarkerDev, nil
	case string(MarkerProd):
		return MarkerProd, nil
	default:
		return MarkerNone, nil
	}
}

// EnsureMarker writes the marker file with currentType if one is not
// already present. It never overwrites an existing marker of a different
// type — that decision belongs to the caller's safety policy.
func EnsureMarker(fs *storagefs.Filesystem, sdPath string, currentType MarkerKind) error {
	existing, err := ReadSDMarker(fs, sdPath)
	if err != nil {
		return err
	}
	if existing != MarkerNone {
		return nil
	}
	return fs.WriteFile(join(sdPath, markerFilename), []byte(currentType))
}

// RegisterDecision is the outcome of applying the marker safety policy
// when an instance considers registering an SD.
type RegisterDecision struct {
	Allow  bool
	Reason string
}

// CheckRegister applies the marker safety policy: a prod build refuses to
// register an SD marked dev unless skipMarker bypasses the check
// (test-mode only). A missing marker is written as currentType and the SD
// is allowed.
func CheckRegister(fs *storagefs.Filesystem, sdPath string, isDevBuild bool, skipMarker bool) (RegisterDecision, error) {
	if skipMarker {
		return RegisterDecision{Allow: true}, nil
	}

	currentType := MarkerDev
	if !isDevBuild {
		currentType = MarkerProd
	}

	marker, err := ReadSDMarker(fs, sdPath)
	if err != nil {
		return RegisterDecision{}, err
	}

	if marker == MarkerNone {
		if err := EnsureMarker(fs, sdPath, currentType); err != nil {
			return RegisterDecision{}, err
		}
		return RegisterDecision{Allow: true}, nil
	}

	if !isDevBuild && marker == MarkerDev {
		return RegisterDecision{
			Allow:  false,
			Reason: "refusing to register dev-marked SD with a prod build",
		}, nil
	}

	return RegisterDecision{Allow: true}, nil
}

func join(parts ...string) string {
	return strings.Join(parts, "/")
}
