package sdstore

import (
	"testing"

	"github.com/drewcsillag/notecove-storage/internal/storagefs"
	"github.com/stretchr/testify/require"
)

func TestInitializeCreatesSkeleton(t *testing.T) {
	fs := storagefs.NewMemory()
	require.NoError(t, Initialize(fs, "sd1"))

	for _, d := range []string{"sd1/notes", "sd1/folders/logs", "sd1/deletions", "sd1/activity", "sd1/media"} {
		ok, err := fs.Exists(d)
		require.NoError(t, err)
		require.True(t, ok, d)
	}
}

func TestInitializeIdempotent(t *testing.T) {
	fs := storagefs.NewMemory()
	require.NoError(t, Initialize(fs, "sd1"))
	require.NoError(t, Initialize(fs, "sd1"))
}

func TestReadSDMarkerMissingIsNone(t *testing.T) {
	fs := storagefs.NewMemory()
	require.NoError(t, Initialize(fs, "sd1"))

	kind, err := ReadSDMarker(fs, "sd1")
	require.NoError(t, err)
	require.Equal(t, MarkerNone, kind)
}

func TestEnsureMarkerWritesOnce(t *testing.T) {
	fs := storagefs.NewMemory()
	require.NoError(t, Initialize(fs, "sd1"))
	require.NoError(t, EnsureMarker(fs, "sd1", MarkerDev))

	kind, err := ReadSDMarker(fs, "sd1")
	require.NoError(t, err)
	require.Equal(t, MarkerDev, kind)

	// A second EnsureMarker call with a different type must not overwrite.
	require.NoError(t, EnsureMarker(fs, "sd1", MarkerProd))
	kind, err = ReadSDMarker(fs, "sd1")
	require.NoError(t, err)
	require.Equal(t, MarkerDev, kind)
}

func TestCheckRegisterRefusesDevMarkedUnderProdBuild(t *testing.T) {
	fs := storagefs.NewMemory()
	require.NoError(t, Initialize(fs, "sd1"))
	require.NoError(t, EnsureMarker(fs, "sd1", MarkerDev))

	decision, err := CheckRegister(fs, "sd1", false, false)
	require.NoError(t, err)
	require.False(t, decision.Allow)
	require.NotEmpty(t, decision.Reason)
}

func TestCheckRegisterSkipMarkerBypassesPolicy(t *testing.T) {
	fs := storagefs.NewMemory()
	require.NoError(t, Initialize(fs, "sd1"))
	require.NoError(t, EnsureMarker(fs, "sd1", MarkerDev))

	decision, err := CheckRegister(fs, "sd1", false, true)
	require.NoError(t, err)
	require.True(t, decision.Allow)
}

func TestCheckRegisterWritesMissingMarker(t *testing.T) {
	fs := storagefs.NewMemory()
	require.NoError(t, Initialize(fs, "sd1"))

	decision, err := CheckRegister(fs, "sd1", true, false)
	require.NoError(t, err)
	require.True(t, decision.Allow)

	kind, err := ReadSDMarker(fs, "sd1")
	require.NoError(t, err)
	require.Equal(t, MarkerDev, kind)
}
