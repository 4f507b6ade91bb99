package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drewcsillag/notecove-storage/api"
	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/sdstore"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

type fakeProbe struct {
	present bool
}

func (f *fakeProbe) IsContentPresent(noteID, sdID string) bool { return f.present }

type fakeWriter struct {
	written *WelcomeContent
}

func (f *fakeWriter) WriteDefaultNote(sdID, noteID string, content WelcomeContent) error {
	f.written = &content
	return nil
}

func newTestBootstrapper(t *testing.T, instanceID string) (*Bootstrapper, *storagefs.Filesystem, *fakeProbe, *fakeWriter) {
	t.Helper()
	fs := storagefs.NewMemory()
	require.NoError(t, sdstore.Initialize(fs, "sd1"))

	cat, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	probe := &fakeProbe{}
	writer := &fakeWriter{}
	return &Bootstrapper{
		FS: fs, Catalog: cat, Probe: probe, Writer: writer,
		InstanceID: instanceID,
		Sleep:      func(time.Duration) {},
	}, fs, probe, writer
}

func TestBootstrapWritesWelcomeWhenNoForeignEvidence(t *testing.T) {
	b, _, _, writer := newTestBootstrapper(t, "inst-1")
	_, err := b.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)

	require.NotNil(t, writer.written)
	require.Equal(t, welcomeTitle, writer.written.Heading)
	require.Equal(t, welcomeBodyFix, writer.written.Paragraph)
}

func TestBootstrapSkipsWhenContentAlreadyPresent(t *testing.T) {
	b, _, probe, writer := newTestBootstrapper(t, "inst-1")
	probe.present = true

	_, err := b.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
	require.Nil(t, writer.written)
}

func TestBootstrapNeverRecreatesDeletedDefaultNote(t *testing.T) {
	b, _, _, writer := newTestBootstrapper(t, "inst-1")
	require.NoError(t, b.Catalog.SetState(context.Background(), catalog.StateDefaultNoteDeleted, "true"))

	selected, err := b.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
	require.Nil(t, writer.written)
	require.Empty(t, selected, "no other note exists yet, so there is nothing to select")
}

func TestBootstrapSelectsExistingNoteWhenDefaultNoteDeleted(t *testing.T) {
	b, _, _, writer := newTestBootstrapper(t, "inst-1")
	ctx := context.Background()
	require.NoError(t, b.Catalog.SetState(ctx, catalog.StateDefaultNoteDeleted, "true"))

	now := time.Now().UTC()
	require.NoError(t, b.Catalog.UpsertNote(ctx, api.Note{
		ID: "older", Title: "older", SDID: "sd1", Created: now.Add(-time.Hour), Modified: now.Add(-time.Hour),
	}))
	require.NoError(t, b.Catalog.UpsertNote(ctx, api.Note{
		ID: "newer", Title: "newer", SDID: "sd1", Created: now, Modified: now,
	}))
	require.NoError(t, b.Catalog.UpsertNote(ctx, api.Note{
		ID: "deleted-one", Title: "gone", SDID: "sd1", Created: now, Modified: now.Add(time.Hour), Deleted: true,
	}))

	selected, err := b.Run(ctx, "sd1", "sd1")
	require.NoError(t, err)
	require.Nil(t, writer.written)
	require.Equal(t, "newer", selected)

	stored, ok, err := b.Catalog.GetState(ctx, catalog.StateSelectedNoteID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "newer", stored)
}

func TestBootstrapWaitsOnForeignActivityEvidence(t *testing.T) {
	b, fs, probe, writer := newTestBootstrapper(t, "inst-1")
	require.NoError(t, fs.WriteFile("sd1/activity/inst-2.log", []byte("")))

	ticks := 0
	b.Sleep = func(time.Duration) {
		ticks++
		if ticks == 2 {
			probe.present = true
		}
	}

	_, err := b.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
	require.Nil(t, writer.written)
}

func TestBootstrapWritesWelcomeAfterTimeoutWithForeignEvidenceButNoContent(t *testing.T) {
	b, fs, _, writer := newTestBootstrapper(t, "inst-1")
	require.NoError(t, fs.WriteFile("sd1/activity/inst-2.log", []byte("")))

	start := time.Now().UTC()
	clock := start
	b.Now = func() time.Time { return clock }
	b.Sleep = func(d time.Duration) { clock = clock.Add(d) }

	_, err := b.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
	require.NotNil(t, writer.written)
}

func TestBootstrapParsesWelcomeBundle(t *testing.T) {
	b, fs, _, writer := newTestBootstrapper(t, "inst-1")
	require.NoError(t, fs.WriteFile("welcome.md", []byte("# Custom Title\nCustom paragraph body.\n")))

	_, err := b.Run(context.Background(), "sd1", "sd1")
	require.NoError(t, err)
	require.NotNil(t, writer.written)
	require.Equal(t, "Custom Title", writer.written.Heading)
	require.Equal(t, "Custom paragraph body.", writer.written.Paragraph)
}
