package imagegc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/drewcsillag/notecove-storage/api"
	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/crdt"
	"github.com/drewcsillag/notecove-storage/internal/sdstore"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

type fakeLoader struct {
	referencedImage string
}

func (f *fakeLoader) Load(noteID, sdID string) (*crdt.Document, error) {
	frag := &crdt.XmlFragment{}
	if f.referencedImage != "" {
		frag.Children = []crdt.XmlNode{
			&crdt.XmlElement{Name: "notecoveImage", Attributes: map[string]string{"imageId": f.referencedImage}},
		}
	}
	return &crdt.Document{NoteID: noteID, Content: frag}, nil
}

func setup(t *testing.T, referencedImage string) (*Collector, *catalog.Catalog, *storagefs.Filesystem) {
	t.Helper()
	fs := storagefs.NewMemory()
	require.NoError(t, sdstore.Initialize(fs, "sd1"))

	cat, err := catalog.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })

	manager := crdt.NewManager(&fakeLoader{referencedImage: referencedImage})
	return &Collector{
		Catalog: cat,
		Manager: manager,
		FS:      fs,
	}, cat, fs
}

func TestGCSkipsWithinGracePeriod(t *testing.T) {
	c, cat, fs := setup(t, "")
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, fs.WriteFile("media/img1.png", []byte("x")))
	require.NoError(t, cat.UpsertImage(ctx, api.Image{ID: "img1", SDID: "sd1", Filename: "img1.png", CreatedAt: now.Add(-10 * 24 * time.Hour), SizeBytes: 1}))

	c.Now = func() time.Time { return now }
	stats := c.Run(ctx, "sd1", "sd1", nil)

	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 0, stats.Deleted)
}

func TestGCDeletesPastGracePeriod(t *testing.T) {
	c, cat, fs := setup(t, "")
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, fs.WriteFile("sd1/media/img2.png", []byte("yy")))
	require.NoError(t, cat.UpsertImage(ctx, api.Image{ID: "img2", SDID: "sd1", Filename: "img2.png", CreatedAt: now.Add(-20 * 24 * time.Hour), SizeBytes: 2}))

	c.Now = func() time.Time { return now }
	stats := c.Run(ctx, "sd1", "sd1", nil)

	require.Equal(t, 1, stats.Deleted)
	require.Equal(t, int64(2), stats.BytesReclaimed)

	ok, err := fs.Exists("sd1/media/img2.png")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = cat.ListImagesBySD(ctx, "sd1")
	require.NoError(t, err)
}

func TestGCSkipsReferencedImages(t *testing.T) {
	c, cat, fs := setup(t, "img3")
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, fs.WriteFile("media/img3.png", []byte("z")))
	require.NoError(t, cat.UpsertImage(ctx, api.Image{ID: "img3", SDID: "sd1", Filename: "img3.png", CreatedAt: now.Add(-40 * 24 * time.Hour), SizeBytes: 1}))

	c.Now = func() time.Time { return now }
	stats := c.Run(ctx, "sd1", "sd1", []string{"note1"})

	require.Equal(t, 1, stats.Referenced)
	require.Equal(t, 0, stats.Deleted)
}

func TestGCDryRunDoesNotDelete(t *testing.T) {
	c, cat, fs := setup(t, "")
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, fs.WriteFile("sd1/media/img4.png", []byte("w")))
	require.NoError(t, cat.UpsertImage(ctx, api.Image{ID: "img4", SDID: "sd1", Filename: "img4.png", CreatedAt: now.Add(-40 * 24 * time.Hour), SizeBytes: 1}))

	c.Now = func() time.Time { return now }
	c.DryRun = true
	stats := c.Run(ctx, "sd1", "sd1", nil)

	require.Equal(t, []string{"img4"}, stats.WouldDelete)
	require.Equal(t, 0, stats.Deleted)

	ok, err := fs.Exists("sd1/media/img4.png")
	require.NoError(t, err)
	require.True(t, ok)
}

