// Package imagegc implements Image GC (C8): a mark-and-sweep pass that
// deletes media blobs no longer referenced by any note's content
// fragment, subject to a grace period that absorbs in-flight sync races.
package imagegc

import (
	"context"
	"log"
	"time"

	"github.com/RoaringBitmap/roaring"

	"github.com/drewcsillag/notecove-storage/api"
	"github.com/drewcsillag/notecove-storage/internal/catalog"
	"github.com/drewcsillag/notecove-storage/internal/crdt"
	"github.com/drewcsillag/notecove-storage/internal/events"
	"github.com/drewcsillag/notecove-storage/internal/storagefs"
)

const defaultGracePeriodDays = 14

// Collector runs the mark-and-sweep pass across one or more SDs.
type Collector struct {
	Catalog         *catalog.Catalog
	Manager         *crdt.Manager
	FS              *storagefs.Filesystem
	Bus             *events.Bus
	ThumbnailRoot   string // "" disables thumbnail cleanup
	GracePeriodDays int
	DryRun          bool
	Now             func() time.Time
}

func (c *Collector) gracePeriod() time.Duration {
	days := c.GracePeriodDays
	if days == 0 {
		days = defaultGracePeriodDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c *Collector) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

// Run executes one pass for sdID, per §4.8. A failure to delete one image
// is logged and that image is skipped; the rest of the pass continues and
// Err is not set for it. A failure to query the images catalog ends the
// pass early and is returned in the stats' Err field.
func (c *Collector) Run(ctx context.Context, sdID, sdPath string, noteIDs []string) api.CleanupStats {
	stats := api.CleanupStats{SDID: sdID}

	exists, err := c.Catalog.ImagesTableExists(ctx)
	if err != nil {
		stats.Err = err
		return stats
	}
	if !exists {
		return stats
	}

	referenced := c.mark(noteIDs, sdID)

	images, err := c.Catalog.ListImagesBySD(ctx, sdID)
	if err != nil {
		stats.Err = err
		return stats
	}
	stats.Total = len(images)

	grace := c.gracePeriod()
	now := c.now()

	for _, img := range images {
		if referenced.ContainsInt(hashImageID(img.ID)) {
			stats.Referenced++
			continue
		}

		age := now.Sub(img.CreatedAt)
		if age <= grace {
			stats.Skipped++
			continue
		}

		stats.Orphaned++
		if c.DryRun {
			stats.WouldDelete = append(stats.WouldDelete, img.ID)
			continue
		}

		thumbDeleted, err := c.deleteOne(ctx, sdPath, img)
		if err != nil {
			log.Printf("imagegc: failed to delete image %s in sd %s: %v", img.ID, sdID, err)
			continue
		}
		stats.Deleted++
		stats.BytesReclaimed += img.SizeBytes
		if thumbDeleted {
			stats.ThumbnailsDeleted++
		}
	}

	if c.Bus != nil {
		c.Bus.Publish(events.TopicImageGC, api.ImageGCRan{Stats: stats})
	}
	return stats
}

// mark materializes every note in noteIDs (without mutating anything) and
// unions the notecoveImage ids found in each content fragment.
func (c *Collector) mark(noteIDs []string, sdID string) *roaring.Bitmap {
	referenced := roaring.New()
	for _, noteID := range noteIDs {
		func() {
			defer func() {
				if p := recover(); p != nil {
					log.Printf("imagegc: panic marking note %s: %v", noteID, p)
				}
			}()
			doc, err := c.Manager.LoadNote(noteID, sdID)
			if err != nil {
				log.Printf("imagegc: failed to load note %s for marking: %v", noteID, err)
				return
			}
			defer c.Manager.UnloadNote(noteID)
			for _, id := range crdt.ReferencedImageIDs(doc.Content) {
				referenced.AddInt(hashImageID(id))
			}
		}()
	}
	return referenced
}

func (c *Collector) deleteOne(ctx context.Context, sdPath string, img api.Image) (thumbnailDeleted bool, err error) {
	if err := c.FS.Remove(sdPath + "/media/" + img.Filename); err != nil {
		var fsErr *storagefs.Error
		if !isNotFound(err, &fsErr) {
			return false, err
		}
	}

	if c.ThumbnailRoot != "" {
		thumbPath := c.ThumbnailRoot + "/" + img.SDID + "/" + img.ID + ".jpg"
		if err := c.FS.Remove(thumbPath); err == nil {
			thumbnailDeleted = true
		}
	}

	return thumbnailDeleted, c.Catalog.DeleteImage(ctx, img.ID)
}

func isNotFound(err error, target **storagefs.Error) bool {
	fsErr, ok := err.(*storagefs.Error)
	if !ok {
		return false
	}
	*target = fsErr
	return fsErr.Kind == storagefs.KindNotFound
}

func hashImageID(id string) int {
	var h uint32 = 2166136261
	for i := 0; i < len(id); i++ {
		h ^= uint32(id[i])
		h *= 16777619
	}
	return int(h)
}
