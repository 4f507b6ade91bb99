package catalog

import (
	"context"
	"strings"

	"github.com/drewcsillag/notecove-storage/api"
)

// imagesTableMissing reports whether err is the sqlite driver's
// no-such-table error, used so Image GC can no-op against older catalogs
// per §4.8's backwards-compatibility clause.
func imagesTableMissing(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table: images")
}

// ImagesTableExists reports whether the images table is present.
func (c *Catalog) ImagesTableExists(ctx context.Context) (bool, error) {
	_, err := c.db.ExecContext(ctx, `SELECT 1 FROM images LIMIT 0`)
	if err == nil {
		return true, nil
	}
	if imagesTableMissing(err) {
		return false, nil
	}
	return false, err
}

// UpsertImage inserts or replaces an images row.
func (c *Catalog) UpsertImage(ctx context.Context, img api.Image) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO images (id, sd_id, filename, created_at, size_bytes) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET sd_id=excluded.sd_id, filename=excluded.filename,
			created_at=excluded.created_at, size_bytes=excluded.size_bytes
	`, img.ID, img.SDID, img.Filename, img.CreatedAt.UnixMilli(), img.SizeBytes)
	return err
}

// ListImagesBySD enumerates every image row for an SD.
func (c *Catalog) ListImagesBySD(ctx context.Context, sdID string) ([]api.Image, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, sd_id, filename, created_at, size_bytes FROM images WHERE sd_id = ?`, sdID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []api.Image
	for rows.Next() {
		var img api.Image
		var createdAt int64
		if err := rows.Scan(&img.ID, &img.SDID, &img.Filename, &createdAt, &img.SizeBytes); err != nil {
			return nil, err
		}
		img.CreatedAt = millisToTime(createdAt)
		out = append(out, img)
	}
	return out, rows.Err()
}

// DeleteImage removes an images row.
func (c *Catalog) DeleteImage(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM images WHERE id = ?`, id)
	return err
}
