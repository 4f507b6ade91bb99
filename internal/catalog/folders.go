package catalog

import (
	"context"
	"database/sql"

	"github.com/drewcsillag/notecove-storage/api"
)

// UpsertFolder inserts or replaces a folder row.
func (c *Catalog) UpsertFolder(ctx context.Context, f api.Folder) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO folders (id, sd_id, name, parent_id) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET sd_id=excluded.sd_id, name=excluded.name, parent_id=excluded.parent_id
	`, f.ID, f.SDID, f.Name, f.ParentID)
	return err
}

// ReplaceFoldersForSD atomically replaces every folder row for sdID with
// fresh ones, used after the discovery reconciler reloads an SD's folder
// tree from its CRDT.
func (c *Catalog) ReplaceFoldersForSD(ctx context.Context, sdID string, folders []api.Folder) error {
	return c.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE sd_id = ?`, sdID); err != nil {
			return err
		}
		for _, f := range folders {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO folders (id, sd_id, name, parent_id) VALUES (?, ?, ?, ?)
			`, f.ID, f.SDID, f.Name, f.ParentID); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListFoldersBySD enumerates a SD's folders.
func (c *Catalog) ListFoldersBySD(ctx context.Context, sdID string) ([]api.Folder, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, sd_id, name, parent_id FROM folders WHERE sd_id = ?`, sdID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var folders []api.Folder
	for rows.Next() {
		var f api.Folder
		var parentID sql.NullString
		if err := rows.Scan(&f.ID, &f.SDID, &f.Name, &parentID); err != nil {
			return nil, err
		}
		f.ParentID = parentID.String
		folders = append(folders, f)
	}
	return folders, rows.Err()
}
