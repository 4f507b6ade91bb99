package catalog

import (
	"context"
	"database/sql"

	"github.com/drewcsillag/notecove-storage/api"
)

// UpsertStorageDir inserts or replaces a storage_dirs row.
func (c *Catalog) UpsertStorageDir(ctx context.Context, sd api.StorageDir) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO storage_dirs (id, name, path, is_active) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, path=excluded.path, is_active=excluded.is_active
	`, sd.ID, sd.Name, sd.Path, boolToInt(sd.IsActive))
	return err
}

// GetStorageDir reads a storage dir by id.
func (c *Catalog) GetStorageDir(ctx context.Context, id string) (api.StorageDir, error) {
	row := c.db.QueryRowContext(ctx, `SELECT id, name, path, is_active FROM storage_dirs WHERE id = ?`, id)
	var sd api.StorageDir
	var active int
	if err := row.Scan(&sd.ID, &sd.Name, &sd.Path, &active); err != nil {
		if err == sql.ErrNoRows {
			return api.StorageDir{}, &notFoundErr{entity: "storageDir", id: id}
		}
		return api.StorageDir{}, err
	}
	sd.IsActive = intToBool(active)
	return sd, nil
}

// ListStorageDirs enumerates every registered storage dir.
func (c *Catalog) ListStorageDirs(ctx context.Context) ([]api.StorageDir, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name, path, is_active FROM storage_dirs`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []api.StorageDir
	for rows.Next() {
		var sd api.StorageDir
		var active int
		if err := rows.Scan(&sd.ID, &sd.Name, &sd.Path, &active); err != nil {
			return nil, err
		}
		sd.IsActive = intToBool(active)
		out = append(out, sd)
	}
	return out, rows.Err()
}
