package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// StoreRegistry reads the 'stores' master data.
type StoreRegistry struct {
	db *sqlx.DB
}

func (sr *StoreRegistry) ListStores(ctx context.Context) ([]StoreInfo, error) {
	query := `
	SELECT prefix, name, uf, zona_seco, subzona_seco, ordem_seco, zona_frio, subzona_frio, ordem_frio
	FROM stores
	ORDER BY prefix`

	var result []StoreInfo
	if err := sr.db.SelectContext(ctx, &result, query); err != nil {
		return nil, wrap("failed to list stores", err)
	}
	return result, nil
}

// MaterialRegistry reads the 'master_materials' table.
type MaterialRegistry struct {
	db *sqlx.DB
}

func (mr *MaterialRegistry) LookupType(ctx context.Context, code string) (string, bool, error) {
	query := `SELECT type_separation FROM master_materials WHERE material_code = $1`

	var typeTag string
	err := mr.db.GetContext(ctx, &typeTag, query, code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("failed to look up material type", err)
	}
	return typeTag, true, nil
}
