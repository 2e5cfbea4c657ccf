package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// MatrixStore reads committed matrix state outside of any transaction.
type MatrixStore struct {
	db *sqlx.DB
}

func (ms *MatrixStore) ListCells(ctx context.Context, separationID int64) ([]Cell, error) {
	query := `
	SELECT
		c.item_id,
		m.material_code,
		m.description,
		m.type_separation,
		c.store_code,
		c.quantity
	FROM quantity_cells c
	JOIN material_items m ON m.id = c.item_id
	WHERE m.separation_id = $1 AND c.quantity > 0
	ORDER BY m.description, m.material_code, c.store_code`

	var result []Cell
	if err := ms.db.SelectContext(ctx, &result, query, separationID); err != nil {
		return nil, wrap("failed to list cells", err)
	}
	return result, nil
}

func (ms *MatrixStore) ListMaterials(ctx context.Context, separationID int64) ([]MaterialItem, error) {
	query := `
	SELECT id, separation_id, material_code, description, type_separation
	FROM material_items
	WHERE separation_id = $1
	ORDER BY description, material_code`

	var result []MaterialItem
	if err := ms.db.SelectContext(ctx, &result, query, separationID); err != nil {
		return nil, wrap("failed to list materials", err)
	}
	return result, nil
}
