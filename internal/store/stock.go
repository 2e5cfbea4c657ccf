package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type StockStore struct {
	db *sqlx.DB
}

// SaveSnapshot replaces the snapshot of the given kind for a separation.
func (ss *StockStore) SaveSnapshot(ctx context.Context, separationID int64, kind string, counts []StockCount) error {
	tx, err := ss.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("failed to begin stock snapshot", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stock_snapshots WHERE separation_id = $1 AND kind = $2`, separationID, kind); err != nil {
		return wrap("failed to clear stock snapshot", err)
	}

	codes := make([]string, len(counts))
	quantities := make([]int64, len(counts))
	for i, c := range counts {
		codes[i] = c.MaterialCode
		quantities[i] = c.Quantity
	}

	query := `
	INSERT INTO stock_snapshots (separation_id, kind, material_code, quantity)
	SELECT $1, $2, s.material_code, s.quantity
	FROM unnest($3::text[], $4::bigint[]) AS s(material_code, quantity)`

	if _, err := tx.ExecContext(ctx, query, separationID, kind, pq.Array(codes), pq.Array(quantities)); err != nil {
		return wrap(fmt.Sprintf("failed to insert %s stock snapshot", kind), err)
	}

	return wrap("failed to commit stock snapshot", tx.Commit())
}

func (ss *StockStore) LoadSnapshot(ctx context.Context, separationID int64, kind string) (map[string]int64, error) {
	query := `SELECT separation_id, kind, material_code, quantity FROM stock_snapshots WHERE separation_id = $1 AND kind = $2`

	var rows []StockCount
	if err := ss.db.SelectContext(ctx, &rows, query, separationID, kind); err != nil {
		return nil, wrap("failed to load stock snapshot", err)
	}

	result := make(map[string]int64, len(rows))
	for _, r := range rows {
		result[r.MaterialCode] = r.Quantity
	}
	return result, nil
}
