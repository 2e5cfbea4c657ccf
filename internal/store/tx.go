package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// TxStore runs matrix operations inside one Postgres transaction.
type TxStore struct {
	db *sqlx.DB
}

func (ts *TxStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := ts.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("failed to begin transaction", err)
	}

	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrap("failed to commit transaction", err)
	}
	return nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) ActiveSeparationForOwner(ctx context.Context, ownerID string) (*Separation, error) {
	if _, err := t.tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID); err != nil {
		return nil, wrap("failed to lock owner", err)
	}

	query := `SELECT ` + separationColumns + ` FROM separations WHERE owner_id = $1 AND status = 'active' LIMIT 1 FOR UPDATE`

	var sep Separation
	if err := t.tx.GetContext(ctx, &sep, query, ownerID); err != nil {
		return nil, wrap("failed to get active separation", err)
	}
	return &sep, nil
}

func (t *pgTx) InsertSeparation(ctx context.Context, sep *Separation) error {
	query := `
	INSERT INTO separations (owner_id, region, separation_date, status, file_name)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, total_items, total_stores, created_at, updated_at`

	err := t.tx.QueryRowxContext(ctx, query, sep.OwnerID, sep.Region, sep.SeparationDate, sep.Status, sep.FileName).
		Scan(&sep.ID, &sep.TotalItems, &sep.TotalStores, &sep.CreatedAt, &sep.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("owner %s: %w", sep.OwnerID, apperr.ErrActiveSeparationExists)
		}
		return wrap("failed to insert separation", err)
	}
	return nil
}

func (t *pgTx) SeparationForUpdate(ctx context.Context, id int64) (*Separation, error) {
	query := `SELECT ` + separationColumns + ` FROM separations WHERE id = $1 FOR UPDATE`

	var sep Separation
	if err := t.tx.GetContext(ctx, &sep, query, id); err != nil {
		return nil, wrap(fmt.Sprintf("failed to lock separation %d", id), err)
	}
	return &sep, nil
}

func (t *pgTx) RefreshTotals(ctx context.Context, separationID int64) (int, int, error) {
	query := `
	UPDATE separations s SET
		total_items = (SELECT count(*) FROM material_items WHERE separation_id = s.id),
		total_stores = (
			SELECT count(DISTINCT c.store_code)
			FROM quantity_cells c
			JOIN material_items m ON m.id = c.item_id
			WHERE m.separation_id = s.id AND c.quantity > 0
		),
		updated_at = now()
	WHERE s.id = $1
	RETURNING total_items, total_stores`

	var items, stores int
	if err := t.tx.QueryRowxContext(ctx, query, separationID).Scan(&items, &stores); err != nil {
		return 0, 0, wrap("failed to refresh separation totals", err)
	}
	return items, stores, nil
}

func (t *pgTx) EnsureMaterial(ctx context.Context, separationID int64, code, description, typeTag string) (*MaterialItem, bool, error) {
	insert := `
	INSERT INTO material_items (separation_id, material_code, description, type_separation)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (separation_id, material_code) DO NOTHING
	RETURNING id, separation_id, material_code, description, type_separation`

	var item MaterialItem
	err := t.tx.GetContext(ctx, &item, insert, separationID, code, description, typeTag)
	if err == nil {
		return &item, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, wrap("failed to insert material", err)
	}

	existing, err := t.Material(ctx, separationID, code)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (t *pgTx) Material(ctx context.Context, separationID int64, code string) (*MaterialItem, error) {
	query := `
	SELECT id, separation_id, material_code, description, type_separation
	FROM material_items
	WHERE separation_id = $1 AND material_code = $2`

	var item MaterialItem
	if err := t.tx.GetContext(ctx, &item, query, separationID, code); err != nil {
		return nil, wrap(fmt.Sprintf("failed to get material %s", code), err)
	}
	return &item, nil
}

func (t *pgTx) GetCell(ctx context.Context, itemID int64, storeCode string) (int64, bool, error) {
	var q int64
	err := t.tx.GetContext(ctx, &q, `SELECT quantity FROM quantity_cells WHERE item_id = $1 AND store_code = $2`, itemID, storeCode)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrap("failed to get cell", err)
	}
	return q, q > 0, nil
}

func (t *pgTx) CellsForMaterial(ctx context.Context, itemID int64) (map[string]int64, error) {
	rows, err := t.tx.QueryxContext(ctx, `SELECT store_code, quantity FROM quantity_cells WHERE item_id = $1 AND quantity > 0`, itemID)
	if err != nil {
		return nil, wrap("failed to query material cells", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var store string
		var q int64
		if err := rows.Scan(&store, &q); err != nil {
			return nil, wrap("failed to scan cell", err)
		}
		result[store] = q
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("failed to read material cells", err)
	}
	return result, nil
}

func (t *pgTx) KnownStores(ctx context.Context, separationID int64) ([]string, error) {
	query := `
	SELECT DISTINCT c.store_code
	FROM quantity_cells c
	JOIN material_items m ON m.id = c.item_id
	WHERE m.separation_id = $1 AND c.quantity > 0
	ORDER BY c.store_code`

	var result []string
	if err := t.tx.SelectContext(ctx, &result, query, separationID); err != nil {
		return nil, wrap("failed to list known stores", err)
	}
	return result, nil
}

// UpsertCells writes one batch: positive quantities in a single multi-row
// upsert, zeros in a single delete.
func (t *pgTx) UpsertCells(ctx context.Context, writes []CellWrite) error {
	var (
		values  []string
		args    []any
		delIDs  []int64
		delCode []string
	)
	for _, w := range writes {
		if w.Quantity < 0 {
			return fmt.Errorf("%w: negative quantity %d for item %d store %s", apperr.ErrInputMalformed, w.Quantity, w.ItemID, w.StoreCode)
		}
		if w.Quantity == 0 {
			delIDs = append(delIDs, w.ItemID)
			delCode = append(delCode, w.StoreCode)
			continue
		}
		n := len(args)
		values = append(values, fmt.Sprintf("($%d, $%d, $%d)", n+1, n+2, n+3))
		args = append(args, w.ItemID, w.StoreCode, w.Quantity)
	}

	if len(values) > 0 {
		query := `
		INSERT INTO quantity_cells (item_id, store_code, quantity)
		VALUES ` + strings.Join(values, ", ") + `
		ON CONFLICT (item_id, store_code) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`

		if _, err := t.tx.ExecContext(ctx, query, args...); err != nil {
			return wrap("failed to upsert cells", err)
		}
	}

	if len(delIDs) > 0 {
		query := `
		DELETE FROM quantity_cells c
		USING unnest($1::bigint[], $2::text[]) AS d(item_id, store_code)
		WHERE c.item_id = d.item_id AND c.store_code = d.store_code`

		if _, err := t.tx.ExecContext(ctx, query, pq.Array(delIDs), pq.Array(delCode)); err != nil {
			return wrap("failed to delete cells", err)
		}
	}
	return nil
}
