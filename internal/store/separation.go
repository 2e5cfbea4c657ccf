package store

import (
	"context"
	"fmt"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/jmoiron/sqlx"
)

type SeparationStore struct {
	db *sqlx.DB
}

const separationColumns = `id, owner_id, region, separation_date, status, file_name, total_items, total_stores, created_at, updated_at`

func (ss *SeparationStore) GetByID(ctx context.Context, id int64) (*Separation, error) {
	query := `SELECT ` + separationColumns + ` FROM separations WHERE id = $1`

	var sep Separation
	if err := ss.db.GetContext(ctx, &sep, query, id); err != nil {
		return nil, wrap(fmt.Sprintf("failed to get separation %d", id), err)
	}
	return &sep, nil
}

func (ss *SeparationStore) GetActive(ctx context.Context, ownerID string) (*Separation, error) {
	query := `SELECT ` + separationColumns + ` FROM separations WHERE owner_id = $1 AND status = 'active' LIMIT 1`

	var sep Separation
	if err := ss.db.GetContext(ctx, &sep, query, ownerID); err != nil {
		return nil, wrap("failed to get active separation", err)
	}
	return &sep, nil
}

func (ss *SeparationStore) List(ctx context.Context, ownerID string, limit int) ([]Separation, error) {
	query := `
	SELECT ` + separationColumns + `
	FROM separations
	WHERE ($1 = '' OR owner_id = $1)
	ORDER BY created_at DESC, id DESC
	LIMIT $2`

	var result []Separation
	if err := ss.db.SelectContext(ctx, &result, query, ownerID, limit); err != nil {
		return nil, wrap("failed to list separations", err)
	}
	return result, nil
}

func (ss *SeparationStore) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE separations SET status = $1, updated_at = now() WHERE id = $2`

	result, err := ss.db.ExecContext(ctx, query, status, id)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("failed to reactivate separation %d: %w", id, apperr.ErrActiveSeparationExists)
		}
		return wrap("failed to update separation status", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("separation %d: %w", id, ErrNotFound)
	}
	return nil
}
