package store

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type AuditStore struct {
	db *sqlx.DB
}

func (as *AuditStore) Record(ctx context.Context, entry *AuditEntry) error {
	query := `INSERT INTO audit_log (
		separation_id,
		actor_id,
		action,
		details,
		report
	) VALUES (
		:separation_id,
		:actor_id,
		:action,
		:details,
		:report
	) RETURNING id, created_at`

	rows, err := sqlx.NamedQueryContext(ctx, as.db, query, entry)
	if err != nil {
		return wrap("failed to record audit entry", err)
	}
	defer rows.Close()

	if rows.Next() {
		if err := rows.Scan(&entry.ID, &entry.CreatedAt); err != nil {
			return wrap("failed to scan audit entry", err)
		}
	}
	return wrap("failed to record audit entry", rows.Err())
}

func (as *AuditStore) Latest(ctx context.Context, separationID int64, limit int) ([]AuditEntry, error) {
	query := `
	SELECT id, separation_id, actor_id, action, details, report, created_at
	FROM audit_log
	WHERE separation_id = $1
	ORDER BY created_at DESC, id DESC
	LIMIT $2`

	var result []AuditEntry
	if err := as.db.SelectContext(ctx, &result, query, separationID, limit); err != nil {
		return nil, wrap("failed to get audit entries", err)
	}
	return result, nil
}
