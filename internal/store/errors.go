package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// wrap classifies a driver error: no rows becomes ErrNotFound, anything else a storage failure.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return apperr.Storage(op, err)
}
