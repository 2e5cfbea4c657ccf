package store

import (
	"context"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = apperr.ErrNotFound

// Transactor runs fn inside one transaction. A non-nil error from fn rolls
// every write back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side of one separation's matrix.
type Tx interface {
	// ActiveSeparationForOwner serializes creators of the same owner and returns
	// the owner's active separation, or ErrNotFound.
	ActiveSeparationForOwner(ctx context.Context, ownerID string) (*Separation, error)
	InsertSeparation(ctx context.Context, sep *Separation) error
	SeparationForUpdate(ctx context.Context, id int64) (*Separation, error)
	// RefreshTotals recomputes the cached item and store counts.
	RefreshTotals(ctx context.Context, separationID int64) (items, stores int, err error)

	EnsureMaterial(ctx context.Context, separationID int64, code, description, typeTag string) (*MaterialItem, bool, error)
	Material(ctx context.Context, separationID int64, code string) (*MaterialItem, error)
	GetCell(ctx context.Context, itemID int64, storeCode string) (int64, bool, error)
	CellsForMaterial(ctx context.Context, itemID int64) (map[string]int64, error)
	KnownStores(ctx context.Context, separationID int64) ([]string, error)
	UpsertCells(ctx context.Context, writes []CellWrite) error
}

type Storage struct {
	Separations interface {
		GetByID(ctx context.Context, id int64) (*Separation, error)
		GetActive(ctx context.Context, ownerID string) (*Separation, error)
		List(ctx context.Context, ownerID string, limit int) ([]Separation, error)
		UpdateStatus(ctx context.Context, id int64, status string) error
	}

	Matrix interface {
		ListCells(ctx context.Context, separationID int64) ([]Cell, error)
		ListMaterials(ctx context.Context, separationID int64) ([]MaterialItem, error)
	}

	Stores interface {
		ListStores(ctx context.Context) ([]StoreInfo, error)
	}

	Materials interface {
		LookupType(ctx context.Context, code string) (string, bool, error)
	}

	Audit interface {
		Record(ctx context.Context, entry *AuditEntry) error
		Latest(ctx context.Context, separationID int64, limit int) ([]AuditEntry, error)
	}

	Stock interface {
		SaveSnapshot(ctx context.Context, separationID int64, kind string, counts []StockCount) error
		LoadSnapshot(ctx context.Context, separationID int64, kind string) (map[string]int64, error)
	}

	Tx Transactor
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		Separations: &SeparationStore{db: db},
		Matrix:      &MatrixStore{db: db},
		Stores:      &StoreRegistry{db: db},
		Materials:   &MaterialRegistry{db: db},
		Audit:       &AuditStore{db: db},
		Stock:       &StockStore{db: db},
		Tx:          &TxStore{db: db},
	}
}
