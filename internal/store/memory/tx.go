package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/store"
)

type memTx struct {
	s     *state
	now   func() time.Time
	owner *Store
}

func (t *memTx) ActiveSeparationForOwner(ctx context.Context, ownerID string) (*store.Separation, error) {
	if sep := t.s.activeFor(ownerID); sep != nil {
		return sep, nil
	}
	return nil, fmt.Errorf("active separation for %s: %w", ownerID, store.ErrNotFound)
}

func (t *memTx) InsertSeparation(ctx context.Context, sep *store.Separation) error {
	if sep.Status == store.StatusActive && t.s.activeFor(sep.OwnerID) != nil {
		return fmt.Errorf("owner %s: %w", sep.OwnerID, apperr.ErrActiveSeparationExists)
	}
	t.s.nextSeparationID++
	sep.ID = t.s.nextSeparationID
	sep.CreatedAt = t.now()
	sep.UpdatedAt = sep.CreatedAt
	t.s.separations[sep.ID] = *sep
	t.s.itemsByCode[sep.ID] = make(map[string]int64)
	return nil
}

func (t *memTx) SeparationForUpdate(ctx context.Context, id int64) (*store.Separation, error) {
	sep, ok := t.s.separations[id]
	if !ok {
		return nil, fmt.Errorf("separation %d: %w", id, store.ErrNotFound)
	}
	return &sep, nil
}

func (t *memTx) RefreshTotals(ctx context.Context, separationID int64) (int, int, error) {
	sep, ok := t.s.separations[separationID]
	if !ok {
		return 0, 0, fmt.Errorf("separation %d: %w", separationID, store.ErrNotFound)
	}
	stores, err := t.KnownStores(ctx, separationID)
	if err != nil {
		return 0, 0, err
	}
	sep.TotalItems = len(t.s.itemsByCode[separationID])
	sep.TotalStores = len(stores)
	sep.UpdatedAt = t.now()
	t.s.separations[separationID] = sep
	return sep.TotalItems, sep.TotalStores, nil
}

func (t *memTx) EnsureMaterial(ctx context.Context, separationID int64, code, description, typeTag string) (*store.MaterialItem, bool, error) {
	byCode, ok := t.s.itemsByCode[separationID]
	if !ok {
		return nil, false, fmt.Errorf("separation %d: %w", separationID, store.ErrNotFound)
	}
	if id, ok := byCode[code]; ok {
		item := t.s.items[id]
		return &item, false, nil
	}

	t.s.nextItemID++
	item := store.MaterialItem{
		ID:             t.s.nextItemID,
		SeparationID:   separationID,
		MaterialCode:   code,
		Description:    description,
		TypeSeparation: typeTag,
	}
	t.s.items[item.ID] = item
	byCode[code] = item.ID
	return &item, true, nil
}

func (t *memTx) Material(ctx context.Context, separationID int64, code string) (*store.MaterialItem, error) {
	id, ok := t.s.itemsByCode[separationID][code]
	if !ok {
		return nil, fmt.Errorf("material %s: %w", code, store.ErrNotFound)
	}
	item := t.s.items[id]
	return &item, nil
}

func (t *memTx) GetCell(ctx context.Context, itemID int64, storeCode string) (int64, bool, error) {
	q := t.s.cells[itemID][storeCode]
	return q, q > 0, nil
}

func (t *memTx) CellsForMaterial(ctx context.Context, itemID int64) (map[string]int64, error) {
	return copyMap(t.s.cells[itemID]), nil
}

func (t *memTx) KnownStores(ctx context.Context, separationID int64) ([]string, error) {
	seen := make(map[string]bool)
	for _, itemID := range t.s.itemsByCode[separationID] {
		for storeCode := range t.s.cells[itemID] {
			seen[storeCode] = true
		}
	}
	result := make([]string, 0, len(seen))
	for storeCode := range seen {
		result = append(result, storeCode)
	}
	sort.Strings(result)
	return result, nil
}

func (t *memTx) UpsertCells(ctx context.Context, writes []store.CellWrite) error {
	if t.owner != nil {
		if err := t.owner.injectedFailure(); err != nil {
			return err
		}
	}
	for _, w := range writes {
		if w.Quantity < 0 {
			return fmt.Errorf("%w: negative quantity %d for item %d store %s", apperr.ErrInputMalformed, w.Quantity, w.ItemID, w.StoreCode)
		}
		if _, ok := t.s.items[w.ItemID]; !ok {
			return apperr.Storage("failed to upsert cells", fmt.Errorf("item %d does not exist", w.ItemID))
		}
		if w.Quantity == 0 {
			delete(t.s.cells[w.ItemID], w.StoreCode)
			if len(t.s.cells[w.ItemID]) == 0 {
				delete(t.s.cells, w.ItemID)
			}
			continue
		}
		if t.s.cells[w.ItemID] == nil {
			t.s.cells[w.ItemID] = make(map[string]int64)
		}
		t.s.cells[w.ItemID][w.StoreCode] = w.Quantity
	}
	return nil
}
