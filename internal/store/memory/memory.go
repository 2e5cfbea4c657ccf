// Package memory is an in-process implementation of the store interfaces.
//
// Every transaction works on a private copy of the state and swaps it in on
// success, so a failed operation leaves nothing behind. Transactions are
// serialized; reads see the last committed state.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/store"
)

type stockKey struct {
	separationID int64
	kind         string
}

type state struct {
	nextSeparationID int64
	nextItemID       int64
	nextAuditID      int64

	separations map[int64]store.Separation
	items       map[int64]store.MaterialItem
	itemsByCode map[int64]map[string]int64
	cells       map[int64]map[string]int64
	audit       []store.AuditEntry
	stock       map[stockKey]map[string]int64
}

func newState() *state {
	return &state{
		separations: make(map[int64]store.Separation),
		items:       make(map[int64]store.MaterialItem),
		itemsByCode: make(map[int64]map[string]int64),
		cells:       make(map[int64]map[string]int64),
		stock:       make(map[stockKey]map[string]int64),
	}
}

func (s *state) clone() *state {
	c := &state{
		nextSeparationID: s.nextSeparationID,
		nextItemID:       s.nextItemID,
		nextAuditID:      s.nextAuditID,
		separations:      make(map[int64]store.Separation, len(s.separations)),
		items:            make(map[int64]store.MaterialItem, len(s.items)),
		itemsByCode:      make(map[int64]map[string]int64, len(s.itemsByCode)),
		cells:            make(map[int64]map[string]int64, len(s.cells)),
		audit:            append([]store.AuditEntry(nil), s.audit...),
		stock:            make(map[stockKey]map[string]int64, len(s.stock)),
	}
	for k, v := range s.separations {
		c.separations[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.itemsByCode {
		c.itemsByCode[k] = copyMap(v)
	}
	for k, v := range s.cells {
		c.cells[k] = copyMap(v)
	}
	for k, v := range s.stock {
		c.stock[k] = copyMap(v)
	}
	return c
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store holds the matrix state plus read-only master data.
type Store struct {
	mu    sync.RWMutex
	state *state

	regMu         sync.RWMutex
	stores        []store.StoreInfo
	materialTypes map[string]string

	failMu      sync.Mutex
	failAfter   int
	failErr     error
	upsertCalls int
	now         func() time.Time
}

func New() *Store {
	return &Store{
		state:         newState(),
		materialTypes: make(map[string]string),
		failAfter:     -1,
		now:           time.Now,
	}
}

// NewStorage exposes a memory store through the same Storage bundle as Postgres.
func NewStorage(m *Store) *store.Storage {
	return &store.Storage{
		Separations: m,
		Matrix:      m,
		Stores:      m,
		Materials:   m,
		Audit:       m,
		Stock:       m,
		Tx:          m,
	}
}

// SetStores replaces the store master data.
func (m *Store) SetStores(stores []store.StoreInfo) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	m.stores = append([]store.StoreInfo(nil), stores...)
}

// SetMaterialTypes registers master material types by code.
func (m *Store) SetMaterialTypes(types map[string]string) {
	m.regMu.Lock()
	defer m.regMu.Unlock()
	for code, t := range types {
		m.materialTypes[code] = t
	}
}

// FailUpsertAfter makes every UpsertCells call after the first n successful
// ones fail with err. A negative n disables injection.
func (m *Store) FailUpsertAfter(n int, err error) {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	m.failAfter = n
	m.failErr = err
	m.upsertCalls = 0
}

func (m *Store) injectedFailure() error {
	m.failMu.Lock()
	defer m.failMu.Unlock()
	if m.failAfter < 0 {
		return nil
	}
	m.upsertCalls++
	if m.upsertCalls > m.failAfter {
		return apperr.Storage("failed to upsert cells", m.failErr)
	}
	return nil
}

func (m *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return apperr.Storage("failed to begin transaction", err)
	}

	work := m.state.clone()
	if err := fn(&memTx{s: work, now: m.now, owner: m}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperr.Storage("failed to commit transaction", err)
	}
	m.state = work
	return nil
}

// Snapshot returns the committed quantities of a separation keyed by material then store.
func (m *Store) Snapshot(separationID int64) map[string]map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]map[string]int64)
	for code, itemID := range m.state.itemsByCode[separationID] {
		out[code] = copyMap(m.state.cells[itemID])
	}
	return out
}

func (m *Store) GetByID(ctx context.Context, id int64) (*store.Separation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sep, ok := m.state.separations[id]
	if !ok {
		return nil, fmt.Errorf("separation %d: %w", id, store.ErrNotFound)
	}
	return &sep, nil
}

func (m *Store) GetActive(ctx context.Context, ownerID string) (*store.Separation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if sep := m.state.activeFor(ownerID); sep != nil {
		return sep, nil
	}
	return nil, fmt.Errorf("active separation for %s: %w", ownerID, store.ErrNotFound)
}

func (m *Store) List(ctx context.Context, ownerID string, limit int) ([]store.Separation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []store.Separation
	for _, sep := range m.state.separations {
		if ownerID == "" || sep.OwnerID == ownerID {
			result = append(result, sep)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *Store) UpdateStatus(ctx context.Context, id int64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sep, ok := m.state.separations[id]
	if !ok {
		return fmt.Errorf("separation %d: %w", id, store.ErrNotFound)
	}
	if status == store.StatusActive && sep.Status != store.StatusActive {
		if m.state.activeFor(sep.OwnerID) != nil {
			return fmt.Errorf("failed to reactivate separation %d: %w", id, apperr.ErrActiveSeparationExists)
		}
	}
	sep.Status = status
	sep.UpdatedAt = m.now()
	m.state.separations[id] = sep
	return nil
}

func (m *Store) ListCells(ctx context.Context, separationID int64) ([]store.Cell, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []store.Cell
	for _, itemID := range m.state.itemsByCode[separationID] {
		item := m.state.items[itemID]
		for storeCode, q := range m.state.cells[itemID] {
			result = append(result, store.Cell{
				ItemID:         itemID,
				MaterialCode:   item.MaterialCode,
				Description:    item.Description,
				TypeSeparation: item.TypeSeparation,
				StoreCode:      storeCode,
				Quantity:       q,
			})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Description != b.Description {
			return a.Description < b.Description
		}
		if a.MaterialCode != b.MaterialCode {
			return a.MaterialCode < b.MaterialCode
		}
		return a.StoreCode < b.StoreCode
	})
	return result, nil
}

func (m *Store) ListMaterials(ctx context.Context, separationID int64) ([]store.MaterialItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []store.MaterialItem
	for _, itemID := range m.state.itemsByCode[separationID] {
		result = append(result, m.state.items[itemID])
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Description != result[j].Description {
			return result[i].Description < result[j].Description
		}
		return result[i].MaterialCode < result[j].MaterialCode
	})
	return result, nil
}

func (m *Store) ListStores(ctx context.Context) ([]store.StoreInfo, error) {
	m.regMu.RLock()
	defer m.regMu.RUnlock()
	return append([]store.StoreInfo(nil), m.stores...), nil
}

func (m *Store) LookupType(ctx context.Context, code string) (string, bool, error) {
	m.regMu.RLock()
	defer m.regMu.RUnlock()
	t, ok := m.materialTypes[code]
	return t, ok, nil
}

func (m *Store) Record(ctx context.Context, entry *store.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.nextAuditID++
	entry.ID = m.state.nextAuditID
	entry.CreatedAt = m.now()
	m.state.audit = append(m.state.audit, *entry)
	return nil
}

func (m *Store) Latest(ctx context.Context, separationID int64, limit int) ([]store.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []store.AuditEntry
	for i := len(m.state.audit) - 1; i >= 0; i-- {
		if m.state.audit[i].SeparationID != separationID {
			continue
		}
		result = append(result, m.state.audit[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (m *Store) SaveSnapshot(ctx context.Context, separationID int64, kind string, counts []store.StockCount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := make(map[string]int64, len(counts))
	for _, c := range counts {
		snap[c.MaterialCode] = c.Quantity
	}
	m.state.stock[stockKey{separationID, kind}] = snap
	return nil
}

func (m *Store) LoadSnapshot(ctx context.Context, separationID int64, kind string) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMap(m.state.stock[stockKey{separationID, kind}]), nil
}

func (s *state) activeFor(ownerID string) *store.Separation {
	for _, sep := range s.separations {
		if sep.OwnerID == ownerID && sep.Status == store.StatusActive {
			return &sep
		}
	}
	return nil
}
