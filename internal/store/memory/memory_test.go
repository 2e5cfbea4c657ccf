package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/store"
	"github.com/google/go-cmp/cmp"
)

func newSeparation(owner string) *store.Separation {
	return &store.Separation{
		OwnerID:        owner,
		Region:         "CAPITAL",
		SeparationDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Status:         store.StatusActive,
	}
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	ctx := context.Background()
	m := New()

	var sepID int64
	err := m.WithTx(ctx, func(tx store.Tx) error {
		sep := newSeparation("u1")
		if err := tx.InsertSeparation(ctx, sep); err != nil {
			return err
		}
		sepID = sep.ID
		item, created, err := tx.EnsureMaterial(ctx, sep.ID, "M1", "Arroz", "SECO")
		if err != nil {
			return err
		}
		if !created {
			t.Errorf("Expected material to be created")
		}
		return tx.UpsertCells(ctx, []store.CellWrite{{ItemID: item.ID, StoreCode: "L1", Quantity: 5}})
	})
	if err != nil {
		t.Fatalf("Expected commit, got %v", err)
	}

	boom := errors.New("boom")
	err = m.WithTx(ctx, func(tx store.Tx) error {
		item, err := tx.Material(ctx, sepID, "M1")
		if err != nil {
			return err
		}
		if err := tx.UpsertCells(ctx, []store.CellWrite{{ItemID: item.ID, StoreCode: "L1", Quantity: 0}, {ItemID: item.ID, StoreCode: "L2", Quantity: 9}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected boom, got %v", err)
	}

	want := map[string]map[string]int64{"M1": {"L1": 5}}
	if diff := cmp.Diff(want, m.Snapshot(sepID)); diff != "" {
		t.Errorf("snapshot mismatch after rollback (-want +got):\n%s", diff)
	}
}

func TestOneActiveSeparationPerOwner(t *testing.T) {
	ctx := context.Background()
	m := New()

	insert := func(owner string) error {
		return m.WithTx(ctx, func(tx store.Tx) error {
			return tx.InsertSeparation(ctx, newSeparation(owner))
		})
	}

	if err := insert("u1"); err != nil {
		t.Fatalf("Expected first insert to succeed, got %v", err)
	}
	if err := insert("u1"); !errors.Is(err, apperr.ErrActiveSeparationExists) {
		t.Fatalf("Expected ErrActiveSeparationExists, got %v", err)
	}
	if err := insert("u2"); err != nil {
		t.Fatalf("Expected other owner to succeed, got %v", err)
	}

	active, err := m.GetActive(ctx, "u1")
	if err != nil {
		t.Fatalf("Expected active separation, got %v", err)
	}
	if err := m.UpdateStatus(ctx, active.ID, store.StatusCompleted); err != nil {
		t.Fatalf("Expected status update, got %v", err)
	}
	if err := insert("u1"); err != nil {
		t.Fatalf("Expected insert after completion to succeed, got %v", err)
	}
	if err := m.UpdateStatus(ctx, active.ID, store.StatusActive); !errors.Is(err, apperr.ErrActiveSeparationExists) {
		t.Errorf("Expected reactivation to be rejected, got %v", err)
	}
}

func TestUpsertZeroRemovesCellAndRefreshTotals(t *testing.T) {
	ctx := context.Background()
	m := New()

	err := m.WithTx(ctx, func(tx store.Tx) error {
		sep := newSeparation("u1")
		if err := tx.InsertSeparation(ctx, sep); err != nil {
			return err
		}
		a, _, _ := tx.EnsureMaterial(ctx, sep.ID, "A", "Alho", "SECO")
		b, _, _ := tx.EnsureMaterial(ctx, sep.ID, "B", "Batata", "SECO")
		if _, created, _ := tx.EnsureMaterial(ctx, sep.ID, "A", "outro", "FRIO"); created {
			t.Errorf("Expected existing material to be reused")
		}
		if err := tx.UpsertCells(ctx, []store.CellWrite{
			{ItemID: a.ID, StoreCode: "L1", Quantity: 3},
			{ItemID: a.ID, StoreCode: "L2", Quantity: 1},
			{ItemID: b.ID, StoreCode: "L3", Quantity: 2},
		}); err != nil {
			return err
		}
		if err := tx.UpsertCells(ctx, []store.CellWrite{{ItemID: a.ID, StoreCode: "L2", Quantity: 0}}); err != nil {
			return err
		}

		if _, ok, _ := tx.GetCell(ctx, a.ID, "L2"); ok {
			t.Errorf("Expected zeroed cell to be absent")
		}
		stores, _ := tx.KnownStores(ctx, sep.ID)
		if diff := cmp.Diff([]string{"L1", "L3"}, stores); diff != "" {
			t.Errorf("known stores mismatch (-want +got):\n%s", diff)
		}
		items, storeCount, err := tx.RefreshTotals(ctx, sep.ID)
		if err != nil {
			return err
		}
		if items != 2 || storeCount != 2 {
			t.Errorf("Expected totals 2/2, got %d/%d", items, storeCount)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	cells, _ := m.ListCells(ctx, 1)
	if len(cells) != 2 || cells[0].MaterialCode != "A" || cells[1].MaterialCode != "B" {
		t.Errorf("Expected cells ordered by description, got %+v", cells)
	}
}

func TestFailUpsertAfter(t *testing.T) {
	ctx := context.Background()
	m := New()
	m.FailUpsertAfter(1, errors.New("disk full"))

	err := m.WithTx(ctx, func(tx store.Tx) error {
		sep := newSeparation("u1")
		if err := tx.InsertSeparation(ctx, sep); err != nil {
			return err
		}
		item, _, _ := tx.EnsureMaterial(ctx, sep.ID, "A", "Alho", "SECO")
		if err := tx.UpsertCells(ctx, []store.CellWrite{{ItemID: item.ID, StoreCode: "L1", Quantity: 1}}); err != nil {
			t.Fatalf("Expected first batch to pass, got %v", err)
		}
		return tx.UpsertCells(ctx, []store.CellWrite{{ItemID: item.ID, StoreCode: "L2", Quantity: 1}})
	})
	if !errors.Is(err, apperr.ErrStorageFailure) {
		t.Fatalf("Expected storage failure, got %v", err)
	}
	if list, _ := m.List(ctx, "", 10); len(list) != 0 {
		t.Errorf("Expected nothing committed, got %d separations", len(list))
	}
}

func TestAuditAndStock(t *testing.T) {
	ctx := context.Background()
	m := New()

	for i := 0; i < 3; i++ {
		if err := m.Record(ctx, &store.AuditEntry{SeparationID: 1, Action: "reinforcement"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	m.Record(ctx, &store.AuditEntry{SeparationID: 2, Action: "create"})

	latest, _ := m.Latest(ctx, 1, 2)
	if len(latest) != 2 || latest[0].ID != 3 || latest[1].ID != 2 {
		t.Errorf("Expected newest two entries for separation 1, got %+v", latest)
	}

	counts := []store.StockCount{{MaterialCode: "A", Quantity: 4}, {MaterialCode: "B", Quantity: 0}}
	if err := m.SaveSnapshot(ctx, 1, store.StockReference, counts); err != nil {
		t.Fatalf("save: %v", err)
	}
	snap, _ := m.LoadSnapshot(ctx, 1, store.StockReference)
	if diff := cmp.Diff(map[string]int64{"A": 4, "B": 0}, snap); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}
