package view

import (
	"context"
	"errors"
	"testing"

	"github.com/farxc/separacao-pedidos/internal/store"
	"github.com/google/go-cmp/cmp"
)

func masterStores() []store.StoreInfo {
	return []store.StoreInfo{
		{Prefix: "S1", Name: "Loja 1", ZonaSeco: "NORTE", SubzonaSeco: "A", OrdemSeco: 3, ZonaFrio: "FRIO-1", SubzonaFrio: "X", OrdemFrio: 2},
		{Prefix: "S2", Name: "Loja 2", ZonaSeco: "SUL", SubzonaSeco: "B", OrdemSeco: 1, ZonaFrio: "FRIO-1", SubzonaFrio: "X", OrdemFrio: 1},
		{Prefix: "S3", Name: "Loja 3", ZonaSeco: "NORTE", SubzonaSeco: "C", OrdemSeco: 2, ZonaFrio: "FRIO-2", SubzonaFrio: "Y", OrdemFrio: 5},
		{Prefix: "S4", Name: "Loja 4", ZonaSeco: "SUL", SubzonaSeco: "B", OrdemSeco: 4, ZonaFrio: "FRIO-2", SubzonaFrio: "Y", OrdemFrio: 6},
	}
}

func cell(code, desc, typeTag, storeCode string, q int64) store.Cell {
	return store.Cell{MaterialCode: code, Description: desc, TypeSeparation: typeTag, StoreCode: storeCode, Quantity: q}
}

func sampleCells() []store.Cell {
	return []store.Cell{
		cell("M1", "ARROZ", "SECO", "S1", 5),
		cell("M1", "ARROZ", "SECO", "S3", 3),
		cell("M2", "FRANGO", "FRIO", "S2", 2),
		cell("M3", "ACUCAR", "SECO", "S9", 4),
		cell("M4", "OVO BRANCO", "OVO", "S4", 0),
	}
}

func TestFilterCircuit(t *testing.T) {
	tests := []struct {
		name  string
		types string
		circ  string
		want  Circuit
	}{
		{"no filter", "", "", CircuitSeco},
		{"only frio", "frio", "", CircuitFrio},
		{"frio with others", "FRIO,SECO", "", CircuitSeco},
		{"explicit override", "SECO", "frio", CircuitFrio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.types, tt.circ)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got := f.circuit(); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}

	if _, err := ParseFilter("", "QUENTE"); err == nil {
		t.Error("Expected error for unknown circuit")
	}
}

func TestStoreViewOrdering(t *testing.T) {
	v := BuildStoreView(sampleCells(), masterStores(), Filter{})

	var prefixes []string
	for _, s := range v.Stores {
		prefixes = append(prefixes, s.Prefix)
	}
	// S4 carries only a zero cell, so its column disappears
	want := []string{"S2", "S3", "S1", "S9"}
	if diff := cmp.Diff(want, prefixes); diff != "" {
		t.Errorf("Store order mismatch (-want +got):\n%s", diff)
	}

	var zones []string
	for _, z := range v.Zones {
		zones = append(zones, z.Zone)
	}
	if diff := cmp.Diff([]string{"SUL", "NORTE", Unzoned}, zones); diff != "" {
		t.Errorf("Zone order mismatch (-want +got):\n%s", diff)
	}

	north := v.Zones[1]
	if len(north.Subzones) != 2 || north.Subzones[0].Subzone != "C" || north.Subzones[1].Subzone != "A" {
		t.Errorf("Expected subzones C then A, got %+v", north.Subzones)
	}
	if north.Total != 8 {
		t.Errorf("Expected NORTE total 8, got %d", north.Total)
	}

	var codes []string
	for _, r := range v.Rows {
		codes = append(codes, r.MaterialCode)
	}
	if diff := cmp.Diff([]string{"M3", "M1", "M2"}, codes); diff != "" {
		t.Errorf("Row order mismatch (-want +got):\n%s", diff)
	}

	arroz := v.Rows[1]
	if diff := cmp.Diff([]int64{0, 3, 5, 0}, arroz.Quantities); diff != "" {
		t.Errorf("ARROZ quantities mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{0, 8, 0}, arroz.ZoneTotals); diff != "" {
		t.Errorf("ARROZ zone totals mismatch (-want +got):\n%s", diff)
	}
	if v.Total != 14 {
		t.Errorf("Expected total 14, got %d", v.Total)
	}
}

func TestZoneViewFrioCircuit(t *testing.T) {
	v := BuildZoneView(sampleCells(), masterStores(), Filter{Types: []string{"FRIO"}})

	if v.Circuit != CircuitFrio {
		t.Fatalf("Expected FRIO circuit, got %s", v.Circuit)
	}
	want := &ZoneView{
		Circuit: CircuitFrio,
		Zones:   []ZoneColumn{{Zone: "FRIO-1", Total: 2}},
		Rows:    []ZoneRow{{MaterialCode: "M2", Description: "FRANGO", Type: "FRIO", Quantities: []int64{2}, Total: 2}},
		Total:   2,
	}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("Zone view mismatch (-want +got):\n%s", diff)
	}
}

func TestViewNeverShowsZeroRowsOrColumns(t *testing.T) {
	cells := []store.Cell{
		cell("M1", "A", "SECO", "S1", 0),
		cell("M2", "B", "SECO", "S2", 0),
	}

	sv := BuildStoreView(cells, masterStores(), Filter{})
	if len(sv.Rows) != 0 || len(sv.Stores) != 0 || len(sv.Zones) != 0 {
		t.Errorf("Expected empty store view, got %+v", sv)
	}

	zv := BuildZoneView(sampleCells(), masterStores(), Filter{})
	for _, z := range zv.Zones {
		if z.Total == 0 {
			t.Errorf("Zone %s has zero total", z.Zone)
		}
	}
	for _, r := range zv.Rows {
		if r.Total == 0 {
			t.Errorf("Row %s has zero total", r.MaterialCode)
		}
	}
}

type fakeLister struct {
	cells  []store.Cell
	stores []store.StoreInfo
	err    error
}

func (f fakeLister) ListCells(ctx context.Context, separationID int64) ([]store.Cell, error) {
	return f.cells, f.err
}

func (f fakeLister) ListStores(ctx context.Context) ([]store.StoreInfo, error) {
	return f.stores, nil
}

func TestLoad(t *testing.T) {
	src := fakeLister{cells: sampleCells(), stores: masterStores()}
	cells, stores, err := Load(context.Background(), src, src, 1)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(cells) != 5 || len(stores) != 4 {
		t.Errorf("Expected 5 cells and 4 stores, got %d and %d", len(cells), len(stores))
	}

	boom := errors.New("boom")
	if _, _, err := Load(context.Background(), fakeLister{err: boom}, src, 1); !errors.Is(err, boom) {
		t.Errorf("Expected boom, got %v", err)
	}
}
