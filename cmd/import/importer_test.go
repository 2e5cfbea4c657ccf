package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/logger"
	"github.com/farxc/separacao-pedidos/internal/separation"
	"github.com/farxc/separacao-pedidos/internal/store/memory"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func newDryRunEngine() (*separation.Engine, *memory.Store) {
	mem := memory.New()
	storage := memory.NewStorage(mem)
	return separation.NewEngine(storage.Tx, nil, nil, storage.Audit, logger.Discard(), separation.Config{}), mem
}

func TestRunImportCreate(t *testing.T) {
	engine, mem := newDryRunEngine()
	file := writeFile(t, "pedido.csv", "codigo;descricao;S1;S2\nM1;Arroz;1.200;0\nM2;Feijao;3;4\n")

	rep, err := runImport(context.Background(), engine, options{
		mode:   separation.ModeCreate,
		file:   file,
		owner:  "cli",
		region: "INTERIOR",
		date:   "2026-02-10",
	}, logger.Discard())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rep.New != 2 {
		t.Errorf("Expected 2 new materials, got %d", rep.New)
	}
	if got := mem.Snapshot(rep.SeparationID)["M1"]["S1"]; got != 1200 {
		t.Errorf("Expected 1200, got %d", got)
	}
}

func TestRunImportDryRunWithBase(t *testing.T) {
	engine, mem := newDryRunEngine()
	base := writeFile(t, "base.csv", "codigo;descricao;S1;S2\nM1;Arroz;5;1\n")
	file := writeFile(t, "redistribuicao.csv", "codigo;descricao;S1\nM1;Arroz;2\n")

	rep, err := runImport(context.Background(), engine, options{
		mode:   separation.ModeRedistribution,
		file:   file,
		base:   base,
		owner:  "cli",
		region: "CAPITAL",
	}, logger.Discard())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	snap := mem.Snapshot(rep.SeparationID)["M1"]
	if snap["S1"] != 2 || snap["S2"] != 0 {
		t.Errorf("Expected redistribution to overwrite, got %v", snap)
	}
}

func TestRunImportErrors(t *testing.T) {
	engine, _ := newDryRunEngine()
	csv := writeFile(t, "x.csv", "codigo;descricao;S1\nM1;Arroz;2\n")

	tests := []struct {
		name string
		opts options
	}{
		{"missing separation", options{mode: separation.ModeReinforcement, file: csv, owner: "cli"}},
		{"unsupported extension", options{mode: separation.ModeCreate, file: writeFile(t, "x.pdf", "x"), owner: "cli", region: "CAPITAL"}},
		{"missing file", options{mode: separation.ModeCreate, file: filepath.Join(t.TempDir(), "none.csv"), owner: "cli"}},
		{"bad date", options{mode: separation.ModeCreate, file: csv, owner: "cli", region: "CAPITAL", date: "10/02/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runImport(context.Background(), engine, tt.opts, logger.Discard()); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}

	_, err := runImport(context.Background(), engine, options{mode: separation.ModeMelanciaOverride, file: csv, separationID: 1, owner: "cli", material: "M1"}, logger.Discard())
	if !errors.Is(err, apperr.ErrInputMalformed) {
		t.Errorf("Expected ErrInputMalformed for a non-melancia material, got %v", err)
	}
}

func TestRunImportProfilesDecodedSheets(t *testing.T) {
	engine, _ := newDryRunEngine()
	base := writeFile(t, "base.csv", "codigo;descricao;S1;S2\nM1;Arroz;5;1\n")
	file := writeFile(t, "reforco.csv", "codigo;descricao;S1\nM1;Arroz;2\n")

	monitor := NewMonitor()
	monitor.Start(time.Hour, logger.Discard())

	_, err := runImport(context.Background(), engine, options{
		mode:    separation.ModeReinforcement,
		file:    file,
		base:    base,
		owner:   "cli",
		region:  "CAPITAL",
		monitor: monitor,
	}, logger.Discard())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	p := monitor.Stop()
	if p.Sheets != 2 || p.Rows != 4 || p.Cells != 14 {
		t.Errorf("Expected 2 sheets, 4 rows, 14 cells, got %+v", p)
	}
	if p.Samples != 1 {
		t.Errorf("Expected the final sample on stop, got %d samples", p.Samples)
	}
	if p.PeakGoroutines == 0 {
		t.Errorf("Expected goroutines to be sampled")
	}
}

func TestImportProfileBytesPerCell(t *testing.T) {
	if got := (importProfile{PeakHeapMB: 1}).BytesPerCell(); got != 0 {
		t.Errorf("Expected 0 without cells, got %d", got)
	}
	if got := (importProfile{PeakHeapMB: 2, Cells: 1024}).BytesPerCell(); got != 2048 {
		t.Errorf("Expected 2048, got %d", got)
	}

	var monitor *MemoryMonitor
	monitor.Observe(nil)
	if p := monitor.Stop(); p != (importProfile{}) {
		t.Errorf("Expected an empty profile from a nil monitor, got %+v", p)
	}
}
