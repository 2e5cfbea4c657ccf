package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/farxc/separacao-pedidos/internal/logger"
	"github.com/farxc/separacao-pedidos/internal/separation"
	"github.com/farxc/separacao-pedidos/internal/sheet"
)

type options struct {
	mode         separation.Mode
	file         string
	base         string
	separationID int64
	owner        string
	region       string
	date         string
	material     string
	delimiter    string
	windows1252  bool
	monitor      *MemoryMonitor
}

// readGrid decodes a sheet file by extension.
func readGrid(path, delimiter string, windows1252 bool) (sheet.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return sheet.Read(path, f, sheet.CSVOptions{
		Delimiter:   sheet.DelimiterFrom(delimiter),
		Windows1252: windows1252,
	})
}

// runImport applies one sheet file to the engine. For dry runs of modes other
// than create, opts.base is first imported as the separation to merge into.
func runImport(ctx context.Context, engine *separation.Engine, opts options, appLogger *logger.Logger) (*separation.ChangeReport, error) {
	const component = "Importer"

	grid, err := readGrid(opts.file, opts.delimiter, opts.windows1252)
	if err != nil {
		return nil, err
	}
	opts.monitor.Observe(grid)
	appLogger.Info(component, "Sheet decoded: file=%s rows=%d", opts.file, len(grid))

	actor := opts.owner
	if opts.mode == separation.ModeCreate {
		return create(ctx, engine, opts, filepath.Base(opts.file), grid)
	}

	id := opts.separationID
	if opts.base != "" {
		baseGrid, err := readGrid(opts.base, opts.delimiter, opts.windows1252)
		if err != nil {
			return nil, err
		}
		opts.monitor.Observe(baseGrid)
		rep, err := create(ctx, engine, opts, filepath.Base(opts.base), baseGrid)
		if err != nil {
			return nil, fmt.Errorf("failed to import base sheet: %w", err)
		}
		id = rep.SeparationID
		appLogger.Info(component, "Base sheet imported: separation=%d items=%d", id, rep.TotalItems)
	}
	if id <= 0 {
		return nil, fmt.Errorf("-separation is required for mode %s", opts.mode)
	}

	switch opts.mode {
	case separation.ModeReinforcement, separation.ModeRedistribution:
		return engine.Reconcile(ctx, actor, id, opts.mode, grid)
	case separation.ModeMelanciaOverride:
		return engine.OverrideMelancia(ctx, actor, id, opts.material, grid)
	default:
		return nil, fmt.Errorf("mode %s is not supported by the importer", opts.mode)
	}
}

func create(ctx context.Context, engine *separation.Engine, opts options, fileName string, grid sheet.Grid) (*separation.ChangeReport, error) {
	date := time.Now()
	if opts.date != "" {
		var err error
		if date, err = time.Parse(time.DateOnly, opts.date); err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", opts.date, err)
		}
	}

	return engine.Create(ctx, opts.owner, separation.CreateInput{
		OwnerID:  opts.owner,
		Region:   separation.Region(opts.region),
		Date:     date,
		FileName: fileName,
		Grid:     grid,
	})
}
