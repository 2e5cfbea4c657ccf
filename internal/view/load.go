package view

import (
	"context"

	"github.com/farxc/separacao-pedidos/internal/store"
	"golang.org/x/sync/errgroup"
)

type CellLister interface {
	ListCells(ctx context.Context, separationID int64) ([]store.Cell, error)
}

type StoreLister interface {
	ListStores(ctx context.Context) ([]store.StoreInfo, error)
}

// Load reads the committed cells and the store master data concurrently.
func Load(ctx context.Context, cells CellLister, stores StoreLister, separationID int64) ([]store.Cell, []store.StoreInfo, error) {
	var (
		cellRows  []store.Cell
		storeRows []store.StoreInfo
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cellRows, err = cells.ListCells(gctx, separationID)
		return err
	})
	g.Go(func() error {
		var err error
		storeRows, err = stores.ListStores(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cellRows, storeRows, nil
}
