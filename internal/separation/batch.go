package separation

import (
	"context"

	"github.com/farxc/separacao-pedidos/internal/store"
)

// batcher bounds the size of each cell write statement.
type batcher struct {
	tx      store.Tx
	size    int
	pending []store.CellWrite
	flushed int
}

func (e *Engine) newBatcher(tx store.Tx) *batcher {
	return &batcher{tx: tx, size: e.cfg.BatchSize}
}

func (b *batcher) add(ctx context.Context, w store.CellWrite) error {
	b.pending = append(b.pending, w)
	if len(b.pending) >= b.size {
		return b.flush(ctx)
	}
	return nil
}

func (b *batcher) flush(ctx context.Context) error {
	if len(b.pending) == 0 {
		return nil
	}
	if err := b.tx.UpsertCells(ctx, b.pending); err != nil {
		return err
	}
	b.flushed++
	b.pending = b.pending[:0]
	return nil
}
