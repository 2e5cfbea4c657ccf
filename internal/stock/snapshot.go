package stock

import (
	"context"
	"fmt"
	"strings"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/sheet"
	"github.com/farxc/separacao-pedidos/internal/store"
	"golang.org/x/sync/errgroup"
)

type Snapshots interface {
	SaveSnapshot(ctx context.Context, separationID int64, kind string, counts []store.StockCount) error
	LoadSnapshot(ctx context.Context, separationID int64, kind string) (map[string]int64, error)
}

func ParseKind(s string) (string, error) {
	switch k := strings.ToLower(strings.TrimSpace(s)); k {
	case store.StockReference, store.StockCurrent:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown stock snapshot kind %q", apperr.ErrInputMalformed, s)
	}
}

// Counts turns an uploaded (material code, quantity) list into snapshot rows.
func Counts(separationID int64, kind string, lines []sheet.CodeQuantity) []store.StockCount {
	out := make([]store.StockCount, 0, len(lines))
	for _, l := range lines {
		out = append(out, store.StockCount{
			SeparationID: separationID,
			Kind:         kind,
			MaterialCode: l.Code,
			Quantity:     l.Quantity,
		})
	}
	return out
}

// Load reads both snapshots of a separation concurrently and compares them.
func Load(ctx context.Context, src Snapshots, separationID int64) (*Comparison, error) {
	var reference, current map[string]int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reference, err = src.LoadSnapshot(gctx, separationID, store.StockReference)
		return err
	})
	g.Go(func() error {
		var err error
		current, err = src.LoadSnapshot(gctx, separationID, store.StockCurrent)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load stock snapshots: %w", err)
	}
	return Compare(reference, current), nil
}
