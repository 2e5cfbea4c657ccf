package separation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/store"
)

// errPreview rolls back the transaction a preview ran in, so a preview reports
// exactly what a commit would.
var errPreview = errors.New("cut preview")

// PreviewCut computes the cut summary without writing anything.
func (e *Engine) PreviewCut(ctx context.Context, separationID int64, req CutRequest) (*ChangeReport, error) {
	var rep *ChangeReport
	err := e.tx.WithTx(ctx, func(tx store.Tx) error {
		var err error
		rep, err = e.cut(ctx, tx, separationID, req)
		if err != nil {
			return err
		}
		return errPreview
	})
	if err != nil && !errors.Is(err, errPreview) {
		return nil, err
	}
	rep.Preview = true
	return rep, nil
}

// Cut reduces one material's allocation. It cannot be undone.
func (e *Engine) Cut(ctx context.Context, actorID string, separationID int64, req CutRequest) (*ChangeReport, error) {
	const component = "Engine"

	var rep *ChangeReport
	err := e.tx.WithTx(ctx, func(tx store.Tx) error {
		var err error
		rep, err = e.cut(ctx, tx, separationID, req)
		return err
	})
	if err != nil {
		e.log.Warn(component, "Cut failed: separation=%d material=%s mode=%s error=%v", separationID, req.MaterialCode, req.Mode, err)
		return nil, err
	}

	e.log.Info(component, "Cut committed: separation=%d material=%s mode=%s totalCut=%d storesAffected=%d", separationID, req.MaterialCode, req.Mode, rep.Cut.TotalCut, rep.Cut.StoresAffected)
	e.record(ctx, actorID, rep)
	return rep, nil
}

func (e *Engine) cut(ctx context.Context, tx store.Tx, separationID int64, req CutRequest) (*ChangeReport, error) {
	code := strings.TrimSpace(req.MaterialCode)
	if code == "" {
		return nil, fmt.Errorf("%w: material code is required", apperr.ErrInputMalformed)
	}

	if _, err := lockActive(ctx, tx, separationID); err != nil {
		return nil, err
	}
	item, err := tx.Material(ctx, separationID, code)
	if err != nil {
		return nil, err
	}
	current, err := tx.CellsForMaterial(ctx, item.ID)
	if err != nil {
		return nil, err
	}

	rep := e.newReport(ModeCut)
	rep.SeparationID = separationID
	rep.Processed = 1

	amounts, err := e.cutAmounts(rep, code, req, current)
	if err != nil {
		return nil, err
	}

	summary := &CutSummary{MaterialCode: code, Description: item.Description, Mode: req.Mode}
	b := e.newBatcher(tx)

	stores := make([]string, 0, len(amounts))
	for s := range amounts {
		stores = append(stores, s)
	}
	sort.Strings(stores)

	for _, s := range stores {
		before := current[s]
		amount := amounts[s]
		after := before - amount

		summary.Stores = append(summary.Stores, StoreCut{Store: s, Before: before, After: after, Cut: amount})
		if amount == 0 {
			continue
		}
		summary.TotalCut += amount
		summary.StoresAffected++
		rep.Cells = append(rep.Cells, CellChange{Material: code, Store: s, Before: before, After: after, Kind: ChangeCut})
		if err := b.add(ctx, store.CellWrite{ItemID: item.ID, StoreCode: s, Quantity: after}); err != nil {
			return nil, err
		}
	}

	rep.Cut = summary
	if summary.TotalCut > 0 {
		rep.Updated = 1
		rep.UpdatedMaterials = []string{code}
	}

	if err := e.finish(ctx, tx, separationID, b, rep); err != nil {
		return nil, err
	}
	return rep, nil
}

// cutAmounts resolves how much to remove per store. Any invalid partial amount
// fails the whole cut.
func (e *Engine) cutAmounts(rep *ChangeReport, code string, req CutRequest, current map[string]int64) (map[string]int64, error) {
	amounts := make(map[string]int64)

	switch req.Mode {
	case CutAll:
		for s, q := range current {
			amounts[s] = q
		}

	case CutSpecificStores:
		if len(req.Stores) == 0 {
			return nil, fmt.Errorf("%w: no stores listed for cut", apperr.ErrInputMalformed)
		}
		for _, raw := range req.Stores {
			s := strings.TrimSpace(raw)
			q, ok := current[s]
			if !ok {
				e.addProblem(rep, apperr.RowProblem{
					Material: code,
					Store:    s,
					Kind:     apperr.KindNotFound,
					Reason:   "store holds no quantity for this material",
				}, true)
				continue
			}
			amounts[s] = q
		}

	case CutPartial:
		if len(req.Quantities) == 0 {
			return nil, fmt.Errorf("%w: no quantities listed for partial cut", apperr.ErrInputMalformed)
		}
		for raw, amount := range req.Quantities {
			s := strings.TrimSpace(raw)
			if amount < 0 {
				return nil, fmt.Errorf("%w: negative cut %d for store %s", apperr.ErrInputMalformed, amount, s)
			}
			if amount > current[s] {
				return nil, fmt.Errorf("store %s holds %d of %s, cannot cut %d: %w", s, current[s], code, amount, apperr.ErrExcessiveCutQuantity)
			}
			if amount > 0 {
				amounts[s] = amount
			}
		}

	default:
		return nil, fmt.Errorf("%w: unknown cut mode %q", apperr.ErrInputMalformed, req.Mode)
	}

	return amounts, nil
}
