package separation

import "github.com/farxc/separacao-pedidos/internal/quantity"

// merge returns the new quantity of one cell and how it changed.
//
// inSheet is false when the store is known for the material but the sheet does
// not declare it. For reinforcement a declared zero leaves the cell alone while
// an omitted store is the implicit cut. Reinforcement sums saturate at
// quantity.Max.
func merge(mode Mode, old, sheet int64, inSheet bool) (int64, ChangeKind) {
	if !inSheet {
		sheet = 0
	}

	switch mode {
	case ModeCreate:
		if sheet > 0 {
			return sheet, ChangeAdded
		}
		return 0, ChangeNone

	case ModeReinforcement:
		switch {
		case !inSheet && old > 0:
			return 0, ChangeRedistributed
		case sheet == 0:
			return old, ChangeNone
		case old == 0:
			return sheet, ChangeAdded
		default:
			sum, _ := quantity.Add(old, sheet)
			return sum, ChangeIncreased
		}

	case ModeRedistribution:
		if old != sheet {
			return sheet, ChangeRedistributed
		}
		return sheet, ChangeNone

	case ModeMelanciaOverride:
		if old != sheet {
			return sheet, ChangeOverridden
		}
		return sheet, ChangeNone
	}

	return old, ChangeNone
}
