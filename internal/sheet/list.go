package sheet

import (
	"fmt"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/quantity"
)

// CodeQuantity is one line of a two-column list: a store code for melancia
// overrides, a material code for stock snapshots.
type CodeQuantity struct {
	Code     string `json:"code"`
	Quantity int64  `json:"quantity"`
	Row      int    `json:"row"`
}

// ParseCodeQuantities reads a (code, quantity) list. A first row whose quantity
// cell holds unreadable text is taken as a header.
func ParseCodeQuantities(g Grid) ([]CodeQuantity, []apperr.RowProblem, error) {
	var (
		out      []CodeQuantity
		problems []apperr.RowProblem
	)
	seen := make(map[string]int)

	for r := range g {
		code := Text(g.cell(r, 0))
		raw := g.cell(r, 1)
		q := quantity.Normalize(raw)

		if r == 0 && !q.Parsed && !isEmpty(raw) {
			continue
		}
		if code == "" {
			continue
		}
		row := r + 1
		if first, dup := seen[code]; dup {
			problems = append(problems, apperr.RowProblem{
				Row:    row,
				Kind:   apperr.KindInputMalformed,
				Reason: fmt.Sprintf("duplicate code %s, first seen on row %d", code, first),
			})
			continue
		}
		seen[code] = row
		out = append(out, CodeQuantity{Code: code, Quantity: q.Quantity(), Row: row})
	}

	if len(out) == 0 {
		return nil, problems, apperr.ErrEmptySheet
	}
	return out, problems, nil
}
