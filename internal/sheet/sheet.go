// Package sheet reads decoded spreadsheet grids into the fixed material by
// store shape consumed by the separation engine.
//
// Layout: row 0 holds store codes from column 2 onward, columns 0 and 1 hold
// the material code and description, every other cell is a quantity.
package sheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/quantity"
)

const (
	codeCol        = 0
	descriptionCol = 1
	firstStoreCol  = 2
)

// Grid is a decoded rectangular sheet. Rows may be ragged; missing cells read as empty.
type Grid [][]any

type Material struct {
	Code        string
	Description string
	Row         int
}

// Triple is one (material, store, quantity) value. Material indexes ParsedSheet.Materials.
type Triple struct {
	Material int
	Store    string
	Quantity int64
}

type ParsedSheet struct {
	Materials []Material
	Stores    []string
	Triples   []Triple

	// Problems lists rows and columns that were skipped.
	Problems []apperr.RowProblem
	// CoercedCells counts non-empty quantity cells that could not be read and became 0.
	CoercedCells int
}

// Values returns the sheet quantity of material i for every declared store.
func (p *ParsedSheet) Values(i int) map[string]int64 {
	out := make(map[string]int64, len(p.Stores))
	n := len(p.Stores)
	if n == 0 || (i+1)*n > len(p.Triples) {
		return out
	}
	for _, t := range p.Triples[i*n : (i+1)*n] {
		out[t.Store] = t.Quantity
	}
	return out
}

func (g Grid) cell(row, col int) any {
	if row < 0 || row >= len(g) || col < 0 || col >= len(g[row]) {
		return nil
	}
	return g[row][col]
}

// Text renders a cell as trimmed text. Numbers keep their shortest exact form.
func Text(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(c), 'f', -1, 32)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	default:
		return strings.TrimSpace(fmt.Sprint(c))
	}
}

func isEmpty(v any) bool {
	return Text(v) == ""
}

// Parse reads a material by store grid.
func Parse(g Grid) (*ParsedSheet, error) {
	lastRow := 0
	for r := len(g) - 1; r >= 1; r-- {
		if !isEmpty(g.cell(r, codeCol)) {
			lastRow = r
			break
		}
	}
	if lastRow == 0 {
		return nil, apperr.ErrEmptySheet
	}

	parsed := &ParsedSheet{}
	storeCols := parsed.readHeader(g)
	if len(storeCols) == 0 {
		return nil, apperr.ErrNoStoresDeclared
	}

	seen := make(map[string]int)
	for r := 1; r <= lastRow; r++ {
		code := Text(g.cell(r, codeCol))
		desc := Text(g.cell(r, descriptionCol))
		row := r + 1

		switch {
		case code == "" && desc == "":
			continue
		case code == "":
			parsed.problem(row, "", "", "missing material code")
			continue
		case desc == "":
			parsed.problem(row, code, "", "missing material description")
			continue
		}

		if first, dup := seen[code]; dup {
			parsed.problem(row, code, "", fmt.Sprintf("duplicate material code, first seen on row %d", first))
			continue
		}
		seen[code] = row

		idx := len(parsed.Materials)
		parsed.Materials = append(parsed.Materials, Material{Code: code, Description: desc, Row: row})

		for i, col := range storeCols {
			raw := g.cell(r, col)
			q := quantity.Normalize(raw)
			if !q.Parsed && !isEmpty(raw) {
				parsed.CoercedCells++
			}
			parsed.Triples = append(parsed.Triples, Triple{Material: idx, Store: parsed.Stores[i], Quantity: q.Quantity()})
		}
	}

	if len(parsed.Materials) == 0 {
		return nil, fmt.Errorf("%w: %d rows rejected", apperr.ErrEmptySheet, len(parsed.Problems))
	}
	return parsed, nil
}

// readHeader fills Stores and returns the grid column of each.
func (p *ParsedSheet) readHeader(g Grid) []int {
	if len(g) == 0 {
		return nil
	}
	header := g[0]

	last := -1
	for c := len(header) - 1; c >= firstStoreCol; c-- {
		if !isEmpty(header[c]) {
			last = c
			break
		}
	}

	var cols []int
	seen := make(map[string]bool)
	for c := firstStoreCol; c <= last; c++ {
		code := Text(header[c])
		if code == "" {
			continue
		}
		if seen[code] {
			p.Problems = append(p.Problems, apperr.RowProblem{
				Row:    1,
				Store:  code,
				Kind:   apperr.KindInputMalformed,
				Reason: fmt.Sprintf("duplicate store column %d ignored", c+1),
			})
			continue
		}
		seen[code] = true
		p.Stores = append(p.Stores, code)
		cols = append(cols, c)
	}
	return cols
}

func (p *ParsedSheet) problem(row int, material, store, reason string) {
	p.Problems = append(p.Problems, apperr.RowProblem{
		Row:      row,
		Material: material,
		Store:    store,
		Kind:     apperr.KindInputMalformed,
		Reason:   reason,
	})
}
