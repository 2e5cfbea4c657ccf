// Package stock compares the counts captured before invoicing with the counts
// captured after it.
package stock

import "sort"

const (
	StatusOK         = "OK"
	StatusDivergente = "Divergente"
)

type Line struct {
	MaterialCode string `json:"material_code"`
	Reference    int64  `json:"reference"`
	Current      int64  `json:"current"`
	Delta        int64  `json:"delta"`
	Status       string `json:"status"`
}

type Summary struct {
	Materials  int   `json:"materials"`
	Divergent  int   `json:"divergent"`
	OK         int   `json:"ok"`
	TotalDelta int64 `json:"total_delta"`
}

type Comparison struct {
	Lines   []Line  `json:"lines"`
	Summary Summary `json:"summary"`
}

// Classify flags an unchanged, positive reference as Divergente: stock that did
// not move after invoicing is the anomaly this report looks for.
func Classify(reference, current int64) string {
	if reference == current && reference > 0 {
		return StatusDivergente
	}
	return StatusOK
}

// Compare diffs every material that has a reference count. Materials without
// one are left out; a missing current count is read as 0.
func Compare(reference, current map[string]int64) *Comparison {
	codes := make([]string, 0, len(reference))
	for code := range reference {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	c := &Comparison{Lines: make([]Line, 0, len(codes))}
	for _, code := range codes {
		ref, cur := reference[code], current[code]
		line := Line{
			MaterialCode: code,
			Reference:    ref,
			Current:      cur,
			Delta:        ref - cur,
			Status:       Classify(ref, cur),
		}
		c.Lines = append(c.Lines, line)

		c.Summary.Materials++
		c.Summary.TotalDelta += line.Delta
		if line.Status == StatusDivergente {
			c.Summary.Divergent++
		} else {
			c.Summary.OK++
		}
	}
	return c
}
