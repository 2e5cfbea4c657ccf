// Package quantity turns loosely typed spreadsheet cells into non-negative quantities.
//
// Text follows the pt-BR convention: "." groups thousands and "," marks the
// decimal part, so "1.234,5" reads as 1234.5. Anything unreadable, negative or
// non-finite normalizes to zero, as does anything above Max; the Parsed flag
// tells an explicit value apart from a coerced zero.
package quantity

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Max is the largest cell quantity. It is the largest integer a float64 holds
// exactly, so every accepted value round-trips and sums of two stay in int64.
const Max int64 = 1 << 53

type Result struct {
	Value  float64
	Parsed bool
}

// Quantity rounds the value half away from zero to a whole cell quantity.
// Values outside [0, Max] give 0.
func (r Result) Quantity() int64 {
	if !inRange(r.Value) {
		return 0
	}
	q := decimal.NewFromFloat(r.Value).Round(0).IntPart()
	if q > Max {
		return 0
	}
	return q
}

// Add sums two quantities, saturating at Max. The flag reports saturation.
func Add(a, b int64) (int64, bool) {
	if b > Max-a {
		return Max, true
	}
	return a + b, false
}

func inRange(f float64) bool {
	return !math.IsNaN(f) && f >= 0 && f <= float64(Max)
}

func Normalize(v any) Result {
	switch n := v.(type) {
	case nil:
		return Result{}
	case string:
		return FromText(n)
	case []byte:
		return FromText(string(n))
	case float64:
		return fromFloat(n)
	case float32:
		return fromFloat(float64(n))
	case int:
		return fromFloat(float64(n))
	case int8:
		return fromFloat(float64(n))
	case int16:
		return fromFloat(float64(n))
	case int32:
		return fromFloat(float64(n))
	case int64:
		return fromFloat(float64(n))
	case uint:
		return fromFloat(float64(n))
	case uint8:
		return fromFloat(float64(n))
	case uint16:
		return fromFloat(float64(n))
	case uint32:
		return fromFloat(float64(n))
	case uint64:
		return fromFloat(float64(n))
	case decimal.Decimal:
		return fromDecimal(n)
	default:
		return Result{}
	}
}

// FromText parses a pt-BR formatted number.
func FromText(s string) Result {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return Result{}
	}
	// Remove thousands separator (.) and replace decimal separator (,) with (.)
	clean = strings.ReplaceAll(clean, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return Result{}
	}
	return fromDecimal(d)
}

func fromDecimal(d decimal.Decimal) Result {
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(Max)) {
		return Result{}
	}
	return Result{Value: d.InexactFloat64(), Parsed: true}
}

func fromFloat(f float64) Result {
	if !inRange(f) {
		return Result{}
	}
	return Result{Value: f, Parsed: true}
}
