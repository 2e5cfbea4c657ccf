package sheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

var ErrUnsupportedFormat = errors.New("unsupported file type")

// Read decodes r by the extension of name: .xlsx and .xlsm through excelize,
// .csv and .txt through ReadCSV with opts.
func Read(name string, r io.Reader, opts CSVOptions) (Grid, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".csv", ".txt":
		return ReadCSV(r, opts)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedFormat, ext)
	}
}

// DelimiterFrom returns the first rune of s, or 0 (the default) when s is empty.
func DelimiterFrom(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
