package sheet

import (
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"
)

type CSVOptions struct {
	// Delimiter defaults to ';', the separator of pt-BR spreadsheet exports.
	Delimiter rune
	// Windows1252 decodes the input from the legacy Excel encoding.
	Windows1252 bool
}

// ReadCSV decodes a delimited export. Every cell stays text; quantities are
// normalized later by the parser.
func ReadCSV(r io.Reader, opts CSVOptions) (Grid, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}
	if opts.Windows1252 {
		r = charmap.Windows1252.NewDecoder().Reader(r)
	}

	df := dataframe.ReadCSV(r,
		dataframe.WithDelimiter(opts.Delimiter),
		dataframe.WithLazyQuotes(true),
		dataframe.HasHeader(false),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", df.Err)
	}

	// The first record holds the generated column names.
	records := df.Records()
	if len(records) <= 1 {
		return Grid{}, nil
	}

	grid := make(Grid, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v
		}
		grid = append(grid, row)
	}
	return grid, nil
}
