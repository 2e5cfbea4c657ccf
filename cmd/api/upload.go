package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/sheet"
)

type upload struct {
	fileName string
	grid     sheet.Grid
}

// readUpload decodes the multipart "file" field into a grid. .xlsx goes
// through excelize, .csv through gota; the "delimiter" and "encoding" form
// fields tune the CSV reader.
func (app *application) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	maxBytes := int64(app.config.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart form: %v", apperr.ErrInputMalformed, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: missing file field: %v", apperr.ErrInputMalformed, err)
	}
	defer file.Close()

	grid, err := sheet.Read(header.Filename, file, sheet.CSVOptions{
		Delimiter:   sheet.DelimiterFrom(r.FormValue("delimiter")),
		Windows1252: strings.EqualFold(r.FormValue("encoding"), "windows-1252"),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInputMalformed, err)
	}

	return &upload{fileName: header.Filename, grid: grid}, nil
}
