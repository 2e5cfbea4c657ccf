package main

import (
	"fmt"
	"net/http"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/response"
	"github.com/farxc/separacao-pedidos/internal/sheet"
	"github.com/farxc/separacao-pedidos/internal/stock"
	"github.com/go-chi/chi/v5"
)

type StockComparisonResponse = response.APIResponse[*stock.Comparison]

type snapshotResult struct {
	Kind     string              `json:"kind"`
	Lines    int                 `json:"lines"`
	Problems []apperr.RowProblem `json:"problems,omitempty"`
}

type StockUploadResponse = response.APIResponse[*snapshotResult]

// @Summary		Upload stock snapshot
// @Description	Replaces the reference (before invoicing) or current (after invoicing) counts from a (material code, quantity) list.
// @Tags			Stock
// @Accept			multipart/form-data
// @Produce		json
// @Param			id		path		int						true	"Separation id"
// @Param			kind	path		string					true	"reference or current"
// @Param			file	formData	file					true	"List (.xlsx or .csv)"
// @Success		200		{object}	StockUploadResponse		"Snapshot stored"
// @Failure		400		{object}	response.ErrorResponse	"Malformed list or kind"
// @Failure		404		{object}	response.ErrorResponse	"Separation not found"
// @Router			/separations/{id}/stock/{kind} [post]
func (app *application) handleUploadStock(w http.ResponseWriter, r *http.Request) {
	id, err := separationID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}
	kind, err := stock.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}
	if _, err := app.store.Separations.GetByID(r.Context(), id); err != nil {
		app.writeAppError(w, r, "failed to upload stock", err)
		return
	}

	up, err := app.readUpload(w, r)
	if err != nil {
		app.writeAppError(w, r, "failed to read sheet", err)
		return
	}
	lines, problems, err := sheet.ParseCodeQuantities(up.grid)
	if err != nil {
		app.writeAppError(w, r, "failed to read stock list", err)
		return
	}
	if len(lines) == 0 {
		app.writeAppError(w, r, "failed to read stock list", fmt.Errorf("%w: no material lines", apperr.ErrInputMalformed))
		return
	}

	if err := app.store.Stock.SaveSnapshot(r.Context(), id, kind, stock.Counts(id, kind, lines)); err != nil {
		app.writeAppError(w, r, "failed to save stock snapshot", err)
		return
	}

	resp := &StockUploadResponse{
		Success: true,
		Data:    &snapshotResult{Kind: kind, Lines: len(lines), Problems: problems},
		Message: "Stock snapshot stored",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Compare stock snapshots
// @Description	Diffs reference against current per material. Equal positive counts are flagged Divergente.
// @Tags			Stock
// @Produce		json
// @Param			id	path		int							true	"Separation id"
// @Success		200	{object}	StockComparisonResponse		"Comparison built"
// @Failure		404	{object}	response.ErrorResponse		"Separation not found"
// @Router			/separations/{id}/stock/comparison [get]
func (app *application) handleStockComparison(w http.ResponseWriter, r *http.Request) {
	id, err := separationID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}
	if _, err := app.store.Separations.GetByID(r.Context(), id); err != nil {
		app.writeAppError(w, r, "failed to compare stock", err)
		return
	}

	cmp, err := stock.Load(r.Context(), app.store.Stock, id)
	if err != nil {
		app.writeAppError(w, r, "failed to compare stock", err)
		return
	}

	resp := &StockComparisonResponse{Success: true, Data: cmp, Message: "Successfully compared stock"}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
