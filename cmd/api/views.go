package main

import (
	"net/http"

	"github.com/farxc/separacao-pedidos/internal/response"
	"github.com/farxc/separacao-pedidos/internal/store"
	"github.com/farxc/separacao-pedidos/internal/view"
)

type ZoneViewResponse = response.APIResponse[*view.ZoneView]
type StoreViewResponse = response.APIResponse[*view.StoreView]

// loadView checks the separation exists, then reads its cells and the store
// master data concurrently.
func (app *application) loadView(r *http.Request) ([]store.Cell, []store.StoreInfo, view.Filter, error) {
	id, err := separationID(r)
	if err != nil {
		return nil, nil, view.Filter{}, err
	}
	filter, err := view.ParseFilter(r.URL.Query().Get("type"), r.URL.Query().Get("circuit"))
	if err != nil {
		return nil, nil, view.Filter{}, err
	}
	if _, err := app.store.Separations.GetByID(r.Context(), id); err != nil {
		return nil, nil, view.Filter{}, err
	}

	cells, stores, err := view.Load(r.Context(), app.store.Matrix, app.store.Stores, id)
	if err != nil {
		return nil, nil, view.Filter{}, err
	}
	return cells, stores, filter, nil
}

// @Summary		Pre-separation view
// @Description	Material quantities summed per zone. Zero rows and columns are omitted.
// @Tags			Views
// @Produce		json
// @Param			id		path		int					true	"Separation id"
// @Param			type	query		string				false	"Comma-separated type tags (SECO,FRIO,...)"
// @Param			circuit	query		string				false	"SECO or FRIO; defaults to FRIO only for a FRIO-only filter"
// @Success		200		{object}	ZoneViewResponse	"Successfully built view"
// @Failure		404		{object}	response.ErrorResponse	"Separation not found"
// @Router			/separations/{id}/views/pre-separation [get]
func (app *application) handleZoneView(w http.ResponseWriter, r *http.Request) {
	cells, stores, filter, err := app.loadView(r)
	if err != nil {
		app.writeAppError(w, r, "failed to build view", err)
		return
	}

	resp := &ZoneViewResponse{
		Success: true,
		Data:    view.BuildZoneView(cells, stores, filter),
		Message: "Successfully built pre-separation view",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Separation view
// @Description	Material quantities per store grouped by zone and subzone, with zone totals.
// @Tags			Views
// @Produce		json
// @Param			id		path		int					true	"Separation id"
// @Param			type	query		string				false	"Comma-separated type tags"
// @Param			circuit	query		string				false	"SECO or FRIO"
// @Success		200		{object}	StoreViewResponse	"Successfully built view"
// @Failure		404		{object}	response.ErrorResponse	"Separation not found"
// @Router			/separations/{id}/views/separation [get]
func (app *application) handleStoreView(w http.ResponseWriter, r *http.Request) {
	cells, stores, filter, err := app.loadView(r)
	if err != nil {
		app.writeAppError(w, r, "failed to build view", err)
		return
	}

	resp := &StoreViewResponse{
		Success: true,
		Data:    view.BuildStoreView(cells, stores, filter),
		Message: "Successfully built separation view",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
