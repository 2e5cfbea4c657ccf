package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/lock"
	"github.com/farxc/separacao-pedidos/internal/response"
	"github.com/farxc/separacao-pedidos/internal/separation"
	"github.com/farxc/separacao-pedidos/internal/store"
)

type ChangeReportResponse = response.APIResponse[*separation.ChangeReport]
type GetSeparationResponse = response.APIResponse[*store.Separation]
type ListSeparationsResponse = response.APIResponse[[]store.Separation]

// withLock runs fn while holding the cross-replica lock for a separation.
func (app *application) withLock(ctx context.Context, id int64, fn func() error) error {
	const component = "Lock"

	release, err := app.locker.Acquire(ctx, lock.Key(id))
	if err != nil {
		return err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			app.logger.Warn(component, "Failed to release lock: separation=%d error=%v", id, err)
		}
	}()
	return fn()
}

func writeReport(w http.ResponseWriter, status int, message string, rep *separation.ChangeReport) {
	resp := &ChangeReportResponse{
		Success:  true,
		Message:  message,
		Data:     rep,
		Warnings: rep.Warnings,
	}
	if err := writeJSON(w, status, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Create separation
// @Description	Opens the caller's active separation from an uploaded sheet.
// @Tags			Separations
// @Accept			multipart/form-data
// @Produce		json
// @Param			X-User-ID	header		string					true	"Owner id"
// @Param			file		formData	file					true	"Sheet (.xlsx or .csv)"
// @Param			region		formData	string					true	"CAPITAL, INTERIOR or LITORAL"
// @Param			date		formData	string					false	"Separation date (YYYY-MM-DD), defaults to today"
// @Success		201			{object}	ChangeReportResponse	"Separation created"
// @Failure		400			{object}	response.ErrorResponse	"Malformed sheet or fields"
// @Failure		409			{object}	response.ErrorResponse	"Owner already has an active separation"
// @Failure		500			{object}	response.ErrorResponse	"Storage failure"
// @Router			/separations [post]
func (app *application) handleCreateSeparation(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}

	up, err := app.readUpload(w, r)
	if err != nil {
		app.writeAppError(w, r, "failed to read sheet", err)
		return
	}

	region, err := separation.ParseRegion(r.FormValue("region"))
	if err != nil {
		app.writeAppError(w, r, "invalid region", err)
		return
	}

	date, err := parseTime(parseDateOrDefault(r.FormValue("date"), time.Now().Format("2006-01-02")))
	if err != nil {
		app.writeAppError(w, r, "invalid date", fmt.Errorf("%w: date must be YYYY-MM-DD", apperr.ErrInputMalformed))
		return
	}

	rep, err := app.engine.Create(r.Context(), actor, separation.CreateInput{
		OwnerID:  actor,
		Region:   region,
		Date:     date,
		FileName: up.fileName,
		Grid:     up.grid,
	})
	if err != nil {
		app.writeAppError(w, r, "failed to create separation", err)
		return
	}

	writeReport(w, http.StatusCreated, "Separation created", rep)
}

// @Summary		List separations
// @Description	Lists the most recent separations, optionally of one owner.
// @Tags			Separations
// @Produce		json
// @Param			owner	query		string						false	"Owner id"
// @Param			limit	query		int							false	"Limit the number of results"	default(20)
// @Success		200		{object}	ListSeparationsResponse		"Successfully retrieved separations"
// @Failure		500		{object}	response.ErrorResponse		"Failed to list separations"
// @Router			/separations [get]
func (app *application) handleListSeparations(w http.ResponseWriter, r *http.Request) {
	data, err := app.store.Separations.List(r.Context(), r.URL.Query().Get("owner"), queryLimit(r, 20))
	if err != nil {
		app.writeAppError(w, r, "failed to list separations", err)
		return
	}

	resp := &ListSeparationsResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved separations",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Get separation
// @Tags			Separations
// @Produce		json
// @Param			id	path		int						true	"Separation id"
// @Success		200	{object}	GetSeparationResponse	"Successfully retrieved separation"
// @Failure		404	{object}	response.ErrorResponse	"Separation not found"
// @Router			/separations/{id} [get]
func (app *application) handleGetSeparation(w http.ResponseWriter, r *http.Request) {
	id, err := separationID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}

	sep, err := app.store.Separations.GetByID(r.Context(), id)
	if err != nil {
		app.writeAppError(w, r, "failed to get separation", err)
		return
	}

	resp := &GetSeparationResponse{Success: true, Data: sep, Message: "Successfully retrieved separation"}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Update separation status
// @Description	Completes, cancels or reopens a separation.
// @Tags			Separations
// @Accept			json
// @Produce		json
// @Param			id		path		int											true	"Separation id"
// @Param			status	body		object{status:string}						true	"New status"
// @Success		200		{object}	response.APIResponse[map[string]string]		"Status updated"
// @Failure		400		{object}	response.ErrorResponse						"Invalid status"
// @Failure		404		{object}	response.ErrorResponse						"Separation not found"
// @Failure		409		{object}	response.ErrorResponse						"Owner already has an active separation"
// @Router			/separations/{id}/status [patch]
func (app *application) handleUpdateSeparationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := separationID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}

	var input struct {
		Status string `json:"status" validate:"required,oneof=active completed cancelled"`
	}
	if err := readJSON(w, r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := app.validate.Struct(input); err != nil {
		app.writeAppError(w, r, "invalid status", fmt.Errorf("%w: %v", apperr.ErrInputMalformed, err))
		return
	}

	err = app.withLock(r.Context(), id, func() error {
		return app.store.Separations.UpdateStatus(r.Context(), id, input.Status)
	})
	if err != nil {
		app.writeAppError(w, r, "failed to update status", err)
		return
	}

	resp := &response.APIResponse[map[string]string]{
		Success: true,
		Data:    map[string]string{"status": input.Status},
		Message: "Separation status updated",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

// @Summary		Get the caller's active separation
// @Tags			Separations
// @Produce		json
// @Param			X-User-ID	header		string					true	"Owner id"
// @Success		200			{object}	GetSeparationResponse	"Successfully retrieved active separation"
// @Failure		404			{object}	response.ErrorResponse	"No active separation"
// @Router			/separations/active [get]
func (app *application) handleGetActiveSeparation(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}

	sep, err := app.store.Separations.GetActive(r.Context(), actor)
	if err != nil {
		app.writeAppError(w, r, "failed to get active separation", err)
		return
	}

	resp := &GetSeparationResponse{Success: true, Data: sep, Message: "Successfully retrieved active separation"}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}

type ListMaterialsResponse = response.APIResponse[[]store.MaterialItem]

// @Summary		List separation materials
// @Tags			Separations
// @Produce		json
// @Param			id	path		int						true	"Separation id"
// @Success		200	{object}	ListMaterialsResponse	"Successfully retrieved materials"
// @Failure		404	{object}	response.ErrorResponse	"Separation not found"
// @Router			/separations/{id}/materials [get]
func (app *application) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	id, err := separationID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}
	if _, err := app.store.Separations.GetByID(r.Context(), id); err != nil {
		app.writeAppError(w, r, "failed to list materials", err)
		return
	}

	data, err := app.store.Matrix.ListMaterials(r.Context(), id)
	if err != nil {
		app.writeAppError(w, r, "failed to list materials", err)
		return
	}

	resp := &ListMaterialsResponse{Success: true, Data: data, Message: "Successfully retrieved materials"}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
