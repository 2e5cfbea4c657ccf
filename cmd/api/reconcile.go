package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/separation"
	"github.com/go-chi/chi/v5"
)

// @Summary		Merge a sheet into a separation
// @Description	Reinforcement adds to existing quantities; redistribution overwrites them.
// @Tags			Reconciliation
// @Accept			multipart/form-data
// @Produce		json
// @Param			X-User-ID	header		string					true	"Actor id"
// @Param			id			path		int						true	"Separation id"
// @Param			file		formData	file					true	"Sheet (.xlsx or .csv)"
// @Success		200			{object}	ChangeReportResponse	"Sheet applied"
// @Failure		400			{object}	response.ErrorResponse	"Malformed sheet"
// @Failure		404			{object}	response.ErrorResponse	"Separation not found"
// @Failure		500			{object}	response.ErrorResponse	"Storage failure"
// @Router			/separations/{id}/reinforcement [post]
// @Router			/separations/{id}/redistribution [post]
func (app *application) handleReconcile(mode separation.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			app.writeAppError(w, r, "invalid request", err)
			return
		}
		id, err := separationID(r)
		if err != nil {
			app.writeAppError(w, r, "invalid request", err)
			return
		}

		up, err := app.readUpload(w, r)
		if err != nil {
			app.writeAppError(w, r, "failed to read sheet", err)
			return
		}

		var rep *separation.ChangeReport
		err = app.withLock(r.Context(), id, func() error {
			rep, err = app.engine.Reconcile(r.Context(), actor, id, mode, up.grid)
			return err
		})
		if err != nil {
			app.writeAppError(w, r, fmt.Sprintf("failed to apply %s", mode), err)
			return
		}

		writeReport(w, http.StatusOK, fmt.Sprintf("Sheet applied as %s", mode), rep)
	}
}

// @Summary		Override melancia quantities
// @Description	Sets store quantities of one melancia material from a (store, quantity) list. Unknown stores are reported, never inserted.
// @Tags			Reconciliation
// @Accept			multipart/form-data
// @Produce		json
// @Param			X-User-ID	header		string					true	"Actor id"
// @Param			id			path		int						true	"Separation id"
// @Param			code		path		string					true	"Material code"
// @Param			file		formData	file					true	"List (.xlsx or .csv)"
// @Success		200			{object}	ChangeReportResponse	"Override applied"
// @Failure		400			{object}	response.ErrorResponse	"Not a melancia material or malformed list"
// @Failure		404			{object}	response.ErrorResponse	"Separation or material not found"
// @Router			/separations/{id}/melancia/{code} [post]
func (app *application) handleOverrideMelancia(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}
	id, err := separationID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	if !app.engine.IsMelancia(code) {
		app.writeAppError(w, r, "failed to override melancia", fmt.Errorf("%w: material %s is not a melancia material", apperr.ErrInputMalformed, code))
		return
	}

	up, err := app.readUpload(w, r)
	if err != nil {
		app.writeAppError(w, r, "failed to read sheet", err)
		return
	}

	var rep *separation.ChangeReport
	err = app.withLock(r.Context(), id, func() error {
		rep, err = app.engine.OverrideMelancia(r.Context(), actor, id, code, up.grid)
		return err
	})
	if err != nil {
		app.writeAppError(w, r, "failed to override melancia", err)
		return
	}

	writeReport(w, http.StatusOK, "Melancia override applied", rep)
}

func (app *application) readCutRequest(w http.ResponseWriter, r *http.Request) (*separation.CutRequest, error) {
	var req separation.CutRequest
	if err := readJSON(w, r, &req); err != nil {
		return nil, fmt.Errorf("%w: invalid request payload: %v", apperr.ErrInputMalformed, err)
	}
	if err := app.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInputMalformed, err)
	}
	return &req, nil
}

// @Summary		Preview a cut
// @Description	Computes the cut summary exactly as a commit would, without writing.
// @Tags			Cuts
// @Accept			json
// @Produce		json
// @Param			id		path		int						true	"Separation id"
// @Param			cut		body		separation.CutRequest	true	"Cut request"
// @Success		200		{object}	ChangeReportResponse	"Cut preview"
// @Failure		400		{object}	response.ErrorResponse	"Invalid cut request"
// @Failure		422		{object}	response.ErrorResponse	"Cut exceeds current quantity"
// @Router			/separations/{id}/cuts/preview [post]
func (app *application) handlePreviewCut(w http.ResponseWriter, r *http.Request) {
	id, err := separationID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}
	req, err := app.readCutRequest(w, r)
	if err != nil {
		app.writeAppError(w, r, "invalid cut request", err)
		return
	}

	rep, err := app.engine.PreviewCut(r.Context(), id, *req)
	if err != nil {
		app.writeAppError(w, r, "failed to preview cut", err)
		return
	}

	writeReport(w, http.StatusOK, "Cut preview", rep)
}

// @Summary		Commit a cut
// @Description	Reduces one material's allocation. Cuts cannot be undone.
// @Tags			Cuts
// @Accept			json
// @Produce		json
// @Param			X-User-ID	header		string					true	"Actor id"
// @Param			id			path		int						true	"Separation id"
// @Param			cut			body		separation.CutRequest	true	"Cut request"
// @Success		200			{object}	ChangeReportResponse	"Cut committed"
// @Failure		400			{object}	response.ErrorResponse	"Invalid cut request"
// @Failure		404			{object}	response.ErrorResponse	"Separation or material not found"
// @Failure		422			{object}	response.ErrorResponse	"Cut exceeds current quantity"
// @Router			/separations/{id}/cuts [post]
func (app *application) handleCut(w http.ResponseWriter, r *http.Request) {
	actor, err := actorID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}
	id, err := separationID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}
	req, err := app.readCutRequest(w, r)
	if err != nil {
		app.writeAppError(w, r, "invalid cut request", err)
		return
	}

	var rep *separation.ChangeReport
	err = app.withLock(r.Context(), id, func() error {
		rep, err = app.engine.Cut(r.Context(), actor, id, *req)
		return err
	})
	if err != nil {
		app.writeAppError(w, r, "failed to cut", err)
		return
	}

	writeReport(w, http.StatusOK, "Cut committed", rep)
}
