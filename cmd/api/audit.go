package main

import (
	"net/http"

	"github.com/farxc/separacao-pedidos/internal/response"
	"github.com/farxc/separacao-pedidos/internal/store"
)

type GetAuditResponse = response.APIResponse[[]store.AuditEntry]

// @Summary		Get audit log
// @Description	Get the latest operations recorded for a separation.
// @Tags			Audit
// @Produce		json
// @Param			id		path		int					true	"Separation id"
// @Param			limit	query		int					false	"Limit the number of results"	default(10)
// @Success		200		{object}	GetAuditResponse	"Successfully retrieved audit entries"
// @Failure		500		{object}	response.ErrorResponse	"Failed to get audit log"
// @Router			/separations/{id}/audit [get]
func (app *application) handleGetAudit(w http.ResponseWriter, r *http.Request) {
	id, err := separationID(r)
	if err != nil {
		app.writeAppError(w, r, "invalid request", err)
		return
	}

	data, err := app.store.Audit.Latest(r.Context(), id, queryLimit(r, 10))
	if err != nil {
		app.writeAppError(w, r, "failed to get audit log", err)
		return
	}

	resp := &GetAuditResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved audit entries",
	}
	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
