package main

import (
	"context"
	"net/http"
	"time"
)

// @Summary		Health check
// @Description	returns the status of the service and whether the database answers
// @Tags			Health
// @Produce		json
// @Success		200	{object}	map[string]string
// @Failure		503	{object}	map[string]string
// @Router			/health [get]
func (app *application) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	const component = "Health"

	data := map[string]string{
		"status":   "available",
		"version":  "0.1.0",
		"database": "skipped",
	}
	status := http.StatusOK

	if app.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := app.db.PingContext(ctx); err != nil {
			app.logger.Warn(component, "Database ping failed: error=%v", err)
			data["status"] = "degraded"
			data["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			data["database"] = "ok"
		}
	}

	if err := writeJSON(w, status, data); err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
