package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/farxc/separacao-pedidos/internal/lock"
	"github.com/farxc/separacao-pedidos/internal/response"
)

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")

	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, message string) error {
	return writeJSON(w, status, &response.ErrorResponse{Error: message})
}

func readJSON(w http.ResponseWriter, r *http.Request, data any) error {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	return dec.Decode(data)
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindInputMalformed:         http.StatusBadRequest,
	apperr.KindMaterialNotInRegistry:  http.StatusBadRequest,
	apperr.KindNotFound:               http.StatusNotFound,
	apperr.KindActiveSeparationExists: http.StatusConflict,
	apperr.KindExcessiveCutQuantity:   http.StatusUnprocessableEntity,
	apperr.KindStorageFailure:         http.StatusInternalServerError,
}

// writeAppError maps an engine or store error to its status and kind.
func (app *application) writeAppError(w http.ResponseWriter, r *http.Request, message string, err error) {
	const component = "HTTP"

	if errors.Is(err, lock.ErrBusy) {
		writeJSON(w, http.StatusConflict, &response.ErrorResponse{Error: message + ": " + err.Error(), Kind: "Busy"})
		return
	}

	kind := apperr.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		app.logger.Error(component, "Request failed: method=%s path=%s error=%v", r.Method, r.URL.Path, err)
	}

	writeJSON(w, status, &response.ErrorResponse{Error: message + ": " + err.Error(), Kind: string(kind)})
}
