package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/farxc/separacao-pedidos/internal/apperr"
	"github.com/go-chi/chi/v5"
)

const actorHeader = "X-User-ID"

func parseDateOrDefault(dateStr, defaultStr string) string {
	if dateStr == "" {
		return defaultStr
	}
	return dateStr
}

func parseTime(dateStr string) (time.Time, error) {
	return time.Parse("2006-01-02", dateStr)
}

func separationID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid separation id %q", apperr.ErrInputMalformed, chi.URLParam(r, "id"))
	}
	return id, nil
}

func actorID(r *http.Request) (string, error) {
	actor := strings.TrimSpace(r.Header.Get(actorHeader))
	if actor == "" {
		return "", fmt.Errorf("%w: missing %s header", apperr.ErrInputMalformed, actorHeader)
	}
	return actor, nil
}

func queryLimit(r *http.Request, fallback int) int {
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		return l
	}
	return fallback
}
