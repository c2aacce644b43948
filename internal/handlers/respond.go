// Package handlers is the HTTP edge. Handlers decode, call a service,
// and encode; every business rule lives below this layer.
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/ShailySarker/digital-wallet-backend/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps the error taxonomy onto HTTP statuses. Internal
// errors are logged with their cause but surfaced as a generic message.
func writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status == http.StatusInternalServerError {
		log.Printf("ERROR: %v", err)
	}
	writeJSON(w, status, map[string]string{
		"error":   kind.String(),
		"message": apperr.Message(err),
	})
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidState, apperr.KindInvalidAmount:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// pageParams reads page and limit query values; zero means defaults.
func pageParams(r *http.Request) (page, limit int) {
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return page, limit
}
