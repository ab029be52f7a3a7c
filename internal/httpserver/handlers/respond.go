package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"docflow/internal/apperr"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// respondError translates any error into the structured error body. Errors
// outside the taxonomy are masked as a generic 500 and logged with detail.
func respondError(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		lg.Errorw("request failed", "error", err)
		msg = "internal server error"
	}
	respondJSON(w, status, map[string]string{"error": msg})
}
