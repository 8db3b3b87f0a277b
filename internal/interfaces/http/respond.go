package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"kesef/internal/domain/document"
	"kesef/internal/domain/extraction"
	"kesef/internal/domain/notification"
	"kesef/internal/domain/transaction"
	"kesef/internal/shared/logger"
	"kesef/internal/shared/middleware"
)

const maxBodySize = 1 << 20 // 1 MiB

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps domain errors to status codes. Anything unrecognised
// is logged and reported as a 500 without leaking the cause.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, action string) {
	switch {
	case errors.Is(err, transaction.ErrNotFound), errors.Is(err, document.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, transaction.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, extraction.ErrEmptyDocument):
		writeError(w, http.StatusUnprocessableEntity, "No transactions could be extracted")
	case errors.Is(err, notification.ErrInvalidDeviceType),
		errors.Is(err, notification.ErrInvalidToken),
		errors.Is(err, notification.ErrInvalidUser):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("action", action).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	return userID, true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// HandleHealth returns a simple health check response.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
