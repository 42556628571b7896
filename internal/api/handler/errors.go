package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/batchpulse/internal/api/response"
	"github.com/kiranshivaraju/batchpulse/internal/apikey"
	"github.com/kiranshivaraju/batchpulse/internal/ingest"
	"github.com/kiranshivaraju/batchpulse/internal/predict"
	"github.com/kiranshivaraju/batchpulse/internal/store"
	"github.com/kiranshivaraju/batchpulse/internal/upload"
)

// writeError maps service errors onto the error envelope. Anything not
// recognised is logged and reported as a 500 without leaking the cause.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *upload.ValidationError
	var terr *store.TransitionError
	switch {
	case errors.As(err, &verr):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", verr.Message,
			map[string][]string{verr.Field: {verr.Message}})
	case errors.Is(err, predict.ErrInvalidPredictionType), errors.Is(err, predict.ErrInvalidDaysAhead),
		errors.Is(err, apikey.ErrInvalidScope):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, ingest.ErrCustomerNotFound):
		response.Error(w, http.StatusNotFound, "CUSTOMER_NOT_FOUND", "Customer not found", nil)
	case errors.Is(err, predict.ErrNoPredictionRun):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "No prediction run found for customer", nil)
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.As(err, &terr):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", terr.Error(),
			map[string]string{"from": string(terr.From), "to": string(terr.To)})
	case errors.Is(err, store.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, store.ErrDuplicateKey):
		response.Error(w, http.StatusConflict, "CONFLICT", "Resource already exists", nil)
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
	}
}

// NewMethodNotAllowedHandler rejects writes to derived records.
func NewMethodNotAllowedHandler(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", message, nil)
	}
}
