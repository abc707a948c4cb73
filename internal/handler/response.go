package handler

// Every error response has the same shape:
//
//	{"error": "not_found", "message": "form not found with id abc123"}
//
// writeError is the only place domain errors become status codes.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sakif/formsmith/internal/apperror"
)

// maxBodyBytes caps request bodies. Forms with a couple of hundred elements
// fit comfortably.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error body returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`

	// Set only for partial_cascade errors.
	FailedStep     string   `json:"failedStep,omitempty"`
	CommittedSteps []string `json:"committedSteps,omitempty"`
}

// CascadeWarning is attached to a successful save whose element steps did
// not all complete.
type CascadeWarning struct {
	Message        string   `json:"message"`
	FailedStep     string   `json:"failedStep"`
	CommittedSteps []string `json:"committedSteps"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status.
//
//	validation, missing filter, unsupported operation → 400
//	forbidden → 403, not found → 404, conflict → 409
//	partial cascade → 500 with the steps, store → 502
//
// A partial cascade is checked first because it also unwraps to the store
// error that interrupted it.
func writeError(w http.ResponseWriter, err error) {
	var partial *apperror.PartialCascadeError
	if errors.As(err, &partial) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:          "partial_cascade",
			Message:        partial.Error(),
			FailedStep:     string(partial.Failed),
			CommittedSteps: stepNames(partial.Committed),
		})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status, errorType = http.StatusBadRequest, "validation_error"
		case errors.Is(err, apperror.ErrMissingFilter):
			status, errorType = http.StatusBadRequest, "missing_filter"
		case errors.Is(err, apperror.ErrUnsupportedOperation):
			status, errorType = http.StatusBadRequest, "unsupported_operation"
		case errors.Is(err, apperror.ErrNotFound):
			status, errorType = http.StatusNotFound, "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status, errorType = http.StatusForbidden, "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status, errorType = http.StatusConflict, "conflict"
		case errors.Is(err, apperror.ErrStore):
			status, errorType = http.StatusBadGateway, "store_error"
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	// Never expose internal error text; it may carry SQL or file paths.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a size-limited JSON body into dst. Failures come back as
// validation errors so writeError renders them as 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return apperror.ValidationFailed("body", "invalid JSON body: "+err.Error())
	}
	return nil
}

func stepNames(steps []apperror.Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = string(s)
	}
	return out
}
