package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/repositories"
)

// APIError is the single error kind handlers return. The status is echoed in both the
// HTTP response and the error envelope.
type APIError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func newAPIError(status int, message string, errs ...string) *APIError {
	return &APIError{Status: status, Message: message, Errors: errs}
}

func badRequest(message string, errs ...string) *APIError {
	return newAPIError(http.StatusBadRequest, message, errs...)
}

func unauthorized(message string) *APIError {
	return newAPIError(http.StatusUnauthorized, message)
}

func forbidden(message string) *APIError {
	return newAPIError(http.StatusForbidden, message)
}

func notFound(message string) *APIError {
	return newAPIError(http.StatusNotFound, message)
}

func conflict(message string) *APIError {
	return newAPIError(http.StatusConflict, message)
}

// lookupError maps a repository lookup failure onto a 404 when the record is missing
// and passes anything else through unchanged.
func lookupError(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound(message)
	}
	return err
}

type successEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
	Data       any      `json:"data"`
}

// handlerFunc is an HTTP handler that reports failures by returning them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts fn to http.Handler, translating returned errors into the error envelope.
// Errors other than *APIError are logged and surface as a generic 500.
func handle(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(r.Context(), w, err)
		}
	})
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
	case errors.Is(err, repositories.ErrNotFound):
		apiErr = notFound("resource not found")
	case errors.Is(err, repositories.ErrConflict):
		apiErr = conflict("resource already exists")
	default:
		logging.FromContext(ctx).Error("unhandled error", "error", err)
		apiErr = newAPIError(http.StatusInternalServerError, "internal server error")
	}

	errs := apiErr.Errors
	if errs == nil {
		errs = []string{}
	}
	respondJSON(ctx, w, apiErr.Status, errorEnvelope{
		StatusCode: apiErr.Status,
		Success:    false,
		Message:    apiErr.Message,
		Errors:     errs,
	})
}

// respond writes data inside the success envelope and always returns nil so handlers
// can end with `return respond(...)`.
func respond(w http.ResponseWriter, r *http.Request, status int, data any, message string) error {
	respondJSON(r.Context(), w, status, successEnvelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
	return nil
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}
