package web

// errors.go turns handler errors into JSON responses.
//
// Every error is logged with its technical detail and the request id, then
// mapped through core.MapError so the client gets a stable code, a short
// message and a suggested action.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/JonMunkholm/sheetcheck/internal/core"
	"github.com/JonMunkholm/sheetcheck/internal/logging"
	"github.com/JonMunkholm/sheetcheck/internal/sheets"
)

var (
	// ErrNoFile is returned when a multipart upload has no file part.
	ErrNoFile = errors.New("no file provided")

	// ErrBadRequest wraps malformed request bodies.
	ErrBadRequest = errors.New("invalid request")
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrValidatorNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheets.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, sheets.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, ErrTooManyValidations):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrNoFile), errors.Is(err, ErrBadRequest),
		errors.Is(err, sheets.ErrSheetNotFound), errors.Is(err, sheets.ErrEmptyFile),
		errors.Is(err, core.ErrInvalidRule):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDependencyCycle), errors.Is(err, core.ErrUnknownDependency):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	writeJSONStatus(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON writes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent.
		logging.FromContext(context.Background()).Error("json encode error", "error", err)
	}
}
