package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/soundboard/internal/apperr"
	"github.com/starford/soundboard/internal/hotkey"
	"github.com/starford/soundboard/internal/shortcut"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps a service error to an HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrNoSoundSelected),
		errors.Is(err, shortcut.ErrEmptyKey),
		errors.Is(err, apperr.ErrInvalidName):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrNoBinding):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, apperr.ErrAlreadyBound):
		return http.StatusConflict, err.Error()
	case errors.Is(err, shortcut.ErrSessionCancelled),
		errors.Is(err, hotkey.ErrCaptureSuperseded):
		return http.StatusConflict, "assignment cancelled"
	case errors.Is(err, apperr.ErrNotListening):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, apperr.ErrUnsupported):
		return http.StatusUnsupportedMediaType, "unsupported file type"
	case errors.Is(err, apperr.ErrPlayback):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError writes the mapped status for err. Server errors are logged
// with op as the message prefix.
func writeError(w http.ResponseWriter, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error(op+" failed", slog.String("error", err.Error()))
	}
	writeJSON(w, status, errorBody(msg))
}
