package handler

// RESPONSE HELPERS:
// Every response uses one envelope:
//
//	success: {"ok": true, ...payload}
//	failure: {"ok": false, "error": "short message"}
//
// Handlers never write raw error text. Typed errors (apperror) carry a
// message meant for the client; anything else is logged and replaced with
// the operation's fixed failure message.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/journeyhub/internal/apperror"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// envelope is a success payload; writeOK adds "ok": true.
type envelope map[string]any

// errorBody is the failure envelope.
type errorBody struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; after that they are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// The status line is already out; all we can do is log.
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func writeOK(w http.ResponseWriter, status int, payload envelope) {
	if payload == nil {
		payload = envelope{}
	}
	payload["ok"] = true
	writeJSON(w, status, payload)
}

// statusFor maps an error to a status and a client-safe message. Untyped
// errors become 500 with fallback.
func statusFor(err error, fallback string) (int, string) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, fallback
	}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, appErr.Message
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, appErr.Message
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, appErr.Message
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, appErr.Message
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, appErr.Message
	default:
		return http.StatusInternalServerError, fallback
	}
}

// writeError sends the failure envelope for err. 5xx errors are logged with
// the underlying cause; the client only sees fallback.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	status, message := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback,
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", chimw.GetReqID(r.Context())),
		)
	}
	writeJSON(w, status, errorBody{OK: false, Error: message})
}

// writeFail sends a failure envelope with an explicit status.
func writeFail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{OK: false, Error: message})
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst at its
// zero value so the service reports the missing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("body", "Request body too large")
		}
		return apperror.ValidationFailed("body", "Invalid JSON body")
	}
	return nil
}

// NotFound is the router's fallback for unknown paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeFail(w, http.StatusNotFound, "Not found")
}

// MethodNotAllowed is the router's fallback for known paths with the wrong
// method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeFail(w, http.StatusMethodNotAllowed, "Method not allowed")
}
