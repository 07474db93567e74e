package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/chat-relay/internal/application"
)

// Protocol error messages. Authorization failures share one generic string
// so callers cannot probe for valid rooms, admin names, or live sessions,
// and decryption failures never reveal which stage rejected the payload.
const (
	msgBadRequest       = "Invalid request"
	msgInvalidLogin     = "Invalid name or PIN"
	msgNotAuthorized    = "Not authorized"
	msgRoomExists       = "Room already exists"
	msgDecryptionFailed = "Decryption failed"
	msgNoFile           = "No file uploaded"
	msgBadImageFormat   = "Invalid image format"
	msgBadImageData     = "Invalid image data"
	msgInternalError    = "Internal server error"
)

// actionResponse is the envelope for every mutating action on the endpoint.
type actionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	IsAdmin *bool  `json:"is_admin,omitempty"`
	Token   string `json:"token,omitempty"`
}

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeFailure(ctx context.Context, w http.ResponseWriter, status int, message string) {
	r.writeJSON(ctx, w, status, actionResponse{Success: false, Message: message})
}

// handleServiceError converts an application error into the protocol's
// {success:false, message} envelope with an appropriate status.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeFailure(ctx, w, http.StatusUnauthorized, msgInvalidLogin)
	case errors.Is(err, application.ErrUnauthorized),
		errors.Is(err, application.ErrSessionExpired),
		errors.Is(err, application.ErrSessionRevoked):
		r.writeFailure(ctx, w, http.StatusForbidden, msgNotAuthorized)
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeFailure(ctx, w, http.StatusConflict, msgRoomExists)
	case errors.Is(err, application.ErrDecryptionFailed),
		errors.Is(err, application.ErrEmptyMessage):
		r.writeFailure(ctx, w, http.StatusBadRequest, msgDecryptionFailed)
	case errors.Is(err, application.ErrNoFile):
		r.writeFailure(ctx, w, http.StatusBadRequest, msgNoFile)
	case errors.Is(err, application.ErrBadUploadFormat):
		r.writeFailure(ctx, w, http.StatusBadRequest, msgBadImageFormat)
	case errors.Is(err, application.ErrBadUploadEncoding):
		r.writeFailure(ctx, w, http.StatusBadRequest, msgBadImageData)
	case errors.Is(err, application.ErrNotFound):
		r.writeFailure(ctx, w, http.StatusNotFound, msgBadRequest)
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeFailure(ctx, w, http.StatusUnprocessableEntity, validationMessage(vErr))
			return
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "error", err, "error_kind", application.ErrorKind(err))
		r.writeFailure(ctx, w, http.StatusInternalServerError, msgInternalError)
	}
}

func validationMessage(vErr *application.ValidationError) string {
	if vErr == nil {
		return msgBadRequest
	}
	if _, ok := vErr.FieldErrors["room_name"]; ok {
		return "Room name required"
	}
	return vErr.Error()
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}
