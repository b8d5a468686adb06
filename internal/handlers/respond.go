package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vidtube/backend/internal/apperr"
	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/repositories"
)

// apiResponse is the uniform envelope every endpoint returns.
type apiResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	Errors     []any  `json:"errors,omitempty"`
}

func respond(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload := apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("failed to encode response", "error", err)
	}
}

// respondError normalizes any error into the envelope. Repository and auth
// sentinels map onto taxonomy kinds here so handlers can return store errors
// unwrapped; anything unclassified becomes a 500 with a generic message.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	message := apperr.MessageOf(err)

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			kind, message = apperr.NotFound, "resource not found"
		case errors.Is(err, repositories.ErrConflict):
			kind, message = apperr.Conflict, "resource already exists"
		case errors.Is(err, repositories.ErrBadSortField):
			kind, message = apperr.InvalidArgument, "unsupported sort field"
		case errors.Is(err, auth.ErrSessionNotFound),
			errors.Is(err, auth.ErrRefreshTokenExpired),
			errors.Is(err, auth.ErrInvalidToken):
			kind, message = apperr.Unauthenticated, "invalid or expired session"
		}
	}

	status := kind.HTTPStatus()
	if status == http.StatusInternalServerError {
		logging.FromContext(ctx).Error("request failed", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload := apiResponse{
		StatusCode: status,
		Message:    message,
		Success:    false,
		Errors:     []any{},
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("failed to encode error response", "error", err)
	}
}
