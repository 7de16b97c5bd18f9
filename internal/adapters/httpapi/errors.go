package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/transitops/user-service/internal/app/auth"
	"github.com/transitops/user-service/internal/app/users"
)

// invalidLoginMessage is the only message a failed login ever produces.
const invalidLoginMessage = "Invalid login."

// ErrorResponse is the envelope of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	er := ErrorResponse{Error: ErrorBody{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: middleware.GetReqID(r.Context()),
	}}
	render.Status(r, status)
	render.JSON(w, r, er)
}

// writeAppError maps service errors to HTTP responses. Unknown errors become a 500 and are logged.
func writeAppError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", invalidLoginMessage, nil)
		return
	}
	if ae := (*auth.Error)(nil); errors.As(err, &ae) {
		writeError(w, r, ae.Status, ae.Code, ae.Message, ae.Details)
		return
	}
	if ue := (*users.Error)(nil); errors.As(err, &ue) {
		writeError(w, r, ue.Status, ue.Code, ue.Message, ue.Details)
		return
	}
	if ve := (validation.Errors)(nil); errors.As(err, &ve) {
		writeValidationError(w, r, ve)
		return
	}

	log.ErrorContext(r.Context(), "request failed",
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Any("error", err),
	)
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, ve validation.Errors) {
	details := make(map[string]any, len(ve))
	for field, fe := range ve {
		details[field] = fe.Error()
	}
	writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "The request is invalid.", details)
}
