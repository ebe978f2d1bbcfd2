package httpx

import (
	"errors"
	"net/http"

	apperrors "github.com/scoutline/scout-api/internal/errors"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// StatusForError maps an application error code to an HTTP status.
func StatusForError(err error) int {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodePermissionDenied:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeInvalidState, apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case apperrors.ErrCodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes a JSON error response for an application error. Internal
// causes are not echoed back to the client; only the taxonomy code and the
// message that was attached at the point of failure.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusForError(err)

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		WriteJSON(w, status, ErrorBody{
			Error:   string(appErr.Code),
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	WriteJSON(w, status, ErrorBody{
		Error:   string(apperrors.ErrCodeInternal),
		Message: "An internal error occurred.",
	})
}
