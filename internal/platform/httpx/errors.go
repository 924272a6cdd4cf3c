package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/orderflow/internal/shared"
)

// RespondError maps domain errors to the error envelope.
func RespondError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *shared.ValidationError
	switch {
	case errors.As(err, &verr):
		Fail(w, http.StatusUnprocessableEntity, "validation failed", verr.Fields)
	case errors.Is(err, shared.ErrValidation):
		Fail(w, http.StatusUnprocessableEntity, err.Error(), nil)
	case errors.Is(err, shared.ErrNotFound):
		Fail(w, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, shared.ErrInsufficientStock):
		Fail(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, shared.ErrDuplicate):
		Fail(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, shared.ErrInvalidTransition):
		Fail(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, shared.ErrInvalidCredentials):
		Fail(w, http.StatusUnauthorized, "invalid credentials", nil)
	case errors.Is(err, shared.ErrUnauthorized):
		Fail(w, http.StatusUnauthorized, "unauthorized", nil)
	case errors.Is(err, shared.ErrForbidden):
		Fail(w, http.StatusForbidden, "forbidden", nil)
	default:
		if logger != nil {
			logger.Error("internal error", slog.Any("error", err))
		}
		Fail(w, http.StatusInternalServerError, "internal error", nil)
	}
}

// BadRequest reports an undecodable request body.
func BadRequest(w http.ResponseWriter, err error) {
	Fail(w, http.StatusBadRequest, "malformed request body", map[string]string{"body": err.Error()})
}
