package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	core "github.com/lumenlearn/assessment-backend/internal/assessment"
	"github.com/lumenlearn/assessment-backend/internal/platform/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondFromError maps the service error taxonomy onto HTTP statuses.
// Unclassified errors respond 500 with a generic message so internal
// detail never leaks to clients.
func RespondFromError(c *gin.Context, err error) {
	e := classify(err)
	RespondError(c, e.Status, e.Code, e.Err)
}

func classify(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	switch {
	case errors.Is(err, core.ErrValidation):
		return apierr.New(http.StatusBadRequest, "validation_failed", err)
	case errors.Is(err, core.ErrNotFound):
		return apierr.New(http.StatusNotFound, "not_found", err)
	case errors.Is(err, core.ErrConflict):
		return apierr.New(http.StatusConflict, "conflict", err)
	case errors.Is(err, core.ErrRetryable):
		return apierr.New(http.StatusServiceUnavailable, "retry_later", errors.New("temporary contention, retry the request"))
	default:
		return apierr.New(http.StatusInternalServerError, "internal_error", errors.New("internal error"))
	}
}
