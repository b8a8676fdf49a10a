package handlers

import (
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	apperrors "github.com/sjperalta/pratiche-api/pkg/errors"
	"github.com/sjperalta/pratiche-api/pkg/logger"
)

// statusFor maps an error kind to its HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrRateResolution):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperrors.ErrStateConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Server errors are logged and
// reported to Sentry without leaking their cause to the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.FullPath(), "error", err)
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		} else {
			sentry.CaptureException(err)
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "Internal server error", "code": apperrors.CodeDatabase})
		return
	}

	body := gin.H{"error": err.Error()}
	var be *apperrors.BusinessError
	if errors.As(err, &be) {
		body["error"] = be.Message
		body["code"] = be.Code
		if be.State != "" {
			body["current_state"] = be.State
		}
	}
	c.JSON(status, body)
}

// respondBindError reports a malformed or invalid request body
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeValidation})
}
