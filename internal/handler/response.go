package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/wellness-api/internal/middleware"
	apperrors "github.com/jwalitptl/wellness-api/pkg/errors"
)

// ErrorStatus maps err onto an HTTP status: validation 400, not found 404,
// store failures 503, anything else 500.
func ErrorStatus(err error) int {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// ErrorMessage is the client-safe text of err. Driver details stay in the logs.
func ErrorMessage(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

// StaffName returns the authenticated staff member, if any.
func StaffName(c *gin.Context) string {
	return c.GetString(middleware.ContextStaffName)
}
