// Package handlers implements the HTTP endpoints of the SMS ingress.
//
// Every error leaves as {"success":false,"code":...,"message":...} where code
// is one of the wire codes in internal/apperr.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ajayykmr/sms-dispatch-service/internal/apperr"
	"github.com/ajayykmr/sms-dispatch-service/internal/http/middleware"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Fail aborts with the standard error body. 5xx responses are logged.
func Fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Code: code, Message: msg})
}

// failErr maps err onto a status and wire code.
func failErr(c *gin.Context, err error) {
	code := apperr.CodeOf(err)
	status := statusFor(code)
	msg := apperr.MessageOf(err)
	if status == http.StatusInternalServerError && !errors.Is(err, apperr.ErrProcessing) {
		_ = c.Error(err)
		msg = "An unexpected error occurred"
		code = apperr.CodeInternal
	}
	Fail(c, status, code, msg)
}

func statusFor(code string) int {
	switch code {
	case apperr.CodeInvalidRequest:
		return http.StatusBadRequest
	case apperr.CodeBlacklisted:
		return http.StatusUnprocessableEntity
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case apperr.CodeProviderError:
		return http.StatusBadGateway
	case apperr.CodeQueueError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}
