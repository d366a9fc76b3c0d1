package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.Request.URL.Path))

				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
			}
		}()
		c.Next()
	}
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindPaymentDeclined:
		return http.StatusPaymentRequired
	case KindNotFound:
		return http.StatusNotFound
	case KindSlotNoLongerAvailable, KindInvalidTransition, KindConflict:
		return http.StatusConflict
	case KindPaymentSetupFailed:
		return http.StatusBadGateway
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// RespondError writes err using the AppError taxonomy. Internal errors never leak their cause.
func RespondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := KindOf(err)
	status := StatusFor(kind)

	resp := ErrorResponse{Code: string(kind), Message: "Internal Server Error"}
	var appErr *AppError
	if kind != KindInternal && errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Retryable = appErr.Retryable
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", c.Request.URL.Path), zap.String("kind", string(kind)), zap.Error(err))
	} else {
		logger.Info("request rejected", zap.String("path", c.Request.URL.Path), zap.String("kind", string(kind)), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, resp)
}
