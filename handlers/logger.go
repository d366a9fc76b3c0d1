package handlers

import (
	"astrobook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// getLogger retrieves the request-scoped logger set by the request logger middleware.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get("logger"); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return zap.L()
}

func respondError(c *gin.Context, err error) {
	utils.RespondError(c, getLogger(c), err)
}

// bindJSON decodes the body and answers 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, utils.NewValidationError("invalid request body: %s", err.Error()))
		return false
	}
	return true
}
