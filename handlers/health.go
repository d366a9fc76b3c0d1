package handlers

import (
	"net/http"

	"astrobook/utils"

	"github.com/gin-gonic/gin"
)

type HealthReporter interface {
	Status() utils.HealthStatus
}

type HealthHandler struct {
	Monitor HealthReporter
}

func NewHealthHandler(monitor HealthReporter) *HealthHandler {
	return &HealthHandler{Monitor: monitor}
}

// Health handles GET /health. Dependencies that are down turn the answer into a 503.
func (h *HealthHandler) Health(c *gin.Context) {
	if h.Monitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	status := h.Monitor.Status()
	code := http.StatusOK
	label := "ok"
	if !status.Healthy {
		code = http.StatusServiceUnavailable
		label = "degraded"
	}
	c.JSON(code, gin.H{"status": label, "services": status.Services, "checkedAt": status.CheckedAt})
}
