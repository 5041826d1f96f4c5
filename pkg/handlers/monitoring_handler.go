package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"demand-copilot-api/pkg/services"
)

// MonitoringHandler exposes the in-memory request log.
type MonitoringHandler struct {
	Service *services.MonitoringService
}

// NewMonitoringHandler creates a monitoring handler.
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{Service: service}
}

// GetLogs returns the most recent request log entries.
// GET /api/admin/logs?limit=
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "parámetro limit inválido"})
			return
		}
		limit = v
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"logs":       h.Service.RecentLogs(limit),
		"error_rate": h.Service.ErrorRate(),
	})
}
