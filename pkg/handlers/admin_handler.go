package handlers

import (
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	config "demand-copilot-api/configs"
	"demand-copilot-api/pkg/storage"
)

// isMaintenanceMode flags the server as temporarily unavailable.
// atomic.Bool keeps reads and writes thread safe.
var isMaintenanceMode atomic.Bool

// AdminHandler handles operator-only endpoints.
type AdminHandler struct {
	AdminUsername string
	AdminPassword string
	store         storage.Store
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(cfg *config.Config, store storage.Store) *AdminHandler {
	return &AdminHandler{
		AdminUsername: cfg.AdminUsername,
		AdminPassword: cfg.AdminPassword,
		store:         store,
	}
}

// AdminCredentials is the request body for operator authentication.
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) authorize(c *gin.Context) bool {
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return false
	}
	if input.Username != h.AdminUsername || input.Password != h.AdminPassword {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return false
	}
	return true
}

// StartMaintenance puts the server into maintenance mode.
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	isMaintenanceMode.Store(true)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode started"})
}

// StopMaintenance leaves maintenance mode.
func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	isMaintenanceMode.Store(false)
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode stopped"})
}

// GetHealthStatus reports the maintenance flag.
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"isMaintenanceMode": isMaintenanceMode.Load()})
}

// HealthCheck answers load balancer probes. It reports degraded when
// the storage backend stops answering pings.
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	if isMaintenanceMode.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "message": "storage backend unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
