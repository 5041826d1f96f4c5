package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"demand-copilot-api/pkg/models"
	"demand-copilot-api/pkg/services"
)

// ChatHandler exposes the sales co-pilot conversation endpoints.
type ChatHandler struct {
	chat   *services.ChatService
	logger *logrus.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(chat *services.ChatService, logger *logrus.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// HandleChat answers one co-pilot question.
// POST /api/chat
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "formato de solicitud inválido: " + err.Error(),
		})
		return
	}

	resp, err := h.chat.HandleMessage(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		h.logger.WithError(err).Error("chat request failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "no se pudo generar la respuesta",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": resp,
	})
}

// ResetSession discards the caller's conversation history.
// POST /api/chat/reset
func (h *ChatHandler) ResetSession(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "formato de solicitud inválido: " + err.Error(),
		})
		return
	}

	if err := h.chat.ResetSession(c.Request.Context(), req.UserID); err != nil {
		h.logger.WithError(err).Error("session reset failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "no se pudo reiniciar la sesión",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
