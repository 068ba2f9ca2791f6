package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"group-service/internal/chat"
	"group-service/internal/telemetry"
)

// Presence answers whether a user currently holds a live room connection.
type Presence interface {
	IsUserOnline(userID int) bool
}

// ChatHandler serves message history and presence.
type ChatHandler struct {
	chat     *chat.Service
	presence Presence
	audit    *telemetry.AuditEmitter
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(chatSvc *chat.Service, presence Presence, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{chat: chatSvc, presence: presence, audit: audit}
}

// GetGroupMessages handles GET /group-messages. Access requires current
// membership or a ban record (the provable form of past membership).
func (h *ChatHandler) GetGroupMessages(c *gin.Context) {
	groupID, ok := queryInt(c, "eventGroupId")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	messages, err := h.chat.History(c.Request.Context(), groupID, userID)
	if err != nil {
		h.emitAudit(c, "ERROR", "history refused")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// IsUserOnline handles POST /is-user-online.
func (h *ChatHandler) IsUserOnline(c *gin.Context) {
	var req struct {
		UserID int `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	online := false
	if h.presence != nil {
		online = h.presence.IsUserOnline(req.UserID)
	}
	c.JSON(http.StatusOK, gin.H{"isOnline": online})
}

func (h *ChatHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
