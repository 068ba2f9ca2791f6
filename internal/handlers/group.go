package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"group-service/internal/registry"
	"group-service/internal/telemetry"
)

// GroupHandler manages the event group endpoints.
type GroupHandler struct {
	registry *registry.Registry
	audit    *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(reg *registry.Registry, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{registry: reg, audit: audit}
}

type groupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description" binding:"required"`
	MaxCapacity int    `json:"maxCapacity" binding:"required"`
	EventID     string `json:"eventId" binding:"required"`
}

// CreateGroup handles POST /event-groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	group, err := h.registry.Create(c.Request.Context(), userID, req.EventID, req.Name, req.Description, req.MaxCapacity)
	if err != nil {
		h.emitAudit(c, "ERROR", "group creation refused")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{
		"success":      true,
		"message":      "Your group has been created.",
		"updatedGroup": group,
	})
}

// UpdateGroup handles PUT /event-groups. The group is addressed by event:
// a caller edits their own group for that event, nobody else's.
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	group, err := h.registry.Update(c.Request.Context(), userID, req.EventID, req.Name, req.Description, req.MaxCapacity)
	if err != nil {
		h.emitAudit(c, "ERROR", "group update refused")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group updated")
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Your group has been updated.",
		"updatedGroup": group,
	})
}

// DeleteGroup handles DELETE /event-groups.
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	var req struct {
		EventID string `json:"eventId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.registry.Delete(c.Request.Context(), userID, req.EventID); err != nil {
		h.emitAudit(c, "ERROR", "group deletion refused")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group deleted")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Your group has been deleted."})
}

// GetGroup handles GET /event-group.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID, ok := queryInt(c, "eventGroupId")
	if !ok {
		return
	}

	group, err := h.registry.Get(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groupInfo": group})
}

// ListEventGroups handles GET /event-groups.
func (h *GroupHandler) ListEventGroups(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing event id"})
		return
	}

	groups, total, pages, err := h.registry.ListByEvent(c.Request.Context(), eventID, queryPage(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups, "nbOfGroups": total, "totalPage": pages})
}

// JoinGroup handles POST /join-group.
func (h *GroupHandler) JoinGroup(c *gin.Context) {
	var req struct {
		EventID      string `json:"eventId"`
		EventGroupID int    `json:"eventGroupId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.registry.Join(c.Request.Context(), userID, req.EventGroupID); err != nil {
		h.emitAudit(c, "ERROR", "group join refused")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group joined")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You joined the group."})
}

// LeaveGroup handles POST /leave-group. A creator leaving deletes the
// whole group, matching the delete flow the client pairs with it.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	var req struct {
		EventGroupID int `json:"eventGroupId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.registry.Leave(c.Request.Context(), userID, req.EventGroupID); err != nil {
		h.emitAudit(c, "ERROR", "group leave refused")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "Group left")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You left the group."})
}

// KickUser handles POST /kick-user. Kicked users may rejoin later.
func (h *GroupHandler) KickUser(c *gin.Context) {
	var req struct {
		EventID      string `json:"eventId" binding:"required"`
		UserToKickID int    `json:"userToKickId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.registry.Kick(c.Request.Context(), userID, req.EventID, req.UserToKickID); err != nil {
		h.emitAudit(c, "ERROR", "kick refused")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "User kicked")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "The user has been kicked from your group."})
}

// BanUser handles POST /ban-user. Banned users may never rejoin.
func (h *GroupHandler) BanUser(c *gin.Context) {
	var req struct {
		EventID     string `json:"eventId" binding:"required"`
		UserToBanID int    `json:"userToBanId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.registry.Ban(c.Request.Context(), userID, req.EventID, req.UserToBanID); err != nil {
		h.emitAudit(c, "ERROR", "ban refused")
		respondError(c, err)
		return
	}

	h.emitAudit(c, "INFO", "User banned")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "The user has been banned from your group."})
}

// IsUserInGroup handles GET /is-user-in-group.
func (h *GroupHandler) IsUserInGroup(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing event id"})
		return
	}

	userID := c.GetInt("userID")
	member, err := h.registry.IsInGroup(c.Request.Context(), userID, eventID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isMember": member})
}

// ListCreatedGroups handles GET /created-group-chat.
func (h *GroupHandler) ListCreatedGroups(c *gin.Context) {
	userID := c.GetInt("userID")
	groups, total, pages, err := h.registry.ListCreated(c.Request.Context(), userID, queryPage(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"createdGroups": groups, "nbOfGroups": total, "totalPage": pages})
}

// ListJoinedGroups handles GET /joined-group-chat.
func (h *GroupHandler) ListJoinedGroups(c *gin.Context) {
	userID := c.GetInt("userID")
	groups, total, pages, err := h.registry.ListJoined(c.Request.Context(), userID, queryPage(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"joinedGroups": groups, "nbOfGroups": total, "totalPage": pages})
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

func queryInt(c *gin.Context, name string) (int, bool) {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return value, true
}

func queryPage(c *gin.Context) int {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
