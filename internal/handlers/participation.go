package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"group-service/internal/registry"
	"group-service/internal/repositories"
	"group-service/internal/telemetry"
)

// ParticipationHandler manages the event participation ledger endpoints.
type ParticipationHandler struct {
	participations repositories.ParticipationRepository
	registry       *registry.Registry
	audit          *telemetry.AuditEmitter
}

// NewParticipationHandler constructs a ParticipationHandler.
func NewParticipationHandler(participations repositories.ParticipationRepository, reg *registry.Registry, audit *telemetry.AuditEmitter) *ParticipationHandler {
	return &ParticipationHandler{participations: participations, registry: reg, audit: audit}
}

// IsUserEvent handles GET /is-an-user-event.
func (h *ParticipationHandler) IsUserEvent(c *gin.Context) {
	eventID := c.Query("eventId")
	if eventID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing event id"})
		return
	}

	userID := c.GetInt("userID")
	ok, err := h.participations.IsParticipant(c.Request.Context(), userID, eventID)
	if err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "participation check failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"isParticipant": ok})
}

// JoinEvent handles POST /user-events. Joining is an idempotent upsert:
// joining twice reports success both times and leaves one ledger entry.
func (h *ParticipationHandler) JoinEvent(c *gin.Context) {
	var req struct {
		EventID string `json:"eventId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.participations.Join(c.Request.Context(), userID, req.EventID); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong."})
		return
	}

	h.emitAudit(c, "INFO", "Event joined")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You are now participating in this event."})
}

// LeaveEvent handles DELETE /user-events. The removal cascades into the
// group registry: a plain membership is revoked, a created group is
// deleted along with its room.
func (h *ParticipationHandler) LeaveEvent(c *gin.Context) {
	var req struct {
		EventID string `json:"eventId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if err := h.registry.RevokeParticipation(c.Request.Context(), userID, req.EventID); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong."})
		return
	}
	if err := h.participations.Leave(c.Request.Context(), userID, req.EventID); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Something went wrong."})
		return
	}

	h.emitAudit(c, "INFO", "Event left")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "You are no longer participating in this event."})
}

func (h *ParticipationHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
