package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"group-service/internal/chat"
	"group-service/internal/registry"
)

// errorStatus maps domain errors to an HTTP status and a message suitable
// for direct display; clients surface it verbatim.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, registry.ErrNotParticipant):
		return http.StatusForbidden, "You must participate in the event first."
	case errors.Is(err, registry.ErrForbidden):
		return http.StatusForbidden, "Only the group creator can do that."
	case errors.Is(err, registry.ErrNotMember):
		return http.StatusForbidden, "You are not a member of this group."
	case errors.Is(err, registry.ErrBanned):
		return http.StatusForbidden, "You are banned from this group."
	case errors.Is(err, registry.ErrFull):
		return http.StatusConflict, "This group is already full."
	case errors.Is(err, registry.ErrDuplicateGroup):
		return http.StatusConflict, "You already created a group for this event."
	case errors.Is(err, registry.ErrAlreadyMember):
		return http.StatusConflict, "You are already a member of this group."
	case errors.Is(err, registry.ErrAlreadyInGroup):
		return http.StatusConflict, "You are already in a group for this event."
	case errors.Is(err, registry.ErrInvalidCapacity):
		return http.StatusBadRequest, "Capacity must be between 1 and 7 participants."
	case errors.Is(err, registry.ErrCapacityBelowMembership):
		return http.StatusBadRequest, "Capacity cannot be lower than the current member count."
	case errors.Is(err, registry.ErrEmptyField):
		return http.StatusBadRequest, "All fields must be filled."
	case errors.Is(err, chat.ErrEmptyContent):
		return http.StatusBadRequest, "Message cannot be empty."
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound, "Group not found."
	default:
		return http.StatusInternalServerError, "Something went wrong."
	}
}

func respondError(c *gin.Context, err error) {
	status, message := errorStatus(err)
	c.JSON(status, gin.H{"success": false, "message": message})
}
