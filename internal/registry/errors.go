package registry

import "errors"

// Sentinel errors for group registry and chat access decisions. Handlers map
// these to HTTP statuses and user-facing messages; callers must not retry
// authorization failures without a state change.
var (
	ErrNotParticipant          = errors.New("user does not participate in the event")
	ErrForbidden               = errors.New("only the group creator may do this")
	ErrNotMember               = errors.New("user is not a member of the group")
	ErrBanned                  = errors.New("user is banned from the group")
	ErrFull                    = errors.New("group is full")
	ErrDuplicateGroup          = errors.New("user already created a group for this event")
	ErrAlreadyMember           = errors.New("user is already a member of the group")
	ErrAlreadyInGroup          = errors.New("user already belongs to a group for this event")
	ErrInvalidCapacity         = errors.New("capacity out of bounds")
	ErrCapacityBelowMembership = errors.New("capacity below current member count")
	ErrEmptyField              = errors.New("name and description must not be empty")
	ErrNotFound                = errors.New("group not found")
)
