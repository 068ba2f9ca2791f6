package models

import "time"

// Capacity bounds for event groups, inclusive.
const (
	MinParticipants = 1
	MaxParticipants = 7
)

// Group is a capacity-bounded sub-community of participants for one
// externally sourced event. The creator is always the first member.
type Group struct {
	ID          int       `db:"id" json:"id"`
	EventID     string    `db:"event_id" json:"eventId"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	MaxCapacity int       `db:"max_capacity" json:"maxCapacity"`
	CreatorID   int       `db:"creator_id" json:"creatorId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// GroupDetail is the API view of a group with resolved members. Users are
// ordered by join position, creator first. BannedUsers holds user ids only.
type GroupDetail struct {
	Group
	Creator     User   `json:"creator"`
	Users       []User `json:"users"`
	BannedUsers []int  `json:"bannedUsers"`
}

// IsBanned reports whether userID is in the group's ban list.
func (g GroupDetail) IsBanned(userID int) bool {
	for _, id := range g.BannedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// HasMember reports whether userID is currently a member.
func (g GroupDetail) HasMember(userID int) bool {
	for _, u := range g.Users {
		if u.ID == userID {
			return true
		}
	}
	return false
}
