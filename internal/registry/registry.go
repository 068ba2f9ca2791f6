package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"group-service/internal/models"
	"group-service/internal/repositories"
)

// PageSize is the fixed page size for all paginated group listings.
const PageSize = 10

// RemovalReason tags why a membership ended. Ban additionally writes the
// ban list; every other reason is a plain removal.
type RemovalReason string

const (
	ReasonSelfLeave            RemovalReason = "self_leave"
	ReasonKicked               RemovalReason = "kicked"
	ReasonBanned               RemovalReason = "banned"
	ReasonGroupDeleted         RemovalReason = "group_deleted"
	ReasonParticipationRevoked RemovalReason = "participation_revoked"
)

// RoomNotifier receives membership side effects so the realtime layer can
// inform and drop affected connections. Calls happen while the group's lock
// is held, so room writes for one group never interleave with its mutations.
type RoomNotifier interface {
	MemberRemoved(groupID, userID int, reason RemovalReason)
	GroupDeleted(groupID int)
}

// Registry owns group lifecycle and membership. All mutating operations on
// a single group are serialized through a per-group mutex; the capacity and
// ban invariants are enforced inside that critical section.
type Registry struct {
	participations repositories.ParticipationRepository
	groups         repositories.GroupRepository
	rooms          RoomNotifier
	locks          *KeyedMutex
}

// New constructs a Registry. rooms may be nil when no realtime layer is
// attached.
func New(participations repositories.ParticipationRepository, groups repositories.GroupRepository, rooms RoomNotifier) *Registry {
	return &Registry{
		participations: participations,
		groups:         groups,
		rooms:          rooms,
		locks:          NewKeyedMutex(),
	}
}

// GroupLock acquires the mutation lock of a group. The chat fan-out uses it
// to serialize sends against membership changes.
func (r *Registry) GroupLock(groupID int) func() {
	return r.locks.Lock(groupKey(groupID))
}

// Create makes a new ACTIVE group with the creator as sole member. The
// creator must participate in the event and must not already own, or be a
// member of, any group for it.
func (r *Registry) Create(ctx context.Context, creatorID int, eventID, name, description string, maxCapacity int) (models.GroupDetail, error) {
	name, description, err := validateFields(name, description, maxCapacity)
	if err != nil {
		return models.GroupDetail{}, err
	}

	unlock := r.locks.Lock(creatorKey(creatorID, eventID))
	defer unlock()

	ok, err := r.participations.IsParticipant(ctx, creatorID, eventID)
	if err != nil {
		return models.GroupDetail{}, err
	}
	if !ok {
		return models.GroupDetail{}, ErrNotParticipant
	}

	if _, err := r.groups.GetGroupByCreator(ctx, creatorID, eventID); err == nil {
		return models.GroupDetail{}, ErrDuplicateGroup
	} else if !errors.Is(err, repositories.ErrGroupNotFound) {
		return models.GroupDetail{}, err
	}

	inGroup, err := r.IsInGroup(ctx, creatorID, eventID)
	if err != nil {
		return models.GroupDetail{}, err
	}
	if inGroup {
		return models.GroupDetail{}, ErrAlreadyInGroup
	}

	group, err := r.groups.CreateGroup(ctx, eventID, creatorID, name, description, maxCapacity)
	if errors.Is(err, repositories.ErrDuplicateGroup) {
		return models.GroupDetail{}, ErrDuplicateGroup
	}
	return group, err
}

// Update rewrites name, description and capacity of the caller's group for
// an event. Capacity may never shrink below current membership.
func (r *Registry) Update(ctx context.Context, callerID int, eventID, name, description string, maxCapacity int) (models.GroupDetail, error) {
	name, description, err := validateFields(name, description, maxCapacity)
	if err != nil {
		return models.GroupDetail{}, err
	}

	owned, err := r.groups.GetGroupByCreator(ctx, callerID, eventID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return models.GroupDetail{}, ErrForbidden
	}
	if err != nil {
		return models.GroupDetail{}, err
	}

	unlock := r.locks.Lock(groupKey(owned.ID))
	defer unlock()

	group, err := r.getLocked(ctx, owned.ID)
	if err != nil {
		return models.GroupDetail{}, err
	}
	if maxCapacity < len(group.Users) {
		return models.GroupDetail{}, ErrCapacityBelowMembership
	}

	if _, err := r.groups.UpdateGroup(ctx, group.ID, name, description, maxCapacity); err != nil {
		return models.GroupDetail{}, err
	}
	return r.getLocked(ctx, group.ID)
}

// Delete tears down the caller's group for an event: memberships are
// released, persisted history is purged with the group, and the room is
// closed. The DELETED state is terminal.
func (r *Registry) Delete(ctx context.Context, callerID int, eventID string) error {
	group, err := r.groups.GetGroupByCreator(ctx, callerID, eventID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}

	unlock := r.locks.Lock(groupKey(group.ID))
	defer unlock()
	return r.deleteLocked(ctx, group.ID)
}

// Join appends a participant to a group. Order is preserved; the creator
// stays at index 0. A user holds at most one membership per event, so
// joining is refused while the user belongs to any other group of the
// same event.
func (r *Registry) Join(ctx context.Context, userID int, groupID int) error {
	unlock := r.locks.Lock(groupKey(groupID))
	defer unlock()

	group, err := r.getLocked(ctx, groupID)
	if err != nil {
		return err
	}

	ok, err := r.participations.IsParticipant(ctx, userID, group.EventID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	if group.IsBanned(userID) {
		return ErrBanned
	}
	if group.HasMember(userID) {
		return ErrAlreadyMember
	}
	inGroup, err := r.IsInGroup(ctx, userID, group.EventID)
	if err != nil {
		return err
	}
	if inGroup {
		return ErrAlreadyInGroup
	}
	if len(group.Users) >= group.MaxCapacity {
		return ErrFull
	}

	return r.groups.AddMember(ctx, groupID, userID)
}

// Leave removes the caller from a group. A creator cannot leave an owned
// group without deleting it, so creator-leave deletes the group.
func (r *Registry) Leave(ctx context.Context, userID int, groupID int) error {
	unlock := r.locks.Lock(groupKey(groupID))
	defer unlock()

	group, err := r.getLocked(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(userID) {
		return ErrNotMember
	}
	if userID == group.CreatorID {
		return r.deleteLocked(ctx, groupID)
	}
	return r.removeLocked(ctx, groupID, userID, ReasonSelfLeave)
}

// Kick removes a member from the creator's group without banning; the
// target may rejoin later.
func (r *Registry) Kick(ctx context.Context, callerID int, eventID string, targetID int) error {
	return r.expel(ctx, callerID, eventID, targetID, ReasonKicked)
}

// Ban atomically moves a member from the member list to the ban list; the
// target may never rejoin.
func (r *Registry) Ban(ctx context.Context, callerID int, eventID string, targetID int) error {
	return r.expel(ctx, callerID, eventID, targetID, ReasonBanned)
}

func (r *Registry) expel(ctx context.Context, callerID int, eventID string, targetID int, reason RemovalReason) error {
	group, err := r.groups.GetGroupByCreator(ctx, callerID, eventID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if targetID == callerID {
		return ErrForbidden
	}

	unlock := r.locks.Lock(groupKey(group.ID))
	defer unlock()

	current, err := r.getLocked(ctx, group.ID)
	if err != nil {
		return err
	}
	if !current.HasMember(targetID) {
		return ErrNotMember
	}
	return r.removeLocked(ctx, group.ID, targetID, reason)
}

// RevokeParticipation cascades an event-participation leave into the group
// registry: a plain member is removed, a creator's group is deleted.
func (r *Registry) RevokeParticipation(ctx context.Context, userID int, eventID string) error {
	group, err := r.groups.FindGroupByMember(ctx, userID, eventID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	unlock := r.locks.Lock(groupKey(group.ID))
	defer unlock()

	current, err := r.getLocked(ctx, group.ID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !current.HasMember(userID) {
		return nil
	}
	if userID == current.CreatorID {
		return r.deleteLocked(ctx, group.ID)
	}
	return r.removeLocked(ctx, group.ID, userID, ReasonParticipationRevoked)
}

// Get returns one group with members and bans resolved.
func (r *Registry) Get(ctx context.Context, groupID int) (models.GroupDetail, error) {
	group, err := r.groups.GetGroup(ctx, groupID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return models.GroupDetail{}, ErrNotFound
	}
	return group, err
}

// ListByEvent returns one page of an event's groups in creation order,
// with the total count and page count for infinite scrolling.
func (r *Registry) ListByEvent(ctx context.Context, eventID string, page int) ([]models.GroupDetail, int, int, error) {
	page = normalizePage(page)
	groups, total, err := r.groups.ListGroupsByEvent(ctx, eventID, PageSize, (page-1)*PageSize)
	return groups, total, totalPages(total), err
}

// ListCreated returns one page of groups the user created.
func (r *Registry) ListCreated(ctx context.Context, userID, page int) ([]models.GroupDetail, int, int, error) {
	page = normalizePage(page)
	groups, total, err := r.groups.ListCreatedGroups(ctx, userID, PageSize, (page-1)*PageSize)
	return groups, total, totalPages(total), err
}

// ListJoined returns one page of groups the user joined but did not create.
func (r *Registry) ListJoined(ctx context.Context, userID, page int) ([]models.GroupDetail, int, int, error) {
	page = normalizePage(page)
	groups, total, err := r.groups.ListJoinedGroups(ctx, userID, PageSize, (page-1)*PageSize)
	return groups, total, totalPages(total), err
}

// IsInGroup reports whether the user belongs to any group of the event.
// Every gating decision goes through this single query instead of
// re-deriving membership ad hoc.
func (r *Registry) IsInGroup(ctx context.Context, userID int, eventID string) (bool, error) {
	_, err := r.groups.FindGroupByMember(ctx, userID, eventID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsMember reports current membership in one group.
func (r *Registry) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	return r.groups.IsMember(ctx, groupID, userID)
}

// CanSend gates realtime sends: the sender must be a current, unbanned
// member. Checked per message, so kicks and bans cut a session off.
func (r *Registry) CanSend(ctx context.Context, groupID, userID int) error {
	group, err := r.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if group.IsBanned(userID) {
		return ErrBanned
	}
	if !group.HasMember(userID) {
		return ErrNotMember
	}
	return nil
}

// CanReadHistory gates message history: current members and banned former
// members may read. Kicked or departed users leave no membership record, so
// the ban list is the only past membership we can still prove.
func (r *Registry) CanReadHistory(ctx context.Context, groupID, userID int) error {
	group, err := r.Get(ctx, groupID)
	if err != nil {
		return err
	}
	if group.HasMember(userID) || group.IsBanned(userID) {
		return nil
	}
	return ErrNotMember
}

func (r *Registry) getLocked(ctx context.Context, groupID int) (models.GroupDetail, error) {
	group, err := r.groups.GetGroup(ctx, groupID)
	if errors.Is(err, repositories.ErrGroupNotFound) {
		return models.GroupDetail{}, ErrNotFound
	}
	return group, err
}

func (r *Registry) removeLocked(ctx context.Context, groupID, userID int, reason RemovalReason) error {
	var err error
	if reason == ReasonBanned {
		err = r.groups.BanMember(ctx, groupID, userID)
	} else {
		err = r.groups.RemoveMember(ctx, groupID, userID)
	}
	if err != nil {
		return err
	}
	if r.rooms != nil {
		r.rooms.MemberRemoved(groupID, userID, reason)
	}
	return nil
}

func (r *Registry) deleteLocked(ctx context.Context, groupID int) error {
	if err := r.groups.DeleteGroup(ctx, groupID); err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return ErrNotFound
		}
		return err
	}
	if r.rooms != nil {
		r.rooms.GroupDeleted(groupID)
	}
	return nil
}

func validateFields(name, description string, maxCapacity int) (string, string, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return "", "", ErrEmptyField
	}
	if maxCapacity < models.MinParticipants || maxCapacity > models.MaxParticipants {
		return "", "", ErrInvalidCapacity
	}
	return name, description, nil
}

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func totalPages(total int) int {
	return (total + PageSize - 1) / PageSize
}

func groupKey(groupID int) string {
	return fmt.Sprintf("group:%d", groupID)
}

func creatorKey(creatorID int, eventID string) string {
	return fmt.Sprintf("create:%d:%s", creatorID, eventID)
}
