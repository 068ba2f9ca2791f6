package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"group-service/internal/models"
)

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrDuplicateGroup = errors.New("duplicate group for creator and event")
)

// GroupRepository abstracts event group persistence.
type GroupRepository interface {
	CreateGroup(ctx context.Context, eventID string, creatorID int, name, description string, maxCapacity int) (models.GroupDetail, error)
	GetGroup(ctx context.Context, groupID int) (models.GroupDetail, error)
	GetGroupByCreator(ctx context.Context, creatorID int, eventID string) (models.GroupDetail, error)
	FindGroupByMember(ctx context.Context, userID int, eventID string) (models.GroupDetail, error)
	UpdateGroup(ctx context.Context, groupID int, name, description string, maxCapacity int) (models.Group, error)
	DeleteGroup(ctx context.Context, groupID int) error
	AddMember(ctx context.Context, groupID, userID int) error
	RemoveMember(ctx context.Context, groupID, userID int) error
	BanMember(ctx context.Context, groupID, userID int) error
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
	ListGroupsByEvent(ctx context.Context, eventID string, limit, offset int) ([]models.GroupDetail, int, error)
	ListCreatedGroups(ctx context.Context, userID, limit, offset int) ([]models.GroupDetail, int, error)
	ListJoinedGroups(ctx context.Context, userID, limit, offset int) ([]models.GroupDetail, int, error)
}

// GroupRepo is a sqlx implementation of GroupRepository.
type GroupRepo struct {
	db *sqlx.DB
}

// NewGroupRepo constructs a GroupRepo.
func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

const groupColumns = `id, event_id, name, description, max_capacity, creator_id, created_at`

// CreateGroup creates a group with the creator as its first member,
// atomically. A second group by the same creator for the same event violates
// the unique index and is reported as ErrDuplicateGroup.
func (r *GroupRepo) CreateGroup(ctx context.Context, eventID string, creatorID int, name, description string, maxCapacity int) (models.GroupDetail, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.GroupDetail{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var group models.Group
	err = tx.QueryRowxContext(ctx, `INSERT INTO event_groups (event_id, name, description, max_capacity, creator_id) VALUES ($1, $2, $3, $4, $5) RETURNING `+groupColumns,
		eventID, name, description, maxCapacity, creatorID).StructScan(&group)
	if err != nil {
		if isUniqueViolation(err) {
			return models.GroupDetail{}, ErrDuplicateGroup
		}
		return models.GroupDetail{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, position) VALUES ($1, $2, 0)`, group.ID, creatorID); err != nil {
		return models.GroupDetail{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.GroupDetail{}, err
	}
	return r.loadDetail(ctx, group)
}

// GetGroup fetches a single group with members and bans resolved.
func (r *GroupRepo) GetGroup(ctx context.Context, groupID int) (models.GroupDetail, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM event_groups WHERE id=$1`, groupID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupDetail{}, ErrGroupNotFound
	}
	if err != nil {
		return models.GroupDetail{}, err
	}
	return r.loadDetail(ctx, group)
}

// GetGroupByCreator fetches the group a user created for an event.
func (r *GroupRepo) GetGroupByCreator(ctx context.Context, creatorID int, eventID string) (models.GroupDetail, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT `+groupColumns+` FROM event_groups WHERE creator_id=$1 AND event_id=$2`, creatorID, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupDetail{}, ErrGroupNotFound
	}
	if err != nil {
		return models.GroupDetail{}, err
	}
	return r.loadDetail(ctx, group)
}

// FindGroupByMember fetches the group a user belongs to for an event, if any.
func (r *GroupRepo) FindGroupByMember(ctx context.Context, userID int, eventID string) (models.GroupDetail, error) {
	var group models.Group
	err := r.db.GetContext(ctx, &group, `SELECT g.id, g.event_id, g.name, g.description, g.max_capacity, g.creator_id, g.created_at
        FROM event_groups g INNER JOIN group_members gm ON gm.group_id = g.id
        WHERE gm.user_id=$1 AND g.event_id=$2`, userID, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GroupDetail{}, ErrGroupNotFound
	}
	if err != nil {
		return models.GroupDetail{}, err
	}
	return r.loadDetail(ctx, group)
}

// UpdateGroup rewrites the mutable fields of a group.
func (r *GroupRepo) UpdateGroup(ctx context.Context, groupID int, name, description string, maxCapacity int) (models.Group, error) {
	var group models.Group
	err := r.db.QueryRowxContext(ctx, `UPDATE event_groups SET name=$2, description=$3, max_capacity=$4 WHERE id=$1 RETURNING `+groupColumns,
		groupID, name, description, maxCapacity).StructScan(&group)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Group{}, ErrGroupNotFound
	}
	return group, err
}

// DeleteGroup removes the group; members, bans and messages cascade.
func (r *GroupRepo) DeleteGroup(ctx context.Context, groupID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_groups WHERE id=$1`, groupID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrGroupNotFound
	}
	return nil
}

// AddMember appends a user at the next join position.
func (r *GroupRepo) AddMember(ctx context.Context, groupID, userID int) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO group_members (group_id, user_id, position)
        SELECT $1, $2, COALESCE(MAX(position)+1, 0) FROM group_members WHERE group_id=$1`, groupID, userID)
	return err
}

// RemoveMember removes a user from the member list.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID)
	return err
}

// BanMember moves a user from members to the ban list atomically.
func (r *GroupRepo) BanMember(ctx context.Context, groupID, userID int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1 AND user_id=$2`, groupID, userID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO group_bans (group_id, user_id) VALUES ($1, $2) ON CONFLICT (group_id, user_id) DO NOTHING`, groupID, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// IsMember checks current membership.
func (r *GroupRepo) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id=$1 AND user_id=$2)`, groupID, userID)
	return exists, err
}

// ListGroupsByEvent returns one page of groups for an event in creation
// order, along with the total group count for the event.
func (r *GroupRepo) ListGroupsByEvent(ctx context.Context, eventID string, limit, offset int) ([]models.GroupDetail, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM event_groups WHERE event_id=$1`, eventID); err != nil {
		return nil, 0, err
	}

	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM event_groups WHERE event_id=$1 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`, eventID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	details, err := r.loadDetails(ctx, groups)
	return details, total, err
}

// ListCreatedGroups returns one page of groups the user created.
func (r *GroupRepo) ListCreatedGroups(ctx context.Context, userID, limit, offset int) ([]models.GroupDetail, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM event_groups WHERE creator_id=$1`, userID); err != nil {
		return nil, 0, err
	}

	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT `+groupColumns+` FROM event_groups WHERE creator_id=$1 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	details, err := r.loadDetails(ctx, groups)
	return details, total, err
}

// ListJoinedGroups returns one page of groups the user is a member of but
// did not create.
func (r *GroupRepo) ListJoinedGroups(ctx context.Context, userID, limit, offset int) ([]models.GroupDetail, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM event_groups g INNER JOIN group_members gm ON gm.group_id = g.id WHERE gm.user_id=$1 AND g.creator_id<>$1`, userID); err != nil {
		return nil, 0, err
	}

	var groups []models.Group
	err := r.db.SelectContext(ctx, &groups, `SELECT g.id, g.event_id, g.name, g.description, g.max_capacity, g.creator_id, g.created_at
        FROM event_groups g INNER JOIN group_members gm ON gm.group_id = g.id
        WHERE gm.user_id=$1 AND g.creator_id<>$1 ORDER BY g.created_at ASC, g.id ASC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	details, err := r.loadDetails(ctx, groups)
	return details, total, err
}

func (r *GroupRepo) loadDetail(ctx context.Context, group models.Group) (models.GroupDetail, error) {
	detail := models.GroupDetail{Group: group}

	var members []models.User
	err := r.db.SelectContext(ctx, &members, `SELECT gm.user_id AS id, COALESCE(u.username, '') AS username
        FROM group_members gm LEFT JOIN users u ON u.id = gm.user_id
        WHERE gm.group_id=$1 ORDER BY gm.position ASC`, group.ID)
	if err != nil {
		return models.GroupDetail{}, err
	}
	detail.Users = members

	for _, u := range members {
		if u.ID == group.CreatorID {
			detail.Creator = u
			break
		}
	}

	var banned []int
	if err := r.db.SelectContext(ctx, &banned, `SELECT user_id FROM group_bans WHERE group_id=$1 ORDER BY user_id ASC`, group.ID); err != nil {
		return models.GroupDetail{}, err
	}
	detail.BannedUsers = banned

	return detail, nil
}

func (r *GroupRepo) loadDetails(ctx context.Context, groups []models.Group) ([]models.GroupDetail, error) {
	details := make([]models.GroupDetail, 0, len(groups))
	for _, g := range groups {
		detail, err := r.loadDetail(ctx, g)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
