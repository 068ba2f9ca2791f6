package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"group-service/internal/models"
	"group-service/internal/repositories"
)

// MemStore is an in-memory implementation of every repository interface,
// used by tests in place of Postgres. All methods are safe for concurrent
// use; the concurrency tests rely on that.
type MemStore struct {
	mu             sync.Mutex
	participations map[string]bool
	groups         map[int]*memGroup
	nextGroupID    int
	users          map[int]models.User
	messages       map[int][]models.Message
	nextMessageID  int
}

type memGroup struct {
	group   models.Group
	members []int
	banned  []int
}

// NewMemStore creates an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		participations: make(map[string]bool),
		groups:         make(map[int]*memGroup),
		users:          make(map[int]models.User),
		messages:       make(map[int][]models.Message),
	}
}

func participationKey(userID int, eventID string) string {
	return fmt.Sprintf("%d:%s", userID, eventID)
}

// Join implements repositories.ParticipationRepository.
func (s *MemStore) Join(ctx context.Context, userID int, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participations[participationKey(userID, eventID)] = true
	return nil
}

// Leave implements repositories.ParticipationRepository.
func (s *MemStore) Leave(ctx context.Context, userID int, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participations, participationKey(userID, eventID))
	return nil
}

// IsParticipant implements repositories.ParticipationRepository.
func (s *MemStore) IsParticipant(ctx context.Context, userID int, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participations[participationKey(userID, eventID)], nil
}

// ParticipationCount reports the number of ledger entries, for idempotence
// assertions.
func (s *MemStore) ParticipationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participations)
}

// CreateGroup implements repositories.GroupRepository.
func (s *MemStore) CreateGroup(ctx context.Context, eventID string, creatorID int, name, description string, maxCapacity int) (models.GroupDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.group.CreatorID == creatorID && g.group.EventID == eventID {
			return models.GroupDetail{}, repositories.ErrDuplicateGroup
		}
	}
	s.nextGroupID++
	g := &memGroup{
		group: models.Group{
			ID:          s.nextGroupID,
			EventID:     eventID,
			Name:        name,
			Description: description,
			MaxCapacity: maxCapacity,
			CreatorID:   creatorID,
			CreatedAt:   time.Now(),
		},
		members: []int{creatorID},
	}
	s.groups[g.group.ID] = g
	return s.detailLocked(g), nil
}

// GetGroup implements repositories.GroupRepository.
func (s *MemStore) GetGroup(ctx context.Context, groupID int) (models.GroupDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return models.GroupDetail{}, repositories.ErrGroupNotFound
	}
	return s.detailLocked(g), nil
}

// GetGroupByCreator implements repositories.GroupRepository.
func (s *MemStore) GetGroupByCreator(ctx context.Context, creatorID int, eventID string) (models.GroupDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.group.CreatorID == creatorID && g.group.EventID == eventID {
			return s.detailLocked(g), nil
		}
	}
	return models.GroupDetail{}, repositories.ErrGroupNotFound
}

// FindGroupByMember implements repositories.GroupRepository.
func (s *MemStore) FindGroupByMember(ctx context.Context, userID int, eventID string) (models.GroupDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range s.groups {
		if g.group.EventID != eventID {
			continue
		}
		for _, id := range g.members {
			if id == userID {
				return s.detailLocked(g), nil
			}
		}
	}
	return models.GroupDetail{}, repositories.ErrGroupNotFound
}

// UpdateGroup implements repositories.GroupRepository.
func (s *MemStore) UpdateGroup(ctx context.Context, groupID int, name, description string, maxCapacity int) (models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return models.Group{}, repositories.ErrGroupNotFound
	}
	g.group.Name = name
	g.group.Description = description
	g.group.MaxCapacity = maxCapacity
	return g.group, nil
}

// DeleteGroup implements repositories.GroupRepository.
func (s *MemStore) DeleteGroup(ctx context.Context, groupID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[groupID]; !ok {
		return repositories.ErrGroupNotFound
	}
	delete(s.groups, groupID)
	delete(s.messages, groupID)
	return nil
}

// AddMember implements repositories.GroupRepository.
func (s *MemStore) AddMember(ctx context.Context, groupID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	g.members = append(g.members, userID)
	return nil
}

// RemoveMember implements repositories.GroupRepository.
func (s *MemStore) RemoveMember(ctx context.Context, groupID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	g.members = remove(g.members, userID)
	return nil
}

// BanMember implements repositories.GroupRepository.
func (s *MemStore) BanMember(ctx context.Context, groupID, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return repositories.ErrGroupNotFound
	}
	g.members = remove(g.members, userID)
	for _, id := range g.banned {
		if id == userID {
			return nil
		}
	}
	g.banned = append(g.banned, userID)
	return nil
}

// IsMember implements repositories.GroupRepository.
func (s *MemStore) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[groupID]
	if !ok {
		return false, nil
	}
	for _, id := range g.members {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

// ListGroupsByEvent implements repositories.GroupRepository.
func (s *MemStore) ListGroupsByEvent(ctx context.Context, eventID string, limit, offset int) ([]models.GroupDetail, int, error) {
	return s.list(func(g *memGroup) bool { return g.group.EventID == eventID }, limit, offset)
}

// ListCreatedGroups implements repositories.GroupRepository.
func (s *MemStore) ListCreatedGroups(ctx context.Context, userID, limit, offset int) ([]models.GroupDetail, int, error) {
	return s.list(func(g *memGroup) bool { return g.group.CreatorID == userID }, limit, offset)
}

// ListJoinedGroups implements repositories.GroupRepository.
func (s *MemStore) ListJoinedGroups(ctx context.Context, userID, limit, offset int) ([]models.GroupDetail, int, error) {
	return s.list(func(g *memGroup) bool {
		if g.group.CreatorID == userID {
			return false
		}
		for _, id := range g.members {
			if id == userID {
				return true
			}
		}
		return false
	}, limit, offset)
}

// CreateMessage implements repositories.MessageRepository.
func (s *MemStore) CreateMessage(ctx context.Context, groupID, senderID int, content string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextMessageID++
	msg := models.Message{
		ID:        s.nextMessageID,
		GroupID:   groupID,
		Seq:       len(s.messages[groupID]) + 1,
		SenderID:  senderID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	s.messages[groupID] = append(s.messages[groupID], msg)
	return msg, nil
}

// ListMessages implements repositories.MessageRepository.
func (s *MemStore) ListMessages(ctx context.Context, groupID int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]models.Message, len(s.messages[groupID]))
	copy(msgs, s.messages[groupID])
	return msgs, nil
}

// Upsert implements repositories.UserRepository.
func (s *MemStore) Upsert(ctx context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

// GetUsers implements repositories.UserRepository.
func (s *MemStore) GetUsers(ctx context.Context, ids []int) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var users []models.User
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func (s *MemStore) list(match func(*memGroup) bool, limit, offset int) ([]models.GroupDetail, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int, 0, len(s.groups))
	for id, g := range s.groups {
		if match(g) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	total := len(ids)

	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	details := make([]models.GroupDetail, 0, end-offset)
	for _, id := range ids[offset:end] {
		details = append(details, s.detailLocked(s.groups[id]))
	}
	return details, total, nil
}

func (s *MemStore) detailLocked(g *memGroup) models.GroupDetail {
	detail := models.GroupDetail{Group: g.group}
	for _, id := range g.members {
		user, ok := s.users[id]
		if !ok {
			user = models.User{ID: id}
		}
		detail.Users = append(detail.Users, user)
		if id == g.group.CreatorID {
			detail.Creator = user
		}
	}
	detail.BannedUsers = append(detail.BannedUsers, g.banned...)
	return detail
}

func remove(ids []int, userID int) []int {
	out := ids[:0]
	for _, id := range ids {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}
