package chat

import (
	"context"
	"errors"
	"strings"

	"group-service/internal/models"
	"group-service/internal/registry"
	"group-service/internal/repositories"
)

// ErrEmptyContent rejects blank messages before they reach persistence.
var ErrEmptyContent = errors.New("message content must not be empty")

// Broadcaster fans an event out to every connection of a room.
type Broadcaster interface {
	Broadcast(groupID int, event models.RoomEvent)
}

// Service is the realtime chat fan-out: it persists messages with a
// per-group monotonic sequence and delivers them to the room. Persistence
// always happens before fan-out, so a reconnecting client can recover any
// missed message from history.
type Service struct {
	registry *registry.Registry
	messages repositories.MessageRepository
	users    repositories.UserRepository
	rooms    Broadcaster
}

// NewService constructs a chat Service.
func NewService(reg *registry.Registry, messages repositories.MessageRepository, users repositories.UserRepository, rooms Broadcaster) *Service {
	return &Service{registry: reg, messages: messages, users: users, rooms: rooms}
}

// Send persists one message and broadcasts it to the group's room,
// including the sender. It runs under the group's mutation lock: sequence
// assignment, membership re-check and fan-out cannot interleave with joins,
// kicks, bans or deletion of the same group, which is what makes delivery
// order equal server receipt order for every observer.
func (s *Service) Send(ctx context.Context, groupID, senderID int, content string) (models.MessageView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return models.MessageView{}, ErrEmptyContent
	}

	unlock := s.registry.GroupLock(groupID)
	defer unlock()

	if err := s.registry.CanSend(ctx, groupID, senderID); err != nil {
		return models.MessageView{}, err
	}

	msg, err := s.messages.CreateMessage(ctx, groupID, senderID, content)
	if err != nil {
		return models.MessageView{}, err
	}

	view := models.MessageView{Message: msg, SenderUsername: s.username(ctx, senderID)}
	if s.rooms != nil {
		s.rooms.Broadcast(groupID, models.RoomEvent{Event: models.RoomEventMessage, Message: &view})
	}
	return view, nil
}

// History returns the group's messages in sequence order. Each view carries
// read-time sender state so clients can annotate departed or banned
// senders; the flags are joined against live group state, never stored.
func (s *Service) History(ctx context.Context, groupID, requesterID int) ([]models.MessageView, error) {
	if err := s.registry.CanReadHistory(ctx, groupID, requesterID); err != nil {
		return nil, err
	}

	msgs, err := s.messages.ListMessages(ctx, groupID)
	if err != nil {
		return nil, err
	}

	group, err := s.registry.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}

	senderIDs := make([]int, 0, len(msgs))
	seen := map[int]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	usernameByID := map[int]string{}
	if len(senderIDs) > 0 {
		users, err := s.users.GetUsers(ctx, senderIDs)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			usernameByID[u.ID] = u.Username
		}
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		banned := group.IsBanned(m.SenderID)
		views = append(views, models.MessageView{
			Message:        m,
			SenderUsername: usernameByID[m.SenderID],
			SenderBanned:   banned,
			SenderLeft:     !banned && !group.HasMember(m.SenderID),
		})
	}
	return views, nil
}

func (s *Service) username(ctx context.Context, userID int) string {
	users, err := s.users.GetUsers(ctx, []int{userID})
	if err != nil || len(users) == 0 {
		return ""
	}
	return users[0].Username
}
