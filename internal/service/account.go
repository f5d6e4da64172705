package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/repository"
	"github.com/Ernous/BoxChat/internal/ws"
)

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Search(ctx context.Context, query string, asSuperuser bool) ([]model.User, error)
	UpdateProfile(ctx context.Context, id, bio, avatarURL string, searchable, listable bool) error
	SetPresence(ctx context.Context, id string, status model.PresenceStatus, lastSeen time.Time) error
	DeleteAccountCascade(ctx context.Context, userID string) error
}

type FriendIDLister interface {
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)
}

// AccountService covers profiles, presence and the account deletion
// cascade.
type AccountService struct {
	users     UserStore
	friends   FriendIDLister
	publisher Publisher
}

func NewAccountService(users UserStore, friends FriendIDLister, publisher Publisher) *AccountService {
	return &AccountService{users: users, friends: friends, publisher: publisher}
}

var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// ProvisionUser creates a user record for the auth service. Usernames are
// lowercased before validation; the unique index on LOWER(username) makes the
// conflict check race-free.
func (s *AccountService) ProvisionUser(ctx context.Context, username string) (*model.User, error) {
	defer logger.DeferLogDuration("accountService.ProvisionUser", time.Now())()
	username = strings.ToLower(strings.TrimSpace(username))
	if !usernamePattern.MatchString(username) {
		return nil, ErrInvalidState
	}
	now := time.Now()
	u := &model.User{
		ID:                uuid.NewString(),
		Username:          username,
		PrivacySearchable: true,
		PrivacyListable:   true,
		Presence:          model.PresenceOffline,
		LastSeenAt:        now,
		CreatedAt:         now,
	}
	err := s.users.Create(ctx, u)
	if errors.Is(err, repository.ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("accountService.ProvisionUser: %w", err)
	}
	return u, nil
}

func (s *AccountService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	defer logger.DeferLogDuration("accountService.GetProfile", time.Now())()
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accountService.GetProfile: %w", err)
	}
	return u, nil
}

func (s *AccountService) GetPublicProfile(ctx context.Context, username string) (*model.UserPublic, error) {
	defer logger.DeferLogDuration("accountService.GetPublicProfile", time.Now())()
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("accountService.GetPublicProfile: %w", err)
	}
	pub := u.ToPublic()
	return &pub, nil
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID, bio, avatarURL string, searchable, listable bool) error {
	defer logger.DeferLogDuration("accountService.UpdateProfile", time.Now())()
	if err := s.users.UpdateProfile(ctx, userID, bio, avatarURL, searchable, listable); err != nil {
		return fmt.Errorf("accountService.UpdateProfile: %w", err)
	}
	return nil
}

// SearchUsers honors the per-user privacy flags unless the caller is a
// superuser.
func (s *AccountService) SearchUsers(ctx context.Context, callerID, query string) ([]model.UserPublic, error) {
	defer logger.DeferLogDuration("accountService.SearchUsers", time.Now())()
	asSuperuser := false
	if caller, err := s.users.GetByID(ctx, callerID); err == nil {
		asSuperuser = caller.IsSuperuser
	}
	users, err := s.users.Search(ctx, query, asSuperuser)
	if err != nil {
		return nil, fmt.Errorf("accountService.SearchUsers: %w", err)
	}
	out := make([]model.UserPublic, 0, len(users))
	for i := range users {
		out = append(out, users[i].ToPublic())
	}
	return out, nil
}

// DeleteAccount removes the user and all their data, authored messages
// included, in a single transaction.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	defer logger.DeferLogDuration("accountService.DeleteAccount", time.Now())()

	friendIDs, err := s.friends.ListFriendIDs(ctx, userID)
	if err != nil {
		logger.Errorf("delete account friends user=%s: %v", userID, err)
		friendIDs = nil
	}
	if err := s.users.DeleteAccountCascade(ctx, userID); err != nil {
		return fmt.Errorf("accountService.DeleteAccount: %w", err)
	}

	out := ws.OutgoingMessage{
		Type:    ws.EventUserStatus,
		Payload: ws.UserStatusPayload{UserID: userID, Status: model.PresenceOffline},
	}
	for _, id := range friendIDs {
		s.publisher.Publish(ws.UserTopic(id), out)
	}
	return nil
}

// SetConnected marks the user online and tells their friends. Called on the
// first open socket of a user.
func (s *AccountService) SetConnected(ctx context.Context, userID string) {
	s.setPresence(ctx, userID, model.PresenceOnline)
}

// SetDisconnected marks the user offline when their last socket closes.
func (s *AccountService) SetDisconnected(ctx context.Context, userID string) {
	s.setPresence(ctx, userID, model.PresenceOffline)
}

func (s *AccountService) setPresence(ctx context.Context, userID string, status model.PresenceStatus) {
	defer logger.DeferLogDuration("accountService.setPresence", time.Now())()

	// Users who chose to appear hidden keep that choice across reconnects.
	if u, err := s.users.GetByID(ctx, userID); err == nil && u.Presence == model.PresenceHidden {
		return
	}
	if err := s.users.SetPresence(ctx, userID, status, time.Now().UTC()); err != nil {
		logger.Errorf("set presence user=%s: %v", userID, err)
		return
	}

	friendIDs, err := s.friends.ListFriendIDs(ctx, userID)
	if err != nil {
		logger.Errorf("presence friends user=%s: %v", userID, err)
		return
	}
	out := ws.OutgoingMessage{
		Type:    ws.EventUserStatus,
		Payload: ws.UserStatusPayload{UserID: userID, Status: status},
	}
	for _, id := range friendIDs {
		s.publisher.Publish(ws.UserTopic(id), out)
	}
}

// SetPresenceMode lets a user pick their visible presence, including hidden.
func (s *AccountService) SetPresenceMode(ctx context.Context, userID string, status model.PresenceStatus) error {
	defer logger.DeferLogDuration("accountService.SetPresenceMode", time.Now())()
	switch status {
	case model.PresenceOnline, model.PresenceOffline, model.PresenceAway, model.PresenceHidden:
	default:
		return ErrInvalidState
	}
	if err := s.users.SetPresence(ctx, userID, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("accountService.SetPresenceMode: %w", err)
	}
	return nil
}
