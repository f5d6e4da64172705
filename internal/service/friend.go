package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/repository"
)

type FriendStore interface {
	CreateRequest(ctx context.Context, req *model.FriendRequest) error
	GetRequest(ctx context.Context, id string) (*model.FriendRequest, error)
	GetPendingBetween(ctx context.Context, userID1, userID2 string) (*model.FriendRequest, error)
	ListIncoming(ctx context.Context, userID string) ([]model.FriendRequest, error)
	ListOutgoing(ctx context.Context, userID string) ([]model.FriendRequest, error)
	AcceptRequest(ctx context.Context, requestID string) (*model.FriendRequest, error)
	DeclineRequest(ctx context.Context, requestID string) error
	AreFriends(ctx context.Context, userID1, userID2 string) (bool, error)
	ListFriends(ctx context.Context, userID string) ([]model.UserPublic, error)
	RemoveFriendship(ctx context.Context, userID1, userID2 string) error
}

// FriendService runs the request/accept friendship lifecycle that gates
// direct messages.
type FriendService struct {
	friends FriendStore
	users   UserGetter
}

func NewFriendService(friends FriendStore, users UserGetter) *FriendService {
	return &FriendService{friends: friends, users: users}
}

// SendRequest creates a pending request. An existing friendship or pending
// request in either direction is a conflict.
func (s *FriendService) SendRequest(ctx context.Context, fromID, toUsername string) (*model.FriendRequest, error) {
	defer logger.DeferLogDuration("friendService.SendRequest", time.Now())()

	target, err := s.users.GetByUsername(ctx, toUsername)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("friendService.SendRequest user: %w", err)
	}
	if target.ID == fromID {
		return nil, ErrInvalidState
	}

	already, err := s.friends.AreFriends(ctx, fromID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("friendService.SendRequest friends: %w", err)
	}
	if already {
		return nil, ErrConflict
	}
	if _, err := s.friends.GetPendingBetween(ctx, fromID, target.ID); err == nil {
		return nil, ErrConflict
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("friendService.SendRequest pending: %w", err)
	}

	req := &model.FriendRequest{
		ID:         uuid.New().String(),
		FromUserID: fromID,
		ToUserID:   target.ID,
		Status:     model.FriendRequestPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.friends.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("friendService.SendRequest: %w", err)
	}
	return req, nil
}

// Accept resolves a pending request. Only the recipient may accept.
func (s *FriendService) Accept(ctx context.Context, userID, requestID string) (*model.FriendRequest, error) {
	defer logger.DeferLogDuration("friendService.Accept", time.Now())()

	req, err := s.friends.GetRequest(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("friendService.Accept get: %w", err)
	}
	if req.ToUserID != userID {
		return nil, ErrPermissionDenied
	}
	if req.Status != model.FriendRequestPending {
		return nil, ErrInvalidState
	}

	accepted, err := s.friends.AcceptRequest(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidState // lost the race with another responder
	}
	if err != nil {
		return nil, fmt.Errorf("friendService.Accept: %w", err)
	}
	return accepted, nil
}

// Decline resolves a pending request negatively. Only the recipient may
// decline.
func (s *FriendService) Decline(ctx context.Context, userID, requestID string) error {
	defer logger.DeferLogDuration("friendService.Decline", time.Now())()

	req, err := s.friends.GetRequest(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("friendService.Decline get: %w", err)
	}
	if req.ToUserID != userID {
		return ErrPermissionDenied
	}
	if err := s.friends.DeclineRequest(ctx, requestID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidState
		}
		return fmt.Errorf("friendService.Decline: %w", err)
	}
	return nil
}

func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]model.UserPublic, error) {
	defer logger.DeferLogDuration("friendService.ListFriends", time.Now())()
	friends, err := s.friends.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("friendService.ListFriends: %w", err)
	}
	return friends, nil
}

func (s *FriendService) ListRequests(ctx context.Context, userID string) (incoming, outgoing []model.FriendRequest, err error) {
	defer logger.DeferLogDuration("friendService.ListRequests", time.Now())()
	incoming, err = s.friends.ListIncoming(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("friendService.ListRequests incoming: %w", err)
	}
	outgoing, err = s.friends.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("friendService.ListRequests outgoing: %w", err)
	}
	return incoming, outgoing, nil
}

// Unfriend removes the friendship. Existing DM history stays.
func (s *FriendService) Unfriend(ctx context.Context, userID, friendID string) error {
	defer logger.DeferLogDuration("friendService.Unfriend", time.Now())()
	if err := s.friends.RemoveFriendship(ctx, userID, friendID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("friendService.Unfriend: %w", err)
	}
	return nil
}
