package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/permission"
	"github.com/Ernous/BoxChat/internal/repository"
	"github.com/Ernous/BoxChat/internal/ws"
)

const defaultChannelName = "general"

type RoomStore interface {
	CreateRoomBundle(ctx context.Context, room *model.Room, channel *model.Channel, members []model.Member, roles []model.Role, links []model.MemberRoleLink) error
	GetByID(ctx context.Context, id string) (*model.Room, error)
	GetByInviteToken(ctx context.Context, token string) (*model.Room, error)
	SetInviteTokenIfEmpty(ctx context.Context, roomID, token string) (string, error)
	UpdateRoom(ctx context.Context, id, name, avatarURL string, isPublic bool) error
	DeleteRoomCascade(ctx context.Context, roomID string) error
	AddMemberWithDefaultRoles(ctx context.Context, m *model.Member) error
	RemoveMember(ctx context.Context, roomID, userID string) error
	GetMember(ctx context.Context, roomID, userID string) (*model.Member, error)
	GetMembers(ctx context.Context, roomID string) ([]model.Member, error)
	GetMemberIDs(ctx context.Context, roomID string) ([]string, error)
	ListUserRooms(ctx context.Context, userID string) ([]model.RoomWithUnread, error)
	FindDM(ctx context.Context, userID1, userID2 string) (*model.Room, error)
	ListPublicRooms(ctx context.Context, query string) ([]model.Room, error)
	CreateChannel(ctx context.Context, c *model.Channel) error
	GetChannel(ctx context.Context, id string) (*model.Channel, error)
	UpdateChannel(ctx context.Context, id, name, description, iconEmoji string) error
	DeleteChannelCascade(ctx context.Context, channelID string) error
	ListRoomChannels(ctx context.Context, roomID string) ([]model.Channel, error)
	ListAccessibleChannels(ctx context.Context, userID string) ([]model.Channel, error)
	BanMember(ctx context.Context, ban *model.RoomBan) error
	IsBanned(ctx context.Context, roomID, userID string) (bool, error)
}

type RoleStore interface {
	Create(ctx context.Context, role *model.Role) error
	GetByID(ctx context.Context, id string) (*model.Role, error)
	ListRoomRoles(ctx context.Context, roomID string) ([]model.Role, error)
	Update(ctx context.Context, id, name, mentionTag string, canByEveryone bool) error
	Delete(ctx context.Context, id string) error
	AssignToMember(ctx context.Context, l *model.MemberRoleLink) error
	RemoveFromMember(ctx context.Context, userID, roomID, roleID string) error
	AddMentionPermission(ctx context.Context, p *model.RoleMentionPermission) error
	RemoveMentionPermission(ctx context.Context, roomID, targetRoleID, sourceRoleID string) error
	ListMentionPermissions(ctx context.Context, roomID string) ([]model.RoleMentionPermission, error)
}

type FriendChecker interface {
	AreFriends(ctx context.Context, userID1, userID2 string) (bool, error)
}

// RoomService owns room, channel, membership and role lifecycle.
type RoomService struct {
	rooms     RoomStore
	roles     RoleStore
	snapshots SnapshotLoader
	friends   FriendChecker
	users     UserGetter
	publisher Publisher
}

func NewRoomService(rooms RoomStore, roles RoleStore, snapshots SnapshotLoader, friends FriendChecker, users UserGetter, publisher Publisher) *RoomService {
	return &RoomService{
		rooms:     rooms,
		roles:     roles,
		snapshots: snapshots,
		friends:   friends,
		users:     users,
		publisher: publisher,
	}
}

// newInviteToken returns 32 random bytes, URL-safe base64 without padding.
func newInviteToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("invite token entropy: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// systemRoles builds the everyone/admin roles seeded on every room.
func systemRoles(roomID string, now time.Time) []model.Role {
	return []model.Role{
		{
			ID:         uuid.New().String(),
			RoomID:     roomID,
			Name:       "Everyone",
			MentionTag: model.RoleTagEveryone,
			IsSystem:   true,
			CreatedAt:  now,
		},
		{
			ID:         uuid.New().String(),
			RoomID:     roomID,
			Name:       "Admin",
			MentionTag: model.RoleTagAdmin,
			IsSystem:   true,
			CreatedAt:  now,
		},
	}
}

// CreateRoom creates a room with its default channel, the owner membership
// and the system roles in one shot.
func (s *RoomService) CreateRoom(ctx context.Context, ownerID, name string, roomType model.RoomType, isPublic bool) (*model.Room, error) {
	defer logger.DeferLogDuration("roomService.CreateRoom", time.Now())()
	if name == "" {
		return nil, ErrEmptyContent
	}
	if roomType == "" {
		roomType = model.RoomTypeServer
	}
	if roomType == model.RoomTypeDM {
		return nil, ErrInvalidState
	}

	now := time.Now().UTC()
	room := &model.Room{
		ID:        uuid.New().String(),
		Name:      name,
		Type:      roomType,
		IsPublic:  isPublic,
		OwnerID:   ownerID,
		CreatedAt: now,
	}
	channel := &model.Channel{
		ID:        uuid.New().String(),
		RoomID:    room.ID,
		Name:      defaultChannelName,
		CreatedAt: now,
	}
	members := []model.Member{{RoomID: room.ID, UserID: ownerID, Role: model.MemberRoleOwner, JoinedAt: now}}
	roles := systemRoles(room.ID, now)

	links := make([]model.MemberRoleLink, 0, len(roles))
	for _, role := range roles {
		links = append(links, model.MemberRoleLink{
			UserID: ownerID, RoomID: room.ID, RoleID: role.ID, AssignedAt: now,
		})
	}

	if err := s.rooms.CreateRoomBundle(ctx, room, channel, members, roles, links); err != nil {
		return nil, fmt.Errorf("roomService.CreateRoom: %w", err)
	}
	return room, nil
}

// GetRoom returns the room for members; non-members see public rooms only.
func (s *RoomService) GetRoom(ctx context.Context, userID, roomID string) (*model.Room, error) {
	defer logger.DeferLogDuration("roomService.GetRoom", time.Now())()
	room, err := s.rooms.GetByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("roomService.GetRoom: %w", err)
	}
	snap, err := s.loadSnapshot(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !snap.IsMember() && !room.IsPublic {
		return nil, ErrNotFound
	}
	return room, nil
}

// ListRooms returns the caller's rooms, DM rooms carrying the peer profile.
func (s *RoomService) ListRooms(ctx context.Context, userID string) ([]model.RoomWithUnread, error) {
	defer logger.DeferLogDuration("roomService.ListRooms", time.Now())()
	rooms, err := s.rooms.ListUserRooms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("roomService.ListRooms: %w", err)
	}
	for i := range rooms {
		if rooms[i].Room.Type != model.RoomTypeDM {
			continue
		}
		memberIDs, err := s.rooms.GetMemberIDs(ctx, rooms[i].Room.ID)
		if err != nil {
			return nil, fmt.Errorf("roomService.ListRooms members: %w", err)
		}
		for _, id := range memberIDs {
			if id == userID {
				continue
			}
			peer, err := s.users.GetByID(ctx, id)
			if err == nil {
				pub := peer.ToPublic()
				rooms[i].OtherUser = &pub
			}
			break
		}
	}
	return rooms, nil
}

func (s *RoomService) ExplorePublicRooms(ctx context.Context, query string) ([]model.Room, error) {
	defer logger.DeferLogDuration("roomService.ExplorePublicRooms", time.Now())()
	rooms, err := s.rooms.ListPublicRooms(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("roomService.ExplorePublicRooms: %w", err)
	}
	return rooms, nil
}

func (s *RoomService) UpdateRoom(ctx context.Context, userID, roomID, name, avatarURL string, isPublic bool) error {
	defer logger.DeferLogDuration("roomService.UpdateRoom", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !snap.CanManageRoom() {
		return ErrPermissionDenied
	}
	if name == "" {
		return ErrEmptyContent
	}
	if err := s.rooms.UpdateRoom(ctx, roomID, name, avatarURL, isPublic); err != nil {
		return fmt.Errorf("roomService.UpdateRoom: %w", err)
	}
	return nil
}

// DeleteRoom removes the room entirely. Owner only.
func (s *RoomService) DeleteRoom(ctx context.Context, userID, roomID string) error {
	defer logger.DeferLogDuration("roomService.DeleteRoom", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !snap.CanDeleteRoom() {
		return ErrPermissionDenied
	}

	memberIDs, err := s.rooms.GetMemberIDs(ctx, roomID)
	if err != nil {
		return fmt.Errorf("roomService.DeleteRoom members: %w", err)
	}
	if err := s.rooms.DeleteRoomCascade(ctx, roomID); err != nil {
		return fmt.Errorf("roomService.DeleteRoom: %w", err)
	}

	out := ws.OutgoingMessage{Type: ws.EventRoomDeleted, Payload: ws.RoomDeletedPayload{RoomID: roomID}}
	for _, id := range memberIDs {
		s.publisher.Publish(ws.UserTopic(id), out)
	}
	return nil
}

// GenerateInvite returns the room's invite token, creating one on first
// call. Repeated calls return the same token.
func (s *RoomService) GenerateInvite(ctx context.Context, userID, roomID string) (string, error) {
	defer logger.DeferLogDuration("roomService.GenerateInvite", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, userID)
	if err != nil {
		return "", err
	}
	if !snap.CanManageRoom() {
		return "", ErrPermissionDenied
	}
	token, err := s.rooms.SetInviteTokenIfEmpty(ctx, roomID, newInviteToken())
	if errors.Is(err, repository.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("roomService.GenerateInvite: %w", err)
	}
	return token, nil
}

// JoinByInvite adds the caller to the room behind the token. Joining twice
// is a no-op, banned users are rejected.
func (s *RoomService) JoinByInvite(ctx context.Context, userID, token string) (*model.Room, error) {
	defer logger.DeferLogDuration("roomService.JoinByInvite", time.Now())()
	room, err := s.rooms.GetByInviteToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("roomService.JoinByInvite: %w", err)
	}
	if err := s.join(ctx, userID, room); err != nil {
		return nil, err
	}
	return room, nil
}

// JoinPublicRoom adds the caller to a public room directly.
func (s *RoomService) JoinPublicRoom(ctx context.Context, userID, roomID string) (*model.Room, error) {
	defer logger.DeferLogDuration("roomService.JoinPublicRoom", time.Now())()
	room, err := s.rooms.GetByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("roomService.JoinPublicRoom: %w", err)
	}
	if !room.IsPublic {
		return nil, ErrNotPublic
	}
	if err := s.join(ctx, userID, room); err != nil {
		return nil, err
	}
	return room, nil
}

func (s *RoomService) join(ctx context.Context, userID string, room *model.Room) error {
	if room.Type == model.RoomTypeDM {
		return ErrInvalidState
	}
	banned, err := s.rooms.IsBanned(ctx, room.ID, userID)
	if err != nil {
		return fmt.Errorf("roomService.join ban check: %w", err)
	}
	if banned {
		return ErrPermissionDenied
	}
	if _, err := s.rooms.GetMember(ctx, room.ID, userID); err == nil {
		return nil // already a member
	}

	member := &model.Member{
		RoomID:   room.ID,
		UserID:   userID,
		Role:     model.MemberRoleMember,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.rooms.AddMemberWithDefaultRoles(ctx, member); err != nil {
		return fmt.Errorf("roomService.join: %w", err)
	}

	username := ""
	if u, err := s.users.GetByID(ctx, userID); err == nil {
		username = u.Username
	}
	s.broadcastToMembers(ctx, room.ID, ws.OutgoingMessage{
		Type:    ws.EventMemberJoined,
		Payload: ws.MemberPayload{RoomID: room.ID, UserID: userID, Username: username},
	})
	return nil
}

// LeaveRoom removes the caller's own membership. Owners must delete or hand
// off the room instead.
func (s *RoomService) LeaveRoom(ctx context.Context, userID, roomID string) error {
	defer logger.DeferLogDuration("roomService.LeaveRoom", time.Now())()
	member, err := s.rooms.GetMember(ctx, roomID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("roomService.LeaveRoom: %w", err)
	}
	if member.Role == model.MemberRoleOwner {
		return ErrInvalidState
	}
	if err := s.rooms.RemoveMember(ctx, roomID, userID); err != nil {
		return fmt.Errorf("roomService.LeaveRoom: %w", err)
	}
	s.broadcastToMembers(ctx, roomID, ws.OutgoingMessage{
		Type:    ws.EventMemberLeft,
		Payload: ws.MemberPayload{RoomID: roomID, UserID: userID},
	})
	return nil
}

// KickMember removes another member. Admins may kick plain members, the
// owner may kick anyone but themselves.
func (s *RoomService) KickMember(ctx context.Context, actorID, roomID, targetID string) error {
	defer logger.DeferLogDuration("roomService.KickMember", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	target, err := s.rooms.GetMember(ctx, roomID, targetID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("roomService.KickMember: %w", err)
	}
	if !snap.CanKick(target.Role, targetID) {
		return ErrPermissionDenied
	}
	if err := s.rooms.RemoveMember(ctx, roomID, targetID); err != nil {
		return fmt.Errorf("roomService.KickMember: %w", err)
	}
	s.broadcastToMembers(ctx, roomID, ws.OutgoingMessage{
		Type:    ws.EventMemberLeft,
		Payload: ws.MemberPayload{RoomID: roomID, UserID: targetID},
	})
	s.publisher.Publish(ws.UserTopic(targetID), ws.OutgoingMessage{
		Type:    ws.EventMemberLeft,
		Payload: ws.MemberPayload{RoomID: roomID, UserID: targetID},
	})
	return nil
}

// BanMember kicks and bars the target from rejoining.
func (s *RoomService) BanMember(ctx context.Context, actorID, roomID, targetID, reason string) error {
	defer logger.DeferLogDuration("roomService.BanMember", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, actorID)
	if err != nil {
		return err
	}
	target, err := s.rooms.GetMember(ctx, roomID, targetID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("roomService.BanMember: %w", err)
	}
	if !snap.CanKick(target.Role, targetID) {
		return ErrPermissionDenied
	}
	ban := &model.RoomBan{
		RoomID:     roomID,
		UserID:     targetID,
		BannedByID: actorID,
		Reason:     reason,
		BannedAt:   time.Now().UTC(),
	}
	if err := s.rooms.BanMember(ctx, ban); err != nil {
		return fmt.Errorf("roomService.BanMember: %w", err)
	}
	s.broadcastToMembers(ctx, roomID, ws.OutgoingMessage{
		Type:    ws.EventMemberLeft,
		Payload: ws.MemberPayload{RoomID: roomID, UserID: targetID},
	})
	return nil
}

func (s *RoomService) ListMembers(ctx context.Context, userID, roomID string) ([]model.Member, error) {
	defer logger.DeferLogDuration("roomService.ListMembers", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !snap.IsMember() {
		return nil, ErrPermissionDenied
	}
	members, err := s.rooms.GetMembers(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("roomService.ListMembers: %w", err)
	}
	return members, nil
}

// --- channels ---

func (s *RoomService) CreateChannel(ctx context.Context, userID, roomID, name, description, iconEmoji string) (*model.Channel, error) {
	defer logger.DeferLogDuration("roomService.CreateChannel", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !snap.CanManageChannels() {
		return nil, ErrPermissionDenied
	}
	if name == "" {
		return nil, ErrEmptyContent
	}
	channel := &model.Channel{
		ID:          uuid.New().String(),
		RoomID:      roomID,
		Name:        name,
		Description: description,
		IconEmoji:   iconEmoji,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.rooms.CreateChannel(ctx, channel); err != nil {
		return nil, fmt.Errorf("roomService.CreateChannel: %w", err)
	}
	return channel, nil
}

func (s *RoomService) UpdateChannel(ctx context.Context, userID, channelID, name, description, iconEmoji string) error {
	defer logger.DeferLogDuration("roomService.UpdateChannel", time.Now())()
	channel, snap, err := s.channelSnapshot(ctx, userID, channelID)
	if err != nil {
		return err
	}
	if !snap.CanManageChannels() {
		return ErrPermissionDenied
	}
	if name == "" {
		name = channel.Name
	}
	if err := s.rooms.UpdateChannel(ctx, channelID, name, description, iconEmoji); err != nil {
		return fmt.Errorf("roomService.UpdateChannel: %w", err)
	}
	return nil
}

// DeleteChannel removes a channel and its history. The room's last channel
// cannot be deleted.
func (s *RoomService) DeleteChannel(ctx context.Context, userID, channelID string) error {
	defer logger.DeferLogDuration("roomService.DeleteChannel", time.Now())()
	channel, snap, err := s.channelSnapshot(ctx, userID, channelID)
	if err != nil {
		return err
	}
	if !snap.CanManageChannels() {
		return ErrPermissionDenied
	}
	channels, err := s.rooms.ListRoomChannels(ctx, channel.RoomID)
	if err != nil {
		return fmt.Errorf("roomService.DeleteChannel list: %w", err)
	}
	if len(channels) <= 1 {
		return ErrInvalidState
	}
	if err := s.rooms.DeleteChannelCascade(ctx, channelID); err != nil {
		return fmt.Errorf("roomService.DeleteChannel: %w", err)
	}
	s.broadcastToMembers(ctx, channel.RoomID, ws.OutgoingMessage{
		Type:    ws.EventChannelDeleted,
		Payload: ws.ChannelDeletedPayload{RoomID: channel.RoomID, ChannelID: channelID},
	})
	return nil
}

func (s *RoomService) ListChannels(ctx context.Context, userID, roomID string) ([]model.Channel, error) {
	defer logger.DeferLogDuration("roomService.ListChannels", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !snap.IsMember() {
		return nil, ErrPermissionDenied
	}
	channels, err := s.rooms.ListRoomChannels(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("roomService.ListChannels: %w", err)
	}
	return channels, nil
}

// ListAccessibleChannels lists every channel the user may post to, across
// all their rooms. Used by the forward picker.
func (s *RoomService) ListAccessibleChannels(ctx context.Context, userID string) ([]model.Channel, error) {
	defer logger.DeferLogDuration("roomService.ListAccessibleChannels", time.Now())()
	channels, err := s.rooms.ListAccessibleChannels(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("roomService.ListAccessibleChannels: %w", err)
	}
	return channels, nil
}

// CanAccessChannel reports whether the user is an active member of the
// channel's room. Used by the socket join handshake.
func (s *RoomService) CanAccessChannel(ctx context.Context, userID, channelID string) (bool, error) {
	_, snap, err := s.channelSnapshot(ctx, userID, channelID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return snap.IsMember(), nil
}

// --- roles ---

func (s *RoomService) CreateRole(ctx context.Context, userID, roomID, name, mentionTag string, canByEveryone bool) (*model.Role, error) {
	defer logger.DeferLogDuration("roomService.CreateRole", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !snap.CanManageRoles() {
		return nil, ErrPermissionDenied
	}
	tag := permission.NormalizeTag(mentionTag)
	if name == "" || tag == "" {
		return nil, ErrEmptyContent
	}
	role := &model.Role{
		ID:                       uuid.New().String(),
		RoomID:                   roomID,
		Name:                     name,
		MentionTag:               tag,
		CanBeMentionedByEveryone: canByEveryone,
		CreatedAt:                time.Now().UTC(),
	}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("roomService.CreateRole: %w", err)
	}
	return role, nil
}

func (s *RoomService) UpdateRole(ctx context.Context, userID, roleID, name, mentionTag string, canByEveryone bool) error {
	defer logger.DeferLogDuration("roomService.UpdateRole", time.Now())()
	role, snap, err := s.roleSnapshot(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if !snap.CanManageRoles() {
		return ErrPermissionDenied
	}
	if role.IsSystem {
		return ErrInvalidState
	}
	tag := permission.NormalizeTag(mentionTag)
	if name == "" || tag == "" {
		return ErrEmptyContent
	}
	if err := s.roles.Update(ctx, roleID, name, tag, canByEveryone); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return ErrConflict
		}
		return fmt.Errorf("roomService.UpdateRole: %w", err)
	}
	return nil
}

func (s *RoomService) DeleteRole(ctx context.Context, userID, roleID string) error {
	defer logger.DeferLogDuration("roomService.DeleteRole", time.Now())()
	role, snap, err := s.roleSnapshot(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if !snap.CanManageRoles() {
		return ErrPermissionDenied
	}
	if role.IsSystem {
		return ErrInvalidState
	}
	if err := s.roles.Delete(ctx, roleID); err != nil {
		return fmt.Errorf("roomService.DeleteRole: %w", err)
	}
	return nil
}

func (s *RoomService) ListRoles(ctx context.Context, userID, roomID string) ([]model.Role, []model.RoleMentionPermission, error) {
	defer logger.DeferLogDuration("roomService.ListRoles", time.Now())()
	snap, err := s.loadSnapshot(ctx, roomID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !snap.IsMember() {
		return nil, nil, ErrPermissionDenied
	}
	roles, err := s.roles.ListRoomRoles(ctx, roomID)
	if err != nil {
		return nil, nil, fmt.Errorf("roomService.ListRoles: %w", err)
	}
	perms, err := s.roles.ListMentionPermissions(ctx, roomID)
	if err != nil {
		return nil, nil, fmt.Errorf("roomService.ListRoles perms: %w", err)
	}
	return roles, perms, nil
}

func (s *RoomService) AssignRole(ctx context.Context, actorID, roleID, targetID string) error {
	defer logger.DeferLogDuration("roomService.AssignRole", time.Now())()
	role, snap, err := s.roleSnapshot(ctx, actorID, roleID)
	if err != nil {
		return err
	}
	if !snap.CanManageRoles() {
		return ErrPermissionDenied
	}
	if _, err := s.rooms.GetMember(ctx, role.RoomID, targetID); err != nil {
		return ErrNotFound
	}
	link := &model.MemberRoleLink{
		UserID: targetID, RoomID: role.RoomID, RoleID: roleID, AssignedAt: time.Now().UTC(),
	}
	if err := s.roles.AssignToMember(ctx, link); err != nil {
		return fmt.Errorf("roomService.AssignRole: %w", err)
	}
	return nil
}

func (s *RoomService) UnassignRole(ctx context.Context, actorID, roleID, targetID string) error {
	defer logger.DeferLogDuration("roomService.UnassignRole", time.Now())()
	role, snap, err := s.roleSnapshot(ctx, actorID, roleID)
	if err != nil {
		return err
	}
	if !snap.CanManageRoles() {
		return ErrPermissionDenied
	}
	if role.IsSystem {
		return ErrInvalidState
	}
	if err := s.roles.RemoveFromMember(ctx, targetID, role.RoomID, roleID); err != nil {
		return fmt.Errorf("roomService.UnassignRole: %w", err)
	}
	return nil
}

// AddMentionPermission grants holders of sourceRoleID the right to mention
// targetRoleID.
func (s *RoomService) AddMentionPermission(ctx context.Context, actorID, targetRoleID, sourceRoleID string) error {
	defer logger.DeferLogDuration("roomService.AddMentionPermission", time.Now())()
	target, snap, err := s.roleSnapshot(ctx, actorID, targetRoleID)
	if err != nil {
		return err
	}
	if !snap.CanManageRoles() {
		return ErrPermissionDenied
	}
	source, err := s.roles.GetByID(ctx, sourceRoleID)
	if err != nil || source.RoomID != target.RoomID {
		return ErrNotFound
	}
	p := &model.RoleMentionPermission{
		RoomID:       target.RoomID,
		TargetRoleID: targetRoleID,
		SourceRoleID: sourceRoleID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.roles.AddMentionPermission(ctx, p); err != nil {
		return fmt.Errorf("roomService.AddMentionPermission: %w", err)
	}
	return nil
}

func (s *RoomService) RemoveMentionPermission(ctx context.Context, actorID, targetRoleID, sourceRoleID string) error {
	defer logger.DeferLogDuration("roomService.RemoveMentionPermission", time.Now())()
	target, snap, err := s.roleSnapshot(ctx, actorID, targetRoleID)
	if err != nil {
		return err
	}
	if !snap.CanManageRoles() {
		return ErrPermissionDenied
	}
	if err := s.roles.RemoveMentionPermission(ctx, target.RoomID, targetRoleID, sourceRoleID); err != nil {
		return fmt.Errorf("roomService.RemoveMentionPermission: %w", err)
	}
	return nil
}

// --- direct messages ---

// OpenDM finds or creates the DM room between the caller and a friend.
// Returns the room and whether it was created by this call.
func (s *RoomService) OpenDM(ctx context.Context, userID, peerID string) (*model.Room, bool, error) {
	defer logger.DeferLogDuration("roomService.OpenDM", time.Now())()
	if userID == peerID {
		return nil, false, ErrInvalidState
	}
	if _, err := s.users.GetByID(ctx, peerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, fmt.Errorf("roomService.OpenDM peer: %w", err)
	}
	friends, err := s.friends.AreFriends(ctx, userID, peerID)
	if err != nil {
		return nil, false, fmt.Errorf("roomService.OpenDM friends: %w", err)
	}
	if !friends {
		return nil, false, ErrNotFriends
	}

	if room, err := s.rooms.FindDM(ctx, userID, peerID); err == nil {
		// One side may have hidden the DM by leaving; reopening restores
		// the missing memberships instead of creating a duplicate room.
		if err := s.rejoinDM(ctx, room, userID, peerID); err != nil {
			return nil, false, err
		}
		return room, false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("roomService.OpenDM find: %w", err)
	}

	now := time.Now().UTC()
	room := &model.Room{
		ID:        uuid.New().String(),
		Type:      model.RoomTypeDM,
		DMKey:     model.DMPairKey(userID, peerID),
		CreatedAt: now,
	}
	channel := &model.Channel{
		ID:        uuid.New().String(),
		RoomID:    room.ID,
		Name:      defaultChannelName,
		CreatedAt: now,
	}
	// Both sides get admin standing in a DM, there is no owner.
	members := []model.Member{
		{RoomID: room.ID, UserID: userID, Role: model.MemberRoleAdmin, JoinedAt: now},
		{RoomID: room.ID, UserID: peerID, Role: model.MemberRoleAdmin, JoinedAt: now},
	}
	roles := systemRoles(room.ID, now)
	links := make([]model.MemberRoleLink, 0, len(members)*len(roles))
	for _, m := range members {
		for _, role := range roles {
			links = append(links, model.MemberRoleLink{
				UserID: m.UserID, RoomID: room.ID, RoleID: role.ID, AssignedAt: now,
			})
		}
	}
	if err := s.rooms.CreateRoomBundle(ctx, room, channel, members, roles, links); err != nil {
		return nil, false, fmt.Errorf("roomService.OpenDM create: %w", err)
	}

	// The peer learns about the new DM over their user topic; the caller
	// gets it in the HTTP response.
	if me, err := s.users.GetByID(ctx, userID); err == nil {
		mePub := me.ToPublic()
		s.publisher.Publish(ws.UserTopic(peerID), ws.OutgoingMessage{
			Type:    ws.EventNewDM,
			Payload: ws.NewDMPayload{Room: *room, Peer: mePub},
		})
	}
	return room, true, nil
}

// rejoinDM restores missing memberships in an existing DM room. The peer
// gets a new_dm_created event when their side comes back, the room had
// disappeared from their list.
func (s *RoomService) rejoinDM(ctx context.Context, room *model.Room, userID, peerID string) error {
	now := time.Now().UTC()
	for _, id := range []string{userID, peerID} {
		_, err := s.rooms.GetMember(ctx, room.ID, id)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("roomService.rejoinDM member: %w", err)
		}
		m := &model.Member{RoomID: room.ID, UserID: id, Role: model.MemberRoleAdmin, JoinedAt: now}
		if err := s.rooms.AddMemberWithDefaultRoles(ctx, m); err != nil {
			return fmt.Errorf("roomService.rejoinDM add: %w", err)
		}
		if id == peerID {
			if me, err := s.users.GetByID(ctx, userID); err == nil {
				mePub := me.ToPublic()
				s.publisher.Publish(ws.UserTopic(peerID), ws.OutgoingMessage{
					Type:    ws.EventNewDM,
					Payload: ws.NewDMPayload{Room: *room, Peer: mePub},
				})
			}
		}
	}
	return nil
}

// --- helpers ---

func (s *RoomService) loadSnapshot(ctx context.Context, roomID, userID string) (*permission.Snapshot, error) {
	snap, err := s.snapshots.Load(ctx, roomID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("roomService.loadSnapshot: %w", err)
	}
	return snap, nil
}

func (s *RoomService) channelSnapshot(ctx context.Context, userID, channelID string) (*model.Channel, *permission.Snapshot, error) {
	channel, err := s.rooms.GetChannel(ctx, channelID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("roomService.channelSnapshot: %w", err)
	}
	snap, err := s.loadSnapshot(ctx, channel.RoomID, userID)
	if err != nil {
		return nil, nil, err
	}
	return channel, snap, nil
}

func (s *RoomService) roleSnapshot(ctx context.Context, userID, roleID string) (*model.Role, *permission.Snapshot, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("roomService.roleSnapshot: %w", err)
	}
	snap, err := s.loadSnapshot(ctx, role.RoomID, userID)
	if err != nil {
		return nil, nil, err
	}
	return role, snap, nil
}

func (s *RoomService) broadcastToMembers(ctx context.Context, roomID string, msg ws.OutgoingMessage) {
	memberIDs, err := s.rooms.GetMemberIDs(ctx, roomID)
	if err != nil {
		logger.Errorf("broadcast members room=%s: %v", roomID, err)
		return
	}
	for _, id := range memberIDs {
		s.publisher.Publish(ws.UserTopic(id), msg)
	}
}
