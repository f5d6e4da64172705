package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/model"
)

const roomCols = `id, COALESCE(name,''), type, is_public, COALESCE(owner_id,''), COALESCE(avatar_url,''), COALESCE(invite_token,''), COALESCE(dm_key,''), created_at`

type RoomRepository struct {
	pool *pgxpool.Pool
}

func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

func scanRoom(s interface{ Scan(dest ...any) error }, rm *model.Room) error {
	return s.Scan(&rm.ID, &rm.Name, &rm.Type, &rm.IsPublic, &rm.OwnerID, &rm.AvatarURL, &rm.InviteToken, &rm.DMKey, &rm.CreatedAt)
}

// CreateRoomBundle creates a room with its default channel, initial members,
// the seeded everyone/admin roles and the members' role links, all in one
// transaction. Partial creation is never observable.
func (r *RoomRepository) CreateRoomBundle(ctx context.Context, room *model.Room, channel *model.Channel, members []model.Member, roles []model.Role, links []model.MemberRoleLink) error {
	defer logger.DeferLogDuration("room.CreateRoomBundle", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("roomRepo.CreateRoomBundle begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO rooms (id, name, type, is_public, owner_id, avatar_url, invite_token, dm_key, created_at)
		 VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,''), NULLIF($8,''), $9)`,
		room.ID, room.Name, room.Type, room.IsPublic, room.OwnerID, room.AvatarURL, room.InviteToken, room.DMKey, room.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.CreateRoomBundle room: %w", err)
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO channels (id, room_id, name, description, icon_emoji, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		channel.ID, channel.RoomID, channel.Name, channel.Description, channel.IconEmoji, channel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.CreateRoomBundle channel: %w", err)
	}
	for _, m := range members {
		_, err = tx.Exec(ctx,
			`INSERT INTO members (room_id, user_id, role, joined_at) VALUES ($1, $2, $3, $4)`,
			m.RoomID, m.UserID, m.Role, m.JoinedAt,
		)
		if err != nil {
			return fmt.Errorf("roomRepo.CreateRoomBundle member: %w", err)
		}
	}
	for _, role := range roles {
		_, err = tx.Exec(ctx,
			`INSERT INTO roles (id, room_id, name, mention_tag, is_system, can_be_mentioned_by_everyone, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			role.ID, role.RoomID, role.Name, role.MentionTag, role.IsSystem, role.CanBeMentionedByEveryone, role.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("roomRepo.CreateRoomBundle role: %w", err)
		}
	}
	for _, l := range links {
		_, err = tx.Exec(ctx,
			`INSERT INTO member_roles (user_id, room_id, role_id, assigned_at) VALUES ($1, $2, $3, $4)`,
			l.UserID, l.RoomID, l.RoleID, l.AssignedAt,
		)
		if err != nil {
			return fmt.Errorf("roomRepo.CreateRoomBundle link: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("roomRepo.CreateRoomBundle commit: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetByID(ctx context.Context, id string) (*model.Room, error) {
	defer logger.DeferLogDuration("room.GetByID", time.Now())()
	rm := &model.Room{}
	row := r.pool.QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = $1`, id)
	if err := scanRoom(row, rm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("roomRepo.GetByID: %w", err)
	}
	return rm, nil
}

func (r *RoomRepository) GetByInviteToken(ctx context.Context, token string) (*model.Room, error) {
	defer logger.DeferLogDuration("room.GetByInviteToken", time.Now())()
	rm := &model.Room{}
	row := r.pool.QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE invite_token = $1`, token)
	if err := scanRoom(row, rm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("roomRepo.GetByInviteToken: %w", err)
	}
	return rm, nil
}

// SetInviteTokenIfEmpty stores token only when the room has none yet and
// returns the token now on the room (the existing one on a lost race).
// This is what makes generateInvite idempotent.
func (r *RoomRepository) SetInviteTokenIfEmpty(ctx context.Context, roomID, token string) (string, error) {
	defer logger.DeferLogDuration("room.SetInviteTokenIfEmpty", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE rooms SET invite_token = $1 WHERE id = $2 AND invite_token IS NULL`,
		token, roomID,
	)
	if isUniqueViolation(err) {
		return "", ErrConflict
	}
	if err != nil {
		return "", fmt.Errorf("roomRepo.SetInviteTokenIfEmpty: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return token, nil
	}
	var existing string
	err = r.pool.QueryRow(ctx, `SELECT COALESCE(invite_token,'') FROM rooms WHERE id = $1`, roomID).Scan(&existing)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("roomRepo.SetInviteTokenIfEmpty read: %w", err)
	}
	return existing, nil
}

func (r *RoomRepository) UpdateRoom(ctx context.Context, id, name, avatarURL string, isPublic bool) error {
	defer logger.DeferLogDuration("room.UpdateRoom", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE rooms SET name = $1, avatar_url = NULLIF($2,''), is_public = $3 WHERE id = $4`,
		name, avatarURL, isPublic, id,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.UpdateRoom: %w", err)
	}
	return nil
}

// DeleteRoomCascade removes a room and all dependent rows in one transaction,
// children first, so correctness does not depend on the storage engine's
// foreign-key cascade support.
func (r *RoomRepository) DeleteRoomCascade(ctx context.Context, roomID string) error {
	defer logger.DeferLogDuration("room.DeleteRoomCascade", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("roomRepo.DeleteRoomCascade begin: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []struct {
		name string
		sql  string
	}{
		{"reactions", `DELETE FROM message_reactions WHERE message_id IN (SELECT m.id FROM messages m JOIN channels c ON c.id = m.channel_id WHERE c.room_id = $1)`},
		{"read_markers", `DELETE FROM read_messages WHERE channel_id IN (SELECT id FROM channels WHERE room_id = $1)`},
		{"messages", `DELETE FROM messages WHERE channel_id IN (SELECT id FROM channels WHERE room_id = $1)`},
		{"channels", `DELETE FROM channels WHERE room_id = $1`},
		{"mention_permissions", `DELETE FROM role_mention_permissions WHERE room_id = $1`},
		{"member_roles", `DELETE FROM member_roles WHERE room_id = $1`},
		{"roles", `DELETE FROM roles WHERE room_id = $1`},
		{"members", `DELETE FROM members WHERE room_id = $1`},
		{"bans", `DELETE FROM room_bans WHERE room_id = $1`},
		{"room", `DELETE FROM rooms WHERE id = $1`},
	}
	for _, st := range steps {
		if _, err := tx.Exec(ctx, st.sql, roomID); err != nil {
			return fmt.Errorf("roomRepo.DeleteRoomCascade %s: %w", st.name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("roomRepo.DeleteRoomCascade commit: %w", err)
	}
	return nil
}

// AddMemberWithDefaultRoles inserts the membership and links the seeded
// everyone role (plus admin for owner/admin members) in one transaction.
func (r *RoomRepository) AddMemberWithDefaultRoles(ctx context.Context, m *model.Member) error {
	defer logger.DeferLogDuration("room.AddMemberWithDefaultRoles", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("roomRepo.AddMemberWithDefaultRoles begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO members (room_id, user_id, role, joined_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		m.RoomID, m.UserID, m.Role, m.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.AddMemberWithDefaultRoles member: %w", err)
	}

	tags := []string{model.RoleTagEveryone}
	if m.Role == model.MemberRoleOwner || m.Role == model.MemberRoleAdmin {
		tags = append(tags, model.RoleTagAdmin)
	}
	for _, tag := range tags {
		_, err = tx.Exec(ctx,
			`INSERT INTO member_roles (user_id, room_id, role_id, assigned_at)
			 SELECT $1, $2, id, $3 FROM roles WHERE room_id = $2 AND mention_tag = $4
			 ON CONFLICT DO NOTHING`,
			m.UserID, m.RoomID, m.JoinedAt, tag,
		)
		if err != nil {
			return fmt.Errorf("roomRepo.AddMemberWithDefaultRoles link %s: %w", tag, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("roomRepo.AddMemberWithDefaultRoles commit: %w", err)
	}
	return nil
}

// RemoveMember deletes the membership and the user's role links in the room.
func (r *RoomRepository) RemoveMember(ctx context.Context, roomID, userID string) error {
	defer logger.DeferLogDuration("room.RemoveMember", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("roomRepo.RemoveMember begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM member_roles WHERE room_id = $1 AND user_id = $2`, roomID, userID); err != nil {
		return fmt.Errorf("roomRepo.RemoveMember links: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM members WHERE room_id = $1 AND user_id = $2`, roomID, userID); err != nil {
		return fmt.Errorf("roomRepo.RemoveMember member: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("roomRepo.RemoveMember commit: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetMember(ctx context.Context, roomID, userID string) (*model.Member, error) {
	defer logger.DeferLogDuration("room.GetMember", time.Now())()
	m := &model.Member{}
	err := r.pool.QueryRow(ctx,
		`SELECT room_id, user_id, role, joined_at FROM members WHERE room_id = $1 AND user_id = $2`,
		roomID, userID,
	).Scan(&m.RoomID, &m.UserID, &m.Role, &m.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetMember: %w", err)
	}
	return m, nil
}

func (r *RoomRepository) GetMembers(ctx context.Context, roomID string) ([]model.Member, error) {
	defer logger.DeferLogDuration("room.GetMembers", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT room_id, user_id, role, joined_at FROM members WHERE room_id = $1 ORDER BY joined_at`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetMembers query: %w", err)
	}
	defer rows.Close()

	members := make([]model.Member, 0, 8)
	for rows.Next() {
		var m model.Member
		if err := rows.Scan(&m.RoomID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("roomRepo.GetMembers scan: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.GetMembers rows: %w", err)
	}
	return members, nil
}

func (r *RoomRepository) GetMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	defer logger.DeferLogDuration("room.GetMemberIDs", time.Now())()
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM members WHERE room_id = $1`, roomID)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetMemberIDs query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("roomRepo.GetMemberIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.GetMemberIDs rows: %w", err)
	}
	return ids, nil
}

// ListUserRooms returns all rooms the user belongs to together with their
// coarse role, newest rooms first.
func (r *RoomRepository) ListUserRooms(ctx context.Context, userID string) ([]model.RoomWithUnread, error) {
	defer logger.DeferLogDuration("room.ListUserRooms", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, COALESCE(r.name,''), r.type, r.is_public, COALESCE(r.owner_id,''), COALESCE(r.avatar_url,''), COALESCE(r.invite_token,''), r.created_at, m.role
		 FROM rooms r
		 JOIN members m ON m.room_id = r.id
		 WHERE m.user_id = $1
		 ORDER BY r.created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.ListUserRooms query: %w", err)
	}
	defer rows.Close()

	out := make([]model.RoomWithUnread, 0, 16)
	for rows.Next() {
		var rw model.RoomWithUnread
		if err := rows.Scan(&rw.Room.ID, &rw.Room.Name, &rw.Room.Type, &rw.Room.IsPublic, &rw.Room.OwnerID,
			&rw.Room.AvatarURL, &rw.Room.InviteToken, &rw.Room.CreatedAt, &rw.Role); err != nil {
			return nil, fmt.Errorf("roomRepo.ListUserRooms scan: %w", err)
		}
		out = append(out, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.ListUserRooms rows: %w", err)
	}
	return out, nil
}

// FindDM looks the DM room up by its canonical pair key, so the room is
// found even when one side has hidden it by leaving.
func (r *RoomRepository) FindDM(ctx context.Context, userID1, userID2 string) (*model.Room, error) {
	defer logger.DeferLogDuration("room.FindDM", time.Now())()
	rm := &model.Room{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+roomCols+` FROM rooms WHERE type = 'dm' AND dm_key = $1`,
		model.DMPairKey(userID1, userID2),
	)
	if err := scanRoom(row, rm); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("roomRepo.FindDM: %w", err)
	}
	return rm, nil
}

func (r *RoomRepository) ListPublicRooms(ctx context.Context, query string) ([]model.Room, error) {
	defer logger.DeferLogDuration("room.ListPublicRooms", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+roomCols+` FROM rooms
		 WHERE is_public = true AND ($1 = '' OR name ILIKE '%' || $1 || '%')
		 ORDER BY created_at DESC LIMIT 100`, query,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.ListPublicRooms query: %w", err)
	}
	defer rows.Close()

	out := make([]model.Room, 0, 16)
	for rows.Next() {
		var rm model.Room
		if err := scanRoom(rows, &rm); err != nil {
			return nil, fmt.Errorf("roomRepo.ListPublicRooms scan: %w", err)
		}
		out = append(out, rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.ListPublicRooms rows: %w", err)
	}
	return out, nil
}

func (r *RoomRepository) CreateChannel(ctx context.Context, c *model.Channel) error {
	defer logger.DeferLogDuration("room.CreateChannel", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO channels (id, room_id, name, description, icon_emoji, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.RoomID, c.Name, c.Description, c.IconEmoji, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.CreateChannel: %w", err)
	}
	return nil
}

func (r *RoomRepository) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	defer logger.DeferLogDuration("room.GetChannel", time.Now())()
	c := &model.Channel{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, room_id, name, COALESCE(description,''), COALESCE(icon_emoji,''), created_at FROM channels WHERE id = $1`, id,
	).Scan(&c.ID, &c.RoomID, &c.Name, &c.Description, &c.IconEmoji, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("roomRepo.GetChannel: %w", err)
	}
	return c, nil
}

func (r *RoomRepository) UpdateChannel(ctx context.Context, id, name, description, iconEmoji string) error {
	defer logger.DeferLogDuration("room.UpdateChannel", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE channels SET name = $1, description = $2, icon_emoji = $3 WHERE id = $4`,
		name, description, iconEmoji, id,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.UpdateChannel: %w", err)
	}
	return nil
}

// DeleteChannelCascade removes a channel with its messages, reactions and
// read markers, children first, in one transaction.
func (r *RoomRepository) DeleteChannelCascade(ctx context.Context, channelID string) error {
	defer logger.DeferLogDuration("room.DeleteChannelCascade", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("roomRepo.DeleteChannelCascade begin: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []struct {
		name string
		sql  string
	}{
		{"reactions", `DELETE FROM message_reactions WHERE message_id IN (SELECT id FROM messages WHERE channel_id = $1)`},
		{"read_markers", `DELETE FROM read_messages WHERE channel_id = $1`},
		{"messages", `DELETE FROM messages WHERE channel_id = $1`},
		{"channel", `DELETE FROM channels WHERE id = $1`},
	}
	for _, st := range steps {
		if _, err := tx.Exec(ctx, st.sql, channelID); err != nil {
			return fmt.Errorf("roomRepo.DeleteChannelCascade %s: %w", st.name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("roomRepo.DeleteChannelCascade commit: %w", err)
	}
	return nil
}

func (r *RoomRepository) ListRoomChannels(ctx context.Context, roomID string) ([]model.Channel, error) {
	defer logger.DeferLogDuration("room.ListRoomChannels", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_id, name, COALESCE(description,''), COALESCE(icon_emoji,''), created_at
		 FROM channels WHERE room_id = $1 ORDER BY created_at`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.ListRoomChannels query: %w", err)
	}
	defer rows.Close()

	channels := make([]model.Channel, 0, 4)
	for rows.Next() {
		var c model.Channel
		if err := rows.Scan(&c.ID, &c.RoomID, &c.Name, &c.Description, &c.IconEmoji, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("roomRepo.ListRoomChannels scan: %w", err)
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.ListRoomChannels rows: %w", err)
	}
	return channels, nil
}

// ListAccessibleChannels returns every channel in every room the user is a
// member of (used by the forward picker).
func (r *RoomRepository) ListAccessibleChannels(ctx context.Context, userID string) ([]model.Channel, error) {
	defer logger.DeferLogDuration("room.ListAccessibleChannels", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.room_id, c.name, COALESCE(c.description,''), COALESCE(c.icon_emoji,''), c.created_at
		 FROM channels c
		 JOIN members m ON m.room_id = c.room_id
		 WHERE m.user_id = $1
		 ORDER BY c.room_id, c.created_at`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("roomRepo.ListAccessibleChannels query: %w", err)
	}
	defer rows.Close()

	channels := make([]model.Channel, 0, 16)
	for rows.Next() {
		var c model.Channel
		if err := rows.Scan(&c.ID, &c.RoomID, &c.Name, &c.Description, &c.IconEmoji, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("roomRepo.ListAccessibleChannels scan: %w", err)
		}
		channels = append(channels, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roomRepo.ListAccessibleChannels rows: %w", err)
	}
	return channels, nil
}

// BanMember records the ban and removes the membership in one transaction.
func (r *RoomRepository) BanMember(ctx context.Context, ban *model.RoomBan) error {
	defer logger.DeferLogDuration("room.BanMember", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("roomRepo.BanMember begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO room_bans (room_id, user_id, banned_by_id, reason, banned_at)
		 VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5) ON CONFLICT DO NOTHING`,
		ban.RoomID, ban.UserID, ban.BannedByID, ban.Reason, ban.BannedAt,
	)
	if err != nil {
		return fmt.Errorf("roomRepo.BanMember ban: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM member_roles WHERE room_id = $1 AND user_id = $2`, ban.RoomID, ban.UserID); err != nil {
		return fmt.Errorf("roomRepo.BanMember links: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM members WHERE room_id = $1 AND user_id = $2`, ban.RoomID, ban.UserID); err != nil {
		return fmt.Errorf("roomRepo.BanMember member: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("roomRepo.BanMember commit: %w", err)
	}
	return nil
}

func (r *RoomRepository) IsBanned(ctx context.Context, roomID, userID string) (bool, error) {
	defer logger.DeferLogDuration("room.IsBanned", time.Now())()
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_bans WHERE room_id = $1 AND user_id = $2)`,
		roomID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("roomRepo.IsBanned: %w", err)
	}
	return exists, nil
}
