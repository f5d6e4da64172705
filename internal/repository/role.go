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

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) Create(ctx context.Context, role *model.Role) error {
	defer logger.DeferLogDuration("role.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (id, room_id, name, mention_tag, is_system, can_be_mentioned_by_everyone, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		role.ID, role.RoomID, role.Name, role.MentionTag, role.IsSystem, role.CanBeMentionedByEveryone, role.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("roleRepo.Create: %w", err)
	}
	return nil
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (*model.Role, error) {
	defer logger.DeferLogDuration("role.GetByID", time.Now())()
	role := &model.Role{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, room_id, name, mention_tag, is_system, can_be_mentioned_by_everyone, created_at
		 FROM roles WHERE id = $1`, id,
	).Scan(&role.ID, &role.RoomID, &role.Name, &role.MentionTag, &role.IsSystem, &role.CanBeMentionedByEveryone, &role.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("roleRepo.GetByID: %w", err)
	}
	return role, nil
}

func (r *RoleRepository) GetByTag(ctx context.Context, roomID, mentionTag string) (*model.Role, error) {
	defer logger.DeferLogDuration("role.GetByTag", time.Now())()
	role := &model.Role{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, room_id, name, mention_tag, is_system, can_be_mentioned_by_everyone, created_at
		 FROM roles WHERE room_id = $1 AND mention_tag = $2`, roomID, mentionTag,
	).Scan(&role.ID, &role.RoomID, &role.Name, &role.MentionTag, &role.IsSystem, &role.CanBeMentionedByEveryone, &role.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("roleRepo.GetByTag: %w", err)
	}
	return role, nil
}

func (r *RoleRepository) ListRoomRoles(ctx context.Context, roomID string) ([]model.Role, error) {
	defer logger.DeferLogDuration("role.ListRoomRoles", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, room_id, name, mention_tag, is_system, can_be_mentioned_by_everyone, created_at
		 FROM roles WHERE room_id = $1 ORDER BY created_at`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("roleRepo.ListRoomRoles query: %w", err)
	}
	defer rows.Close()

	roles := make([]model.Role, 0, 4)
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.RoomID, &role.Name, &role.MentionTag, &role.IsSystem,
			&role.CanBeMentionedByEveryone, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("roleRepo.ListRoomRoles scan: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roleRepo.ListRoomRoles rows: %w", err)
	}
	return roles, nil
}

func (r *RoleRepository) Update(ctx context.Context, id, name, mentionTag string, canByEveryone bool) error {
	defer logger.DeferLogDuration("role.Update", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE roles SET name = $1, mention_tag = $2, can_be_mentioned_by_everyone = $3 WHERE id = $4`,
		name, mentionTag, canByEveryone, id,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("roleRepo.Update: %w", err)
	}
	return nil
}

// Delete removes a role with its member links and mention edges in one
// transaction. System roles are guarded at the service layer.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("role.Delete", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("roleRepo.Delete begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM member_roles WHERE role_id = $1`, id); err != nil {
		return fmt.Errorf("roleRepo.Delete links: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM role_mention_permissions WHERE target_role_id = $1 OR source_role_id = $1`, id,
	); err != nil {
		return fmt.Errorf("roleRepo.Delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("roleRepo.Delete role: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("roleRepo.Delete commit: %w", err)
	}
	return nil
}

func (r *RoleRepository) AssignToMember(ctx context.Context, l *model.MemberRoleLink) error {
	defer logger.DeferLogDuration("role.AssignToMember", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO member_roles (user_id, room_id, role_id, assigned_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		l.UserID, l.RoomID, l.RoleID, l.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("roleRepo.AssignToMember: %w", err)
	}
	return nil
}

func (r *RoleRepository) RemoveFromMember(ctx context.Context, userID, roomID, roleID string) error {
	defer logger.DeferLogDuration("role.RemoveFromMember", time.Now())()
	_, err := r.pool.Exec(ctx,
		`DELETE FROM member_roles WHERE user_id = $1 AND room_id = $2 AND role_id = $3`,
		userID, roomID, roleID,
	)
	if err != nil {
		return fmt.Errorf("roleRepo.RemoveFromMember: %w", err)
	}
	return nil
}

func (r *RoleRepository) ListMemberRoleIDs(ctx context.Context, roomID, userID string) ([]string, error) {
	defer logger.DeferLogDuration("role.ListMemberRoleIDs", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT role_id FROM member_roles WHERE room_id = $1 AND user_id = $2`, roomID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("roleRepo.ListMemberRoleIDs query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 4)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("roleRepo.ListMemberRoleIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roleRepo.ListMemberRoleIDs rows: %w", err)
	}
	return ids, nil
}

// ListRoleHolderIDs returns the user ids of all members holding the role.
func (r *RoleRepository) ListRoleHolderIDs(ctx context.Context, roleID string) ([]string, error) {
	defer logger.DeferLogDuration("role.ListRoleHolderIDs", time.Now())()
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM member_roles WHERE role_id = $1`, roleID)
	if err != nil {
		return nil, fmt.Errorf("roleRepo.ListRoleHolderIDs query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("roleRepo.ListRoleHolderIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roleRepo.ListRoleHolderIDs rows: %w", err)
	}
	return ids, nil
}

func (r *RoleRepository) AddMentionPermission(ctx context.Context, p *model.RoleMentionPermission) error {
	defer logger.DeferLogDuration("role.AddMentionPermission", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_mention_permissions (room_id, target_role_id, source_role_id, created_at)
		 VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`,
		p.RoomID, p.TargetRoleID, p.SourceRoleID, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("roleRepo.AddMentionPermission: %w", err)
	}
	return nil
}

func (r *RoleRepository) RemoveMentionPermission(ctx context.Context, roomID, targetRoleID, sourceRoleID string) error {
	defer logger.DeferLogDuration("role.RemoveMentionPermission", time.Now())()
	_, err := r.pool.Exec(ctx,
		`DELETE FROM role_mention_permissions
		 WHERE room_id = $1 AND target_role_id = $2 AND source_role_id = $3`,
		roomID, targetRoleID, sourceRoleID,
	)
	if err != nil {
		return fmt.Errorf("roleRepo.RemoveMentionPermission: %w", err)
	}
	return nil
}

func (r *RoleRepository) ListMentionPermissions(ctx context.Context, roomID string) ([]model.RoleMentionPermission, error) {
	defer logger.DeferLogDuration("role.ListMentionPermissions", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT room_id, target_role_id, source_role_id, created_at
		 FROM role_mention_permissions WHERE room_id = $1`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("roleRepo.ListMentionPermissions query: %w", err)
	}
	defer rows.Close()

	perms := make([]model.RoleMentionPermission, 0, 4)
	for rows.Next() {
		var p model.RoleMentionPermission
		if err := rows.Scan(&p.RoomID, &p.TargetRoleID, &p.SourceRoleID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("roleRepo.ListMentionPermissions scan: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("roleRepo.ListMentionPermissions rows: %w", err)
	}
	return perms, nil
}
