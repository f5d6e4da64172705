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
	"github.com/Ernous/BoxChat/internal/permission"
)

// SnapshotRepository assembles permission snapshots. Kept separate from the
// room and role repositories because it reads across both of their tables.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Load builds the permission snapshot for userID in roomID. Returns
// ErrNotFound when the room does not exist; a non-member gets a snapshot
// with an empty MemberRole. All reads run in one repeatable-read
// transaction so a concurrent kick or role change is seen either fully
// applied or not at all.
func (r *SnapshotRepository) Load(ctx context.Context, roomID, userID string) (*permission.Snapshot, error) {
	defer logger.DeferLogDuration("snapshot.Load", time.Now())()
	snap := &permission.Snapshot{
		RoomID:       roomID,
		UserID:       userID,
		Roles:        make(map[string]model.Role),
		HeldRoleIDs:  make(map[string]struct{}),
		MentionEdges: make(map[string]map[string]struct{}),
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`SELECT type, COALESCE(owner_id,'') FROM rooms WHERE id = $1`, roomID,
	).Scan(&snap.RoomType, &snap.OwnerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load room: %w", err)
	}

	err = tx.QueryRow(ctx,
		`SELECT role FROM members WHERE room_id = $1 AND user_id = $2`, roomID, userID,
	).Scan(&snap.MemberRole)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("snapshotRepo.Load member: %w", err)
	}

	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM room_bans WHERE room_id = $1 AND user_id = $2)`, roomID, userID,
	).Scan(&snap.Banned)
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load ban: %w", err)
	}

	rows, err := tx.Query(ctx,
		`SELECT id, room_id, name, mention_tag, is_system, can_be_mentioned_by_everyone, created_at
		 FROM roles WHERE room_id = $1`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load roles query: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var role model.Role
		if err := rows.Scan(&role.ID, &role.RoomID, &role.Name, &role.MentionTag, &role.IsSystem,
			&role.CanBeMentionedByEveryone, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("snapshotRepo.Load roles scan: %w", err)
		}
		snap.Roles[role.ID] = role
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load roles rows: %w", err)
	}
	rows.Close()

	heldRows, err := tx.Query(ctx,
		`SELECT role_id FROM member_roles WHERE room_id = $1 AND user_id = $2`, roomID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load held query: %w", err)
	}
	defer heldRows.Close()
	for heldRows.Next() {
		var id string
		if err := heldRows.Scan(&id); err != nil {
			return nil, fmt.Errorf("snapshotRepo.Load held scan: %w", err)
		}
		snap.HeldRoleIDs[id] = struct{}{}
	}
	if err := heldRows.Err(); err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load held rows: %w", err)
	}
	heldRows.Close()

	edgeRows, err := tx.Query(ctx,
		`SELECT target_role_id, source_role_id FROM role_mention_permissions WHERE room_id = $1`, roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load edges query: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var target, source string
		if err := edgeRows.Scan(&target, &source); err != nil {
			return nil, fmt.Errorf("snapshotRepo.Load edges scan: %w", err)
		}
		if snap.MentionEdges[target] == nil {
			snap.MentionEdges[target] = make(map[string]struct{})
		}
		snap.MentionEdges[target][source] = struct{}{}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load edges rows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("snapshotRepo.Load commit: %w", err)
	}
	return snap, nil
}
