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

type FriendRepository struct {
	pool *pgxpool.Pool
}

func NewFriendRepository(pool *pgxpool.Pool) *FriendRepository {
	return &FriendRepository{pool: pool}
}

func (r *FriendRepository) CreateRequest(ctx context.Context, req *model.FriendRequest) error {
	defer logger.DeferLogDuration("friend.CreateRequest", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO friend_requests (id, from_user_id, to_user_id, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.FromUserID, req.ToUserID, req.Status, req.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("friendRepo.CreateRequest: %w", err)
	}
	return nil
}

func (r *FriendRepository) GetRequest(ctx context.Context, id string) (*model.FriendRequest, error) {
	defer logger.DeferLogDuration("friend.GetRequest", time.Now())()
	req := &model.FriendRequest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, from_user_id, to_user_id, status, created_at, responded_at FROM friend_requests WHERE id = $1`, id,
	).Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt, &req.RespondedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("friendRepo.GetRequest: %w", err)
	}
	return req, nil
}

// GetPendingBetween finds a pending request in either direction.
func (r *FriendRepository) GetPendingBetween(ctx context.Context, userID1, userID2 string) (*model.FriendRequest, error) {
	defer logger.DeferLogDuration("friend.GetPendingBetween", time.Now())()
	req := &model.FriendRequest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, from_user_id, to_user_id, status, created_at, responded_at FROM friend_requests
		 WHERE status = 'pending'
		   AND ((from_user_id = $1 AND to_user_id = $2) OR (from_user_id = $2 AND to_user_id = $1))`,
		userID1, userID2,
	).Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt, &req.RespondedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("friendRepo.GetPendingBetween: %w", err)
	}
	return req, nil
}

func (r *FriendRepository) ListIncoming(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	defer logger.DeferLogDuration("friend.ListIncoming", time.Now())()
	return r.listRequests(ctx, `to_user_id`, userID)
}

func (r *FriendRepository) ListOutgoing(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	defer logger.DeferLogDuration("friend.ListOutgoing", time.Now())()
	return r.listRequests(ctx, `from_user_id`, userID)
}

func (r *FriendRepository) listRequests(ctx context.Context, col, userID string) ([]model.FriendRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, from_user_id, to_user_id, status, created_at, responded_at FROM friend_requests
		 WHERE `+col+` = $1 AND status = 'pending' ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("friendRepo.listRequests query: %w", err)
	}
	defer rows.Close()

	reqs := make([]model.FriendRequest, 0, 4)
	for rows.Next() {
		var req model.FriendRequest
		if err := rows.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt, &req.RespondedAt); err != nil {
			return nil, fmt.Errorf("friendRepo.listRequests scan: %w", err)
		}
		reqs = append(reqs, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("friendRepo.listRequests rows: %w", err)
	}
	return reqs, nil
}

// AcceptRequest marks the request accepted and records the friendship in one
// transaction. The friendship row stores the pair in normalized order.
func (r *FriendRepository) AcceptRequest(ctx context.Context, requestID string) (*model.FriendRequest, error) {
	defer logger.DeferLogDuration("friend.AcceptRequest", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("friendRepo.AcceptRequest begin: %w", err)
	}
	defer tx.Rollback(ctx)

	req := &model.FriendRequest{}
	err = tx.QueryRow(ctx,
		`UPDATE friend_requests SET status = 'accepted', responded_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING id, from_user_id, to_user_id, status, created_at, responded_at`, requestID,
	).Scan(&req.ID, &req.FromUserID, &req.ToUserID, &req.Status, &req.CreatedAt, &req.RespondedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("friendRepo.AcceptRequest update: %w", err)
	}

	low, high := model.FriendshipPair(req.FromUserID, req.ToUserID)
	_, err = tx.Exec(ctx,
		`INSERT INTO friendships (user_low_id, user_high_id, created_at)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		low, high, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("friendRepo.AcceptRequest friendship: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("friendRepo.AcceptRequest commit: %w", err)
	}
	return req, nil
}

func (r *FriendRepository) DeclineRequest(ctx context.Context, requestID string) error {
	defer logger.DeferLogDuration("friend.DeclineRequest", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE friend_requests SET status = 'declined', responded_at = NOW() WHERE id = $1 AND status = 'pending'`, requestID,
	)
	if err != nil {
		return fmt.Errorf("friendRepo.DeclineRequest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *FriendRepository) AreFriends(ctx context.Context, userID1, userID2 string) (bool, error) {
	defer logger.DeferLogDuration("friend.AreFriends", time.Now())()
	low, high := model.FriendshipPair(userID1, userID2)
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM friendships WHERE user_low_id = $1 AND user_high_id = $2)`,
		low, high,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("friendRepo.AreFriends: %w", err)
	}
	return exists, nil
}

func (r *FriendRepository) ListFriends(ctx context.Context, userID string) ([]model.UserPublic, error) {
	defer logger.DeferLogDuration("friend.ListFriends", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.username, COALESCE(u.avatar_url,''), u.presence_status, u.last_seen_at
		 FROM friendships f
		 JOIN users u ON u.id = CASE WHEN f.user_low_id = $1 THEN f.user_high_id ELSE f.user_low_id END
		 WHERE f.user_low_id = $1 OR f.user_high_id = $1
		 ORDER BY u.username`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("friendRepo.ListFriends query: %w", err)
	}
	defer rows.Close()

	friends := make([]model.UserPublic, 0, 8)
	for rows.Next() {
		var u model.UserPublic
		if err := rows.Scan(&u.ID, &u.Username, &u.AvatarURL, &u.Presence, &u.LastSeenAt); err != nil {
			return nil, fmt.Errorf("friendRepo.ListFriends scan: %w", err)
		}
		if u.Presence == model.PresenceHidden {
			u.Presence = model.PresenceOffline
			u.LastSeenAt = time.Time{}
		}
		friends = append(friends, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("friendRepo.ListFriends rows: %w", err)
	}
	return friends, nil
}

// ListFriendIDs returns just the ids, for presence fan-out.
func (r *FriendRepository) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	defer logger.DeferLogDuration("friend.ListFriendIDs", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT CASE WHEN user_low_id = $1 THEN user_high_id ELSE user_low_id END
		 FROM friendships WHERE user_low_id = $1 OR user_high_id = $1`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("friendRepo.ListFriendIDs query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 8)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("friendRepo.ListFriendIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("friendRepo.ListFriendIDs rows: %w", err)
	}
	return ids, nil
}

func (r *FriendRepository) RemoveFriendship(ctx context.Context, userID1, userID2 string) error {
	defer logger.DeferLogDuration("friend.RemoveFriendship", time.Now())()
	low, high := model.FriendshipPair(userID1, userID2)
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM friendships WHERE user_low_id = $1 AND user_high_id = $2`, low, high,
	)
	if err != nil {
		return fmt.Errorf("friendRepo.RemoveFriendship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
