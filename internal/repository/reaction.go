package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/model"
)

type ReactionRepository struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{pool: pool}
}

// Toggle removes the user's reaction if it exists and adds it otherwise.
// Returns true when the reaction was added.
func (r *ReactionRepository) Toggle(ctx context.Context, messageID int64, userID, emoji string, kind model.ReactionKind) (bool, error) {
	defer logger.DeferLogDuration("reaction.Toggle", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("reactionRepo.Toggle begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM message_reactions WHERE message_id = $1 AND user_id = $2 AND emoji = $3`,
		messageID, userID, emoji,
	)
	if err != nil {
		return false, fmt.Errorf("reactionRepo.Toggle delete: %w", err)
	}
	added := false
	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO message_reactions (message_id, user_id, emoji, kind, created_at)
			 VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
			messageID, userID, emoji, kind, time.Now().UTC(),
		)
		if err != nil {
			return false, fmt.Errorf("reactionRepo.Toggle insert: %w", err)
		}
		added = true
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("reactionRepo.Toggle commit: %w", err)
	}
	return added, nil
}

// GetGrouped returns the message's reactions grouped by emoji, usernames in
// the order the reactions were added.
func (r *ReactionRepository) GetGrouped(ctx context.Context, messageID int64) (map[string][]string, error) {
	defer logger.DeferLogDuration("reaction.GetGrouped", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT mr.emoji, u.username
		 FROM message_reactions mr
		 JOIN users u ON u.id = mr.user_id
		 WHERE mr.message_id = $1
		 ORDER BY mr.created_at, u.username`, messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("reactionRepo.GetGrouped query: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]string)
	for rows.Next() {
		var emoji, username string
		if err := rows.Scan(&emoji, &username); err != nil {
			return nil, fmt.Errorf("reactionRepo.GetGrouped scan: %w", err)
		}
		grouped[emoji] = append(grouped[emoji], username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reactionRepo.GetGrouped rows: %w", err)
	}
	return grouped, nil
}

// GetGroupedBatch loads reactions for a page of messages in one query.
func (r *ReactionRepository) GetGroupedBatch(ctx context.Context, messageIDs []int64) (map[int64]map[string][]string, error) {
	defer logger.DeferLogDuration("reaction.GetGroupedBatch", time.Now())()
	if len(messageIDs) == 0 {
		return map[int64]map[string][]string{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT mr.message_id, mr.emoji, u.username
		 FROM message_reactions mr
		 JOIN users u ON u.id = mr.user_id
		 WHERE mr.message_id = ANY($1)
		 ORDER BY mr.created_at, u.username`, messageIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("reactionRepo.GetGroupedBatch query: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]map[string][]string, len(messageIDs))
	for rows.Next() {
		var id int64
		var emoji, username string
		if err := rows.Scan(&id, &emoji, &username); err != nil {
			return nil, fmt.Errorf("reactionRepo.GetGroupedBatch scan: %w", err)
		}
		if out[id] == nil {
			out[id] = make(map[string][]string)
		}
		out[id][emoji] = append(out[id][emoji], username)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reactionRepo.GetGroupedBatch rows: %w", err)
	}
	return out, nil
}
