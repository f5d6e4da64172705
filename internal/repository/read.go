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

type ReadRepository struct {
	pool *pgxpool.Pool
}

func NewReadRepository(pool *pgxpool.Pool) *ReadRepository {
	return &ReadRepository{pool: pool}
}

// Advance moves the user's read marker forward. GREATEST keeps the marker
// monotonic under concurrent or stale updates.
func (r *ReadRepository) Advance(ctx context.Context, userID, channelID string, messageID int64) error {
	defer logger.DeferLogDuration("read.Advance", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO read_messages (user_id, channel_id, last_read_message_id, last_read_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, channel_id) DO UPDATE
		 SET last_read_message_id = GREATEST(read_messages.last_read_message_id, EXCLUDED.last_read_message_id),
		     last_read_at = EXCLUDED.last_read_at`,
		userID, channelID, messageID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("readRepo.Advance: %w", err)
	}
	return nil
}

func (r *ReadRepository) Get(ctx context.Context, userID, channelID string) (*model.ReadMarker, error) {
	defer logger.DeferLogDuration("read.Get", time.Now())()
	m := &model.ReadMarker{}
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, channel_id, last_read_message_id, last_read_at
		 FROM read_messages WHERE user_id = $1 AND channel_id = $2`,
		userID, channelID,
	).Scan(&m.UserID, &m.ChannelID, &m.LastReadMessageID, &m.LastReadAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("readRepo.Get: %w", err)
	}
	return m, nil
}

// GetForChannels loads the user's markers for a set of channels at once,
// missing markers are simply absent from the map.
func (r *ReadRepository) GetForChannels(ctx context.Context, userID string, channelIDs []string) (map[string]int64, error) {
	defer logger.DeferLogDuration("read.GetForChannels", time.Now())()
	if len(channelIDs) == 0 {
		return map[string]int64{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT channel_id, last_read_message_id FROM read_messages
		 WHERE user_id = $1 AND channel_id = ANY($2)`,
		userID, channelIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("readRepo.GetForChannels query: %w", err)
	}
	defer rows.Close()

	markers := make(map[string]int64, len(channelIDs))
	for rows.Next() {
		var channelID string
		var lastRead int64
		if err := rows.Scan(&channelID, &lastRead); err != nil {
			return nil, fmt.Errorf("readRepo.GetForChannels scan: %w", err)
		}
		markers[channelID] = lastRead
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("readRepo.GetForChannels rows: %w", err)
	}
	return markers, nil
}
