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

const messageCols = `m.id, m.channel_id, m.user_id, m.content, m.message_type,
	COALESCE(m.file_url,''), COALESCE(m.file_name,''), COALESCE(m.file_size,0),
	m.timestamp, m.edited_at,
	u.id, u.username, COALESCE(u.avatar_url,''), u.presence_status, u.last_seen_at`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }) (*model.Message, error) {
	m := &model.Message{Author: &model.UserPublic{}}
	err := s.Scan(&m.ID, &m.ChannelID, &m.UserID, &m.Content, &m.MessageType,
		&m.FileURL, &m.FileName, &m.FileSize, &m.Timestamp, &m.EditedAt,
		&m.Author.ID, &m.Author.Username, &m.Author.AvatarURL,
		&m.Author.Presence, &m.Author.LastSeenAt)
	if err != nil {
		return nil, err
	}
	if m.Author.Presence == model.PresenceHidden {
		m.Author.Presence = model.PresenceOffline
		m.Author.LastSeenAt = time.Time{}
	}
	return m, nil
}

// Insert stores the message and fills in the database-assigned id and
// timestamp. Ids are assigned by a single sequence, so they order messages
// globally.
func (r *MessageRepository) Insert(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("message.Insert", time.Now())()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (channel_id, user_id, content, message_type, file_url, file_name, file_size)
		 VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,0))
		 RETURNING id, timestamp`,
		m.ChannelID, m.UserID, m.Content, m.MessageType, m.FileURL, m.FileName, m.FileSize,
	).Scan(&m.ID, &m.Timestamp)
	if err != nil {
		return fmt.Errorf("messageRepo.Insert: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	defer logger.DeferLogDuration("message.GetByID", time.Now())()
	row := r.pool.QueryRow(ctx,
		`SELECT `+messageCols+` FROM messages m JOIN users u ON u.id = m.user_id WHERE m.id = $1`, id,
	)
	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("messageRepo.GetByID: %w", err)
	}
	return m, nil
}

// ListChannelMessages returns up to limit messages of the channel in
// ascending id order. A non-zero beforeID pages backwards from that message.
func (r *MessageRepository) ListChannelMessages(ctx context.Context, channelID string, beforeID int64, limit int) ([]model.Message, error) {
	defer logger.DeferLogDuration("message.ListChannelMessages", time.Now())()
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM (
		   SELECT `+messageCols+`
		   FROM messages m JOIN users u ON u.id = m.user_id
		   WHERE m.channel_id = $1 AND ($2 = 0 OR m.id < $2)
		   ORDER BY m.id DESC LIMIT $3
		 ) page ORDER BY 1 ASC`,
		channelID, beforeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("messageRepo.ListChannelMessages query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, limit)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("messageRepo.ListChannelMessages scan: %w", err)
		}
		messages = append(messages, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messageRepo.ListChannelMessages rows: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	defer logger.DeferLogDuration("message.UpdateContent", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET content = $1, edited_at = $2 WHERE id = $3`,
		content, editedAt, id,
	)
	if err != nil {
		return fmt.Errorf("messageRepo.UpdateContent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the message together with its reactions in one transaction.
func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	defer logger.DeferLogDuration("message.Delete", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("messageRepo.Delete begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM message_reactions WHERE message_id = $1`, id); err != nil {
		return fmt.Errorf("messageRepo.Delete reactions: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("messageRepo.Delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("messageRepo.Delete commit: %w", err)
	}
	return nil
}

// CountUnread counts messages above the user's read marker, excluding the
// user's own messages.
func (r *MessageRepository) CountUnread(ctx context.Context, channelID, userID string, lastReadID int64) (int, error) {
	defer logger.DeferLogDuration("message.CountUnread", time.Now())()
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE channel_id = $1 AND id > $2 AND user_id <> $3`,
		channelID, lastReadID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("messageRepo.CountUnread: %w", err)
	}
	return n, nil
}

// LastMessageID returns the id of the newest message in the channel, zero
// when the channel is empty.
func (r *MessageRepository) LastMessageID(ctx context.Context, channelID string) (int64, error) {
	defer logger.DeferLogDuration("message.LastMessageID", time.Now())()
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(id), 0) FROM messages WHERE channel_id = $1`, channelID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("messageRepo.LastMessageID: %w", err)
	}
	return id, nil
}
