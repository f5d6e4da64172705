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

const userCols = `id, username, COALESCE(bio,''), COALESCE(avatar_url,''), privacy_searchable, privacy_listable, presence_status, last_seen_at, is_superuser, is_banned, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// scanUser scans a row into model.User (column order matches userCols).
func scanUser(s interface{ Scan(dest ...any) error }, u *model.User) error {
	return s.Scan(&u.ID, &u.Username, &u.Bio, &u.AvatarURL, &u.PrivacySearchable, &u.PrivacyListable,
		&u.Presence, &u.LastSeenAt, &u.IsSuperuser, &u.IsBanned, &u.CreatedAt)
}

func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	defer logger.DeferLogDuration("user.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, username, bio, avatar_url, privacy_searchable, privacy_listable, presence_status, last_seen_at, is_superuser, is_banned, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Username, u.Bio, u.AvatarURL, u.PrivacySearchable, u.PrivacyListable, u.Presence, u.LastSeenAt, u.IsSuperuser, u.IsBanned, u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("userRepo.Create: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByID", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByID: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByUsername", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE LOWER(username) = LOWER($1)`, username)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByUsername: %w", err)
	}
	return u, nil
}

// Search returns users matching query, honoring privacy_searchable. An empty
// query lists users with privacy_listable (everyone when asSuperuser).
func (r *UserRepository) Search(ctx context.Context, query string, asSuperuser bool) ([]model.User, error) {
	defer logger.DeferLogDuration("user.Search", time.Now())()
	var (
		rows pgx.Rows
		err  error
	)
	if query != "" {
		rows, err = r.pool.Query(ctx,
			`SELECT `+userCols+` FROM users
			 WHERE username ILIKE '%' || $1 || '%' AND privacy_searchable = true
			 ORDER BY username LIMIT 50`, query)
	} else if asSuperuser {
		rows, err = r.pool.Query(ctx, `SELECT `+userCols+` FROM users ORDER BY username LIMIT 200`)
	} else {
		rows, err = r.pool.Query(ctx, `SELECT `+userCols+` FROM users WHERE privacy_listable = true ORDER BY username LIMIT 200`)
	}
	if err != nil {
		return nil, fmt.Errorf("userRepo.Search query: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, 16)
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("userRepo.Search scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepo.Search rows: %w", err)
	}
	return users, nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id, bio, avatarURL string, searchable, listable bool) error {
	defer logger.DeferLogDuration("user.UpdateProfile", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET bio = $1, avatar_url = $2, privacy_searchable = $3, privacy_listable = $4 WHERE id = $5`,
		bio, avatarURL, searchable, listable, id,
	)
	if err != nil {
		return fmt.Errorf("userRepo.UpdateProfile: %w", err)
	}
	return nil
}

func (r *UserRepository) SetPresence(ctx context.Context, id string, status model.PresenceStatus, lastSeen time.Time) error {
	defer logger.DeferLogDuration("user.SetPresence", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET presence_status = $1, last_seen_at = $2 WHERE id = $3`,
		status, lastSeen, id,
	)
	if err != nil {
		return fmt.Errorf("userRepo.SetPresence: %w", err)
	}
	return nil
}

// DeleteAccountCascade removes the user and everything they own in one
// transaction: music, sticker packs, reactions, read markers, role links,
// memberships, friend requests, friendships, authored messages (with the
// reactions others left on them), and finally the user row. Partial deletion
// must never be observable.
func (r *UserRepository) DeleteAccountCascade(ctx context.Context, userID string) error {
	defer logger.DeferLogDuration("user.DeleteAccountCascade", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("userRepo.DeleteAccountCascade begin: %w", err)
	}
	defer tx.Rollback(ctx)

	steps := []struct {
		name string
		sql  string
	}{
		{"music", `DELETE FROM user_music WHERE user_id = $1`},
		{"stickers", `DELETE FROM stickers WHERE pack_id IN (SELECT id FROM sticker_packs WHERE owner_id = $1)`},
		{"sticker_packs", `DELETE FROM sticker_packs WHERE owner_id = $1`},
		{"own_reactions", `DELETE FROM message_reactions WHERE user_id = $1`},
		{"read_markers", `DELETE FROM read_messages WHERE user_id = $1`},
		{"role_links", `DELETE FROM member_roles WHERE user_id = $1`},
		{"memberships", `DELETE FROM members WHERE user_id = $1`},
		{"bans", `DELETE FROM room_bans WHERE user_id = $1`},
		{"bans_issued", `UPDATE room_bans SET banned_by_id = NULL WHERE banned_by_id = $1`},
		{"friend_requests", `DELETE FROM friend_requests WHERE from_user_id = $1 OR to_user_id = $1`},
		{"friendships", `DELETE FROM friendships WHERE user_low_id = $1 OR user_high_id = $1`},
		{"reactions_on_own_messages", `DELETE FROM message_reactions WHERE message_id IN (SELECT id FROM messages WHERE user_id = $1)`},
		{"messages", `DELETE FROM messages WHERE user_id = $1`},
		{"owned_rooms", `UPDATE rooms SET owner_id = NULL WHERE owner_id = $1`},
		{"user", `DELETE FROM users WHERE id = $1`},
	}
	for _, st := range steps {
		if _, err := tx.Exec(ctx, st.sql, userID); err != nil {
			return fmt.Errorf("userRepo.DeleteAccountCascade %s: %w", st.name, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("userRepo.DeleteAccountCascade commit: %w", err)
	}
	return nil
}
