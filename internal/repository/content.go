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

// ContentRepository covers user-owned media metadata: sticker packs and
// the profile music list.
type ContentRepository struct {
	pool *pgxpool.Pool
}

func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{pool: pool}
}

func (r *ContentRepository) CreateStickerPack(ctx context.Context, p *model.StickerPack) error {
	defer logger.DeferLogDuration("content.CreateStickerPack", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sticker_packs (id, owner_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.OwnerID, p.Name, p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("contentRepo.CreateStickerPack: %w", err)
	}
	return nil
}

func (r *ContentRepository) GetStickerPack(ctx context.Context, id string) (*model.StickerPack, error) {
	defer logger.DeferLogDuration("content.GetStickerPack", time.Now())()
	p := &model.StickerPack{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, owner_id, name, created_at FROM sticker_packs WHERE id = $1`, id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("contentRepo.GetStickerPack: %w", err)
	}
	return p, nil
}

func (r *ContentRepository) ListStickerPacks(ctx context.Context, ownerID string) ([]model.StickerPack, error) {
	defer logger.DeferLogDuration("content.ListStickerPacks", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, owner_id, name, created_at FROM sticker_packs WHERE owner_id = $1 ORDER BY created_at`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("contentRepo.ListStickerPacks query: %w", err)
	}
	defer rows.Close()

	packs := make([]model.StickerPack, 0, 4)
	for rows.Next() {
		var p model.StickerPack
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("contentRepo.ListStickerPacks scan: %w", err)
		}
		packs = append(packs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contentRepo.ListStickerPacks rows: %w", err)
	}
	return packs, nil
}

// DeleteStickerPack removes the pack with its stickers in one transaction.
func (r *ContentRepository) DeleteStickerPack(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("content.DeleteStickerPack", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("contentRepo.DeleteStickerPack begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM stickers WHERE pack_id = $1`, id); err != nil {
		return fmt.Errorf("contentRepo.DeleteStickerPack stickers: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM sticker_packs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("contentRepo.DeleteStickerPack pack: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("contentRepo.DeleteStickerPack commit: %w", err)
	}
	return nil
}

func (r *ContentRepository) AddSticker(ctx context.Context, s *model.Sticker) error {
	defer logger.DeferLogDuration("content.AddSticker", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO stickers (id, pack_id, file_url, emoji) VALUES ($1, $2, $3, NULLIF($4,''))`,
		s.ID, s.PackID, s.FileURL, s.Emoji,
	)
	if err != nil {
		return fmt.Errorf("contentRepo.AddSticker: %w", err)
	}
	return nil
}

func (r *ContentRepository) ListStickers(ctx context.Context, packID string) ([]model.Sticker, error) {
	defer logger.DeferLogDuration("content.ListStickers", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, pack_id, file_url, COALESCE(emoji,'') FROM stickers WHERE pack_id = $1 ORDER BY id`, packID,
	)
	if err != nil {
		return nil, fmt.Errorf("contentRepo.ListStickers query: %w", err)
	}
	defer rows.Close()

	stickers := make([]model.Sticker, 0, 8)
	for rows.Next() {
		var s model.Sticker
		if err := rows.Scan(&s.ID, &s.PackID, &s.FileURL, &s.Emoji); err != nil {
			return nil, fmt.Errorf("contentRepo.ListStickers scan: %w", err)
		}
		stickers = append(stickers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contentRepo.ListStickers rows: %w", err)
	}
	return stickers, nil
}

func (r *ContentRepository) RemoveSticker(ctx context.Context, id string) error {
	defer logger.DeferLogDuration("content.RemoveSticker", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM stickers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("contentRepo.RemoveSticker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ContentRepository) AddMusic(ctx context.Context, m *model.UserMusic) error {
	defer logger.DeferLogDuration("content.AddMusic", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_music (id, user_id, title, artist, file_url, cover_url, added_at)
		 VALUES ($1, $2, $3, NULLIF($4,''), $5, NULLIF($6,''), $7)`,
		m.ID, m.UserID, m.Title, m.Artist, m.FileURL, m.CoverURL, m.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("contentRepo.AddMusic: %w", err)
	}
	return nil
}

func (r *ContentRepository) ListMusic(ctx context.Context, userID string) ([]model.UserMusic, error) {
	defer logger.DeferLogDuration("content.ListMusic", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, title, COALESCE(artist,''), file_url, COALESCE(cover_url,''), added_at
		 FROM user_music WHERE user_id = $1 ORDER BY added_at DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("contentRepo.ListMusic query: %w", err)
	}
	defer rows.Close()

	tracks := make([]model.UserMusic, 0, 8)
	for rows.Next() {
		var m model.UserMusic
		if err := rows.Scan(&m.ID, &m.UserID, &m.Title, &m.Artist, &m.FileURL, &m.CoverURL, &m.AddedAt); err != nil {
			return nil, fmt.Errorf("contentRepo.ListMusic scan: %w", err)
		}
		tracks = append(tracks, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contentRepo.ListMusic rows: %w", err)
	}
	return tracks, nil
}

func (r *ContentRepository) RemoveMusic(ctx context.Context, id, userID string) error {
	defer logger.DeferLogDuration("content.RemoveMusic", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_music WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("contentRepo.RemoveMusic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
