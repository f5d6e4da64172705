package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/repository"
)

type ContentStore interface {
	CreateStickerPack(ctx context.Context, p *model.StickerPack) error
	GetStickerPack(ctx context.Context, id string) (*model.StickerPack, error)
	ListStickerPacks(ctx context.Context, ownerID string) ([]model.StickerPack, error)
	DeleteStickerPack(ctx context.Context, id string) error
	AddSticker(ctx context.Context, s *model.Sticker) error
	ListStickers(ctx context.Context, packID string) ([]model.Sticker, error)
	RemoveSticker(ctx context.Context, id string) error
	AddMusic(ctx context.Context, m *model.UserMusic) error
	ListMusic(ctx context.Context, userID string) ([]model.UserMusic, error)
	RemoveMusic(ctx context.Context, id, userID string) error
}

// ContentService manages user-owned sticker packs and music metadata. The
// files themselves live in external storage; only URLs are kept here.
type ContentService struct {
	store ContentStore
}

func NewContentService(store ContentStore) *ContentService {
	return &ContentService{store: store}
}

func (s *ContentService) CreateStickerPack(ctx context.Context, ownerID, name string) (*model.StickerPack, error) {
	defer logger.DeferLogDuration("contentService.CreateStickerPack", time.Now())()
	if name == "" {
		return nil, ErrEmptyContent
	}
	pack := &model.StickerPack{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateStickerPack(ctx, pack); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("contentService.CreateStickerPack: %w", err)
	}
	return pack, nil
}

func (s *ContentService) ListStickerPacks(ctx context.Context, ownerID string) ([]model.StickerPack, error) {
	defer logger.DeferLogDuration("contentService.ListStickerPacks", time.Now())()
	packs, err := s.store.ListStickerPacks(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("contentService.ListStickerPacks: %w", err)
	}
	return packs, nil
}

func (s *ContentService) DeleteStickerPack(ctx context.Context, ownerID, packID string) error {
	defer logger.DeferLogDuration("contentService.DeleteStickerPack", time.Now())()
	if err := s.ownPack(ctx, ownerID, packID); err != nil {
		return err
	}
	if err := s.store.DeleteStickerPack(ctx, packID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("contentService.DeleteStickerPack: %w", err)
	}
	return nil
}

func (s *ContentService) AddSticker(ctx context.Context, ownerID, packID, fileURL, emoji string) (*model.Sticker, error) {
	defer logger.DeferLogDuration("contentService.AddSticker", time.Now())()
	if fileURL == "" {
		return nil, ErrEmptyContent
	}
	if err := s.ownPack(ctx, ownerID, packID); err != nil {
		return nil, err
	}
	sticker := &model.Sticker{
		ID:      uuid.New().String(),
		PackID:  packID,
		FileURL: fileURL,
		Emoji:   emoji,
	}
	if err := s.store.AddSticker(ctx, sticker); err != nil {
		return nil, fmt.Errorf("contentService.AddSticker: %w", err)
	}
	return sticker, nil
}

func (s *ContentService) ListStickers(ctx context.Context, packID string) ([]model.Sticker, error) {
	defer logger.DeferLogDuration("contentService.ListStickers", time.Now())()
	stickers, err := s.store.ListStickers(ctx, packID)
	if err != nil {
		return nil, fmt.Errorf("contentService.ListStickers: %w", err)
	}
	return stickers, nil
}

func (s *ContentService) RemoveSticker(ctx context.Context, ownerID, packID, stickerID string) error {
	defer logger.DeferLogDuration("contentService.RemoveSticker", time.Now())()
	if err := s.ownPack(ctx, ownerID, packID); err != nil {
		return err
	}
	if err := s.store.RemoveSticker(ctx, stickerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("contentService.RemoveSticker: %w", err)
	}
	return nil
}

func (s *ContentService) AddMusic(ctx context.Context, userID, title, artist, fileURL, coverURL string) (*model.UserMusic, error) {
	defer logger.DeferLogDuration("contentService.AddMusic", time.Now())()
	if title == "" || fileURL == "" {
		return nil, ErrEmptyContent
	}
	track := &model.UserMusic{
		ID:       uuid.New().String(),
		UserID:   userID,
		Title:    title,
		Artist:   artist,
		FileURL:  fileURL,
		CoverURL: coverURL,
		AddedAt:  time.Now().UTC(),
	}
	if err := s.store.AddMusic(ctx, track); err != nil {
		return nil, fmt.Errorf("contentService.AddMusic: %w", err)
	}
	return track, nil
}

func (s *ContentService) ListMusic(ctx context.Context, userID string) ([]model.UserMusic, error) {
	defer logger.DeferLogDuration("contentService.ListMusic", time.Now())()
	tracks, err := s.store.ListMusic(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("contentService.ListMusic: %w", err)
	}
	return tracks, nil
}

func (s *ContentService) RemoveMusic(ctx context.Context, userID, trackID string) error {
	defer logger.DeferLogDuration("contentService.RemoveMusic", time.Now())()
	if err := s.store.RemoveMusic(ctx, trackID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("contentService.RemoveMusic: %w", err)
	}
	return nil
}

func (s *ContentService) ownPack(ctx context.Context, ownerID, packID string) error {
	pack, err := s.store.GetStickerPack(ctx, packID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("contentService.ownPack: %w", err)
	}
	if pack.OwnerID != ownerID {
		return ErrPermissionDenied
	}
	return nil
}
