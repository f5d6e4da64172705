package model

import "time"

// StickerPack and company are user-owned media references, independent of
// room/channel scope. Upload and thumbnailing happen outside this service.

type StickerPack struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Sticker struct {
	ID       string `json:"id"`
	PackID   string `json:"pack_id"`
	FileURL  string `json:"file_url"`
	Emoji    string `json:"emoji,omitempty"`
}

type UserMusic struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	Title    string    `json:"title"`
	Artist   string    `json:"artist,omitempty"`
	FileURL  string    `json:"file_url"`
	CoverURL string    `json:"cover_url,omitempty"`
	AddedAt  time.Time `json:"added_at"`
}
