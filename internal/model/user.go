package model

import "time"

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
	PresenceAway    PresenceStatus = "away"
	PresenceHidden  PresenceStatus = "hidden"
)

type User struct {
	ID                string         `json:"id"`
	Username          string         `json:"username"`
	Bio               string         `json:"bio,omitempty"`
	AvatarURL         string         `json:"avatar_url,omitempty"`
	PrivacySearchable bool           `json:"privacy_searchable"`
	PrivacyListable   bool           `json:"privacy_listable"`
	Presence          PresenceStatus `json:"presence_status"`
	LastSeenAt        time.Time      `json:"last_seen_at"`
	IsSuperuser       bool           `json:"-"`
	IsBanned          bool           `json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
}

type UserPublic struct {
	ID         string         `json:"id"`
	Username   string         `json:"username"`
	AvatarURL  string         `json:"avatar_url,omitempty"`
	Presence   PresenceStatus `json:"presence_status"`
	LastSeenAt time.Time      `json:"last_seen_at"`
}

func (u *User) ToPublic() UserPublic {
	p := UserPublic{
		ID:         u.ID,
		Username:   u.Username,
		AvatarURL:  u.AvatarURL,
		Presence:   u.Presence,
		LastSeenAt: u.LastSeenAt,
	}
	if u.Presence == PresenceHidden {
		p.Presence = PresenceOffline
		p.LastSeenAt = time.Time{}
	}
	return p
}
