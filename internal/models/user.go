package models

import "time"

type User struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}

// UserProfile holds the notification preferences for one user. Notify is the
// master switch; EmailVerified gates delivery independently. The per-type
// flags select which release types the user is notified about, with
// NotifyOther covering the five minor types as one switch.
type UserProfile struct {
	UserID            int64  `json:"user_id"`
	Notify            bool   `json:"notify"`
	NotifyAlbum       bool   `json:"notify_album"`
	NotifySingle      bool   `json:"notify_single"`
	NotifyEP          bool   `json:"notify_ep"`
	NotifyLive        bool   `json:"notify_live"`
	NotifyCompilation bool   `json:"notify_compilation"`
	NotifyRemix       bool   `json:"notify_remix"`
	NotifyOther       bool   `json:"notify_other"`
	EmailVerified     bool   `json:"email_verified"`
	ActivationCode    string `json:"-"`
}

// EnabledTypes returns the release types the profile is subscribed to.
func (p *UserProfile) EnabledTypes() []string {
	var types []string
	if p.NotifyAlbum {
		types = append(types, TypeAlbum)
	}
	if p.NotifySingle {
		types = append(types, TypeSingle)
	}
	if p.NotifyEP {
		types = append(types, TypeEP)
	}
	if p.NotifyLive {
		types = append(types, TypeLive)
	}
	if p.NotifyCompilation {
		types = append(types, TypeCompilation)
	}
	if p.NotifyRemix {
		types = append(types, TypeRemix)
	}
	if p.NotifyOther {
		types = append(types, OtherTypes...)
	}
	return types
}

// Wants reports whether the profile is subscribed to the given release type.
func (p *UserProfile) Wants(releaseType string) bool {
	for _, t := range p.EnabledTypes() {
		if t == releaseType {
			return true
		}
	}
	return false
}

// UserArtist is a follow edge between a user and an artist, unique per pair.
type UserArtist struct {
	UserID    int64     `json:"user_id"`
	ArtistID  int64     `json:"artist_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Star marks a release group a user has starred; starred releases sort first
// in the user's release listing.
type Star struct {
	UserID         int64 `json:"user_id"`
	ReleaseGroupID int64 `json:"release_group_id"`
}
