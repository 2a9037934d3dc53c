package models

import "time"

// Release group primary types as reported by MusicBrainz.
const (
	TypeAlbum       = "Album"
	TypeSingle      = "Single"
	TypeEP          = "EP"
	TypeLive        = "Live"
	TypeCompilation = "Compilation"
	TypeRemix       = "Remix"
	TypeSoundtrack  = "Soundtrack"
	TypeSpokenword  = "Spokenword"
	TypeInterview   = "Interview"
	TypeAudiobook   = "Audiobook"
	TypeOther       = "Other"
)

// OtherTypes are the minor release types covered by the profile's single
// "other" notification switch.
var OtherTypes = []string{TypeSoundtrack, TypeSpokenword, TypeInterview, TypeAudiobook, TypeOther}

// FallbackCoverArtURL is stored when every cover art source came up empty,
// and doubles as the marker that makes a release group eligible for another
// lookup once its cooldown expires.
const FallbackCoverArtURL = "https://via.placeholder.com/250x250.png?text=NOT+FOUND"

// ReleaseGroup is a denormalised per-artist copy of a MusicBrainz release
// group. A release group credited to several artists gets one row per artist;
// the read paths are always "releases of this artist" or "releases of the
// artists this user follows", never the reverse join.
//
// Date is a partial date encoded as YYYYMMDD with zero-filled unknown
// components, see date.go.
type ReleaseGroup struct {
	ID                int64      `json:"id"`
	ArtistID          int64      `json:"artist_id"`
	MBID              string     `json:"mbid"`
	Name              string     `json:"name"`
	Type              string     `json:"type"`
	Date              int        `json:"date"`
	IsDeleted         bool       `json:"is_deleted"`
	CoverArtURL       string     `json:"cover_art_url,omitempty"`
	LastCoverArtCheck *time.Time `json:"last_cover_art_check,omitempty"`
}

// DateStr renders the partial date for display.
func (rg *ReleaseGroup) DateStr() string { return PartialDateString(rg.Date) }
