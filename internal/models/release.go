package models

// ArtistRole tags how an artist is credited on a track
type ArtistRole string

const (
	RolePrimary   ArtistRole = "primary"
	RoleFeaturing ArtistRole = "featuring"
	RoleLyricist  ArtistRole = "lyricist"
	RoleComposer  ArtistRole = "composer"
	RoleProducer  ArtistRole = "producer"
)

const (
	MaxPrimaryArtists   = 3
	MaxFeaturingArtists = 10
)

// Artist is built ad hoc per track in the wizard. ID is generated client side.
type Artist struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	LegalName     string     `json:"legal_name,omitempty"`
	SpotifyURL    string     `json:"spotify_url,omitempty"`
	AppleMusicURL string     `json:"apple_music_url,omitempty"`
	InstagramURL  string     `json:"instagram_url,omitempty"`
	YouTubeURL    string     `json:"youtube_url,omitempty"`
	Role          ArtistRole `json:"role"`
}

// SocialLinks returns the non-empty social URLs keyed by field name
func (a Artist) SocialLinks() map[string]string {
	links := map[string]string{}
	for field, value := range map[string]string{
		"spotify_url":     a.SpotifyURL,
		"apple_music_url": a.AppleMusicURL,
		"instagram_url":   a.InstagramURL,
		"youtube_url":     a.YouTubeURL,
	} {
		if value != "" {
			links[field] = value
		}
	}
	return links
}

// StagedFile points at an upload held in the staging bucket until it is
// forwarded to the distribution API
type StagedFile struct {
	Key       string `json:"key"`
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Duration  int    `json:"duration,omitempty"` // seconds, audio only
}

// Track is a single recording inside a release
type Track struct {
	RemoteID         string      `json:"remote_id,omitempty"`
	Name             string      `json:"name"`
	Language         string      `json:"language"`
	Genre            string      `json:"genre"`
	SubGenre         string      `json:"sub_genre,omitempty"`
	Mood             string      `json:"mood,omitempty"`
	Explicit         bool        `json:"explicit"`
	ISRC             string      `json:"isrc,omitempty"`
	PrimaryArtists   []Artist    `json:"primary_artists"`
	FeaturingArtists []Artist    `json:"featuring_artists"`
	Lyricists        []Artist    `json:"lyricists"`
	Composers        []Artist    `json:"composers"`
	Producers        []Artist    `json:"producers"`
	Audio            *StagedFile `json:"audio,omitempty"`
}

// Credits returns every artist credited on the track
func (t Track) Credits() []Artist {
	var all []Artist
	for _, group := range [][]Artist{t.PrimaryArtists, t.FeaturingArtists, t.Lyricists, t.Composers, t.Producers} {
		all = append(all, group...)
	}
	return all
}

// Release is the album or single assembled by the release wizard
type Release struct {
	RemoteID    string      `json:"remote_id,omitempty"`
	Title       string      `json:"title"`
	ReleaseDate string      `json:"release_date"` // YYYY-MM-DD
	Label       string      `json:"label"`
	Artwork     *StagedFile `json:"artwork,omitempty"`
	ContentID   bool        `json:"content_id"`
	Tracks      []Track     `json:"tracks"`
}

// RemoteTrack is a track as returned by the distribution API
type RemoteTrack struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ISRC     string `json:"isrc"`
	Language string `json:"language"`
	Genre    string `json:"genre"`
	Explicit bool   `json:"explicit"`
	AudioURL string `json:"audioUrl"`
}

// RemoteAlbum is a release as returned by the distribution API
type RemoteAlbum struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Title           string        `json:"title"`
	ReleaseDate     string        `json:"releaseDate"`
	Label           string        `json:"label"`
	ArtworkURL      string        `json:"artworkUrl"`
	ContentID       bool          `json:"contentId"`
	ReleaseStatusID int           `json:"releaseStatusId"`
	Remark          string        `json:"remark"`
	Tracks          []RemoteTrack `json:"tracks"`
}

// Status maps the backend status code to its display category
func (a RemoteAlbum) Status() (ReleaseStatus, bool) {
	return ReleaseStatusFromCode(a.ReleaseStatusID)
}

// RemoteArtist is an artist credit as returned by getAllArtistFromAlbumId
type RemoteArtist struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LegalName string `json:"legalName"`
	Role      string `json:"role"`
	TrackID   string `json:"trackId"`
}

// AlbumPage is one page of getAlbumsByStatus
type AlbumPage struct {
	Albums []RemoteAlbum `json:"data"`
	Total  int           `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
}
