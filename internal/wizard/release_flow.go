package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/pkg/validation"
)

// Release wizard steps
const (
	StepReleaseInfo = iota + 1
	StepTrackDetails
	StepArtistInfo
	StepUpload
	StepReview
)

var releaseStepNames = map[int]string{
	StepReleaseInfo:  "release-info",
	StepTrackDetails: "track-details",
	StepArtistInfo:   "artist-info",
	StepUpload:       "upload",
	StepReview:       "review",
}

const releaseDateLayout = "2006-01-02"

var ErrTrackIndex = errors.New("track index out of range")

// ReleaseInfo is the field set of the release-info step
type ReleaseInfo struct {
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
	Label       string `json:"label"`
	ContentID   bool   `json:"content_id"`
}

// TrackDetails is the field set of one track on the track-details step
type TrackDetails struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Genre    string `json:"genre"`
	SubGenre string `json:"sub_genre"`
	Mood     string `json:"mood"`
	Explicit bool   `json:"explicit"`
	ISRC     string `json:"isrc"`
}

// TrackArtists is the field set of one track on the artist-info step
type TrackArtists struct {
	PrimaryArtists   []models.Artist `json:"primary_artists"`
	FeaturingArtists []models.Artist `json:"featuring_artists"`
	Lyricists        []models.Artist `json:"lyricists"`
	Composers        []models.Artist `json:"composers"`
	Producers        []models.Artist `json:"producers"`
}

// ReleaseForm is the in-memory state of the release wizard
type ReleaseForm struct {
	Release   models.Release `json:"release"`
	Confirmed bool           `json:"confirmed"`
	Remark    string         `json:"remark,omitempty"`
}

func (f *ReleaseForm) StepCount() int { return StepReview }

func (f *ReleaseForm) StepName(step int) string { return releaseStepNames[step] }

// Validate runs the validator of step against the form
func (f *ReleaseForm) Validate(step int) FieldErrors {
	switch step {
	case StepReleaseInfo:
		return ValidateReleaseInfo(f.Release)
	case StepTrackDetails:
		return ValidateTrackDetails(f.Release.Tracks)
	case StepArtistInfo:
		return ValidateArtistInfo(f.Release.Tracks)
	case StepUpload:
		return ValidateUpload(f.Release.Tracks)
	case StepReview:
		return ValidateReview(f.Confirmed)
	}
	return FieldErrors{"step": fmt.Sprintf("unknown step %d", step)}
}

// SetReleaseInfo overwrites the release-info fields
func (f *ReleaseForm) SetReleaseInfo(info ReleaseInfo) {
	f.Release.Title = validation.SanitizeString(info.Title)
	f.Release.ReleaseDate = strings.TrimSpace(info.ReleaseDate)
	f.Release.Label = validation.SanitizeString(info.Label)
	f.Release.ContentID = info.ContentID
	f.Confirmed = false
}

// SetArtwork stores the staged artwork
func (f *ReleaseForm) SetArtwork(file *models.StagedFile) {
	f.Release.Artwork = file
	f.Confirmed = false
}

// SetTracks replaces the track metadata. Tracks keep their credits, audio and
// remote id by position; tracks past the new length are dropped.
func (f *ReleaseForm) SetTracks(details []TrackDetails) {
	tracks := make([]models.Track, len(details))
	for i, d := range details {
		if i < len(f.Release.Tracks) {
			tracks[i] = f.Release.Tracks[i]
		}
		tracks[i].Name = validation.SanitizeString(d.Name)
		tracks[i].Language = strings.TrimSpace(d.Language)
		tracks[i].Genre = strings.TrimSpace(d.Genre)
		tracks[i].SubGenre = strings.TrimSpace(d.SubGenre)
		tracks[i].Mood = strings.TrimSpace(d.Mood)
		tracks[i].Explicit = d.Explicit
		tracks[i].ISRC = strings.ToUpper(strings.TrimSpace(d.ISRC))
	}
	f.Release.Tracks = tracks
	f.Confirmed = false
}

// SetTrackArtists replaces the credits of one track. Artists without an id get a
// fresh one and every artist is tagged with the role of its list.
func (f *ReleaseForm) SetTrackArtists(index int, artists TrackArtists) error {
	if index < 0 || index >= len(f.Release.Tracks) {
		return errors.Wrapf(ErrTrackIndex, "track %d", index)
	}
	t := &f.Release.Tracks[index]
	t.PrimaryArtists = tagArtists(artists.PrimaryArtists, models.RolePrimary)
	t.FeaturingArtists = tagArtists(artists.FeaturingArtists, models.RoleFeaturing)
	t.Lyricists = tagArtists(artists.Lyricists, models.RoleLyricist)
	t.Composers = tagArtists(artists.Composers, models.RoleComposer)
	t.Producers = tagArtists(artists.Producers, models.RoleProducer)
	f.Confirmed = false
	return nil
}

// SetTrackAudio stores the staged audio of one track and returns the file it replaced
func (f *ReleaseForm) SetTrackAudio(index int, file *models.StagedFile) (*models.StagedFile, error) {
	if index < 0 || index >= len(f.Release.Tracks) {
		return nil, errors.Wrapf(ErrTrackIndex, "track %d", index)
	}
	previous := f.Release.Tracks[index].Audio
	f.Release.Tracks[index].Audio = file
	f.Confirmed = false
	return previous, nil
}

// Confirm sets the review confirmation and the remark sent with the submission
func (f *ReleaseForm) Confirm(confirmed bool, remark string) {
	f.Confirmed = confirmed
	f.Remark = validation.SanitizeString(remark)
}

func tagArtists(in []models.Artist, role models.ArtistRole) []models.Artist {
	out := make([]models.Artist, 0, len(in))
	for _, a := range in {
		if strings.TrimSpace(a.ID) == "" {
			a.ID = uuid.New().String()
		}
		a.Name = validation.SanitizeString(a.Name)
		a.LegalName = validation.SanitizeString(a.LegalName)
		a.Role = role
		out = append(out, a)
	}
	return out
}

// ValidateReleaseInfo checks the release-info step
func ValidateReleaseInfo(r models.Release) FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(r.Title) == "" {
		errs.Add("title", "Release title is required")
	}
	if strings.TrimSpace(r.ReleaseDate) == "" {
		errs.Add("release_date", "Release date is required")
	} else if _, err := time.Parse(releaseDateLayout, r.ReleaseDate); err != nil {
		errs.Add("release_date", "Release date must be in YYYY-MM-DD format")
	}
	if strings.TrimSpace(r.Label) == "" {
		errs.Add("label", "Label name is required")
	}
	if r.Artwork == nil || r.Artwork.Key == "" {
		errs.Add("artwork", "Artwork is required")
	}
	return errs
}

// ValidateTrackDetails checks the track-details step
func ValidateTrackDetails(tracks []models.Track) FieldErrors {
	errs := FieldErrors{}
	if len(tracks) == 0 {
		errs.Add("tracks", "At least one track is required")
		return errs
	}
	for i, t := range tracks {
		if strings.TrimSpace(t.Name) == "" {
			errs.Add(indexed("tracks", i, "name"), "Track name is required")
		}
		if t.Language == "" {
			errs.Add(indexed("tracks", i, "language"), "Language is required")
		}
		if t.Genre == "" {
			errs.Add(indexed("tracks", i, "genre"), "Genre is required")
		}
		if t.ISRC != "" && !validation.ValidateISRC(t.ISRC) {
			errs.Add(indexed("tracks", i, "isrc"), "Invalid ISRC code")
		}
	}
	return errs
}

// ValidateArtistInfo checks the artist-info step: artist counts, the overlap of
// primary and featuring ids, names and social links
func ValidateArtistInfo(tracks []models.Track) FieldErrors {
	errs := FieldErrors{}
	if len(tracks) == 0 {
		errs.Add("tracks", "At least one track is required")
		return errs
	}
	for i, t := range tracks {
		switch {
		case len(t.PrimaryArtists) == 0:
			errs.Add(indexed("tracks", i, "primary_artists"), "At least one primary artist is required")
		case len(t.PrimaryArtists) > models.MaxPrimaryArtists:
			errs.Add(indexed("tracks", i, "primary_artists"), fmt.Sprintf("At most %d primary artists are allowed", models.MaxPrimaryArtists))
		}
		if len(t.FeaturingArtists) > models.MaxFeaturingArtists {
			errs.Add(indexed("tracks", i, "featuring_artists"), fmt.Sprintf("At most %d featuring artists are allowed", models.MaxFeaturingArtists))
		}
		if overlap := validation.ArtistOverlap(artistIDs(t.PrimaryArtists), artistIDs(t.FeaturingArtists)); len(overlap) > 0 {
			errs.Add(indexed("tracks", i, "featuring_artists"), "An artist cannot be both primary and featuring on the same track")
		}
		if len(t.Composers) == 0 {
			errs.Add(indexed("tracks", i, "composers"), "At least one composer is required")
		}

		groups := []struct {
			field   string
			artists []models.Artist
		}{
			{"primary_artists", t.PrimaryArtists},
			{"featuring_artists", t.FeaturingArtists},
			{"lyricists", t.Lyricists},
			{"composers", t.Composers},
			{"producers", t.Producers},
		}
		for _, g := range groups {
			for j, a := range g.artists {
				prefix := indexed("tracks", i, indexed(g.field, j, ""))
				if strings.TrimSpace(a.Name) == "" {
					errs.Add(prefix+".name", "Artist name is required")
				}
				for field, link := range a.SocialLinks() {
					if !validation.ValidateURL(link) {
						errs.Add(prefix+"."+field, "Invalid URL")
					}
				}
			}
		}
	}
	return errs
}

// ValidateUpload checks that every track has its audio staged
func ValidateUpload(tracks []models.Track) FieldErrors {
	errs := FieldErrors{}
	if len(tracks) == 0 {
		errs.Add("tracks", "At least one track is required")
		return errs
	}
	for i, t := range tracks {
		if t.Audio == nil || t.Audio.Key == "" {
			errs.Add(indexed("tracks", i, "audio"), "Audio file is required")
		}
	}
	return errs
}

// ValidateReview checks the review confirmation
func ValidateReview(confirmed bool) FieldErrors {
	errs := FieldErrors{}
	if !confirmed {
		errs.Add("confirmed", "Please confirm the release details before submitting")
	}
	return errs
}

func artistIDs(artists []models.Artist) []string {
	ids := make([]string, 0, len(artists))
	for _, a := range artists {
		ids = append(ids, a.ID)
	}
	return ids
}
