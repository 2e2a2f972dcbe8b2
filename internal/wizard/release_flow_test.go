package wizard

import (
	"fmt"
	"testing"

	"github.com/releasedesk/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateReleaseInfo(t *testing.T) {
	errs := ValidateReleaseInfo(models.Release{ReleaseDate: "20/11/2026"})
	assert.Equal(t, []string{"artwork", "label", "release_date", "title"}, errs.Fields())
	assert.Equal(t, "Release date must be in YYYY-MM-DD format", errs["release_date"])

	errs = ValidateReleaseInfo(completeReleaseForm().Release)
	assert.True(t, errs.Valid())
}

func TestValidateTrackDetails(t *testing.T) {
	errs := ValidateTrackDetails(nil)
	assert.Contains(t, errs, "tracks")

	errs = ValidateTrackDetails([]models.Track{
		{Name: "ok", Language: "en", Genre: "Rock"},
		{ISRC: "bad"},
	})
	assert.Equal(t, []string{"tracks[1].genre", "tracks[1].isrc", "tracks[1].language", "tracks[1].name"}, errs.Fields())
}

func TestArtistOverlapMakesStepIncomplete(t *testing.T) {
	form := completeReleaseForm()
	require.NoError(t, form.SetTrackArtists(0, TrackArtists{
		PrimaryArtists:   []models.Artist{{ID: "a1", Name: "Asha"}, {ID: "a2", Name: "Bela"}},
		FeaturingArtists: []models.Artist{{ID: "a2", Name: "Bela"}},
		Composers:        []models.Artist{{ID: "c1", Name: "Ravi"}},
	}))

	errs := ValidateArtistInfo(form.Release.Tracks)
	assert.Equal(t, "An artist cannot be both primary and featuring on the same track", errs["tracks[0].featuring_artists"])

	c := Restore(form, StepArtistInfo, nil)
	assert.False(t, c.StepComplete(StepArtistInfo))
	assert.ErrorIs(t, c.Next(), ErrStepIncomplete)
	assert.Equal(t, StepArtistInfo, c.Current())
}

func TestArtistLimits(t *testing.T) {
	var primary, featuring []models.Artist
	for i := 0; i < models.MaxPrimaryArtists+1; i++ {
		primary = append(primary, models.Artist{ID: fmt.Sprintf("p%d", i), Name: "P"})
	}
	for i := 0; i < models.MaxFeaturingArtists+1; i++ {
		featuring = append(featuring, models.Artist{ID: fmt.Sprintf("f%d", i), Name: "F"})
	}
	tracks := []models.Track{{PrimaryArtists: primary, FeaturingArtists: featuring, Composers: []models.Artist{{ID: "c", Name: "C"}}}}

	errs := ValidateArtistInfo(tracks)
	assert.Equal(t, "At most 3 primary artists are allowed", errs["tracks[0].primary_artists"])
	assert.Equal(t, "At most 10 featuring artists are allowed", errs["tracks[0].featuring_artists"])
}

func TestArtistNamesAndLinks(t *testing.T) {
	tracks := []models.Track{{
		PrimaryArtists: []models.Artist{{ID: "p", Name: " ", SpotifyURL: "spotify:artist:1"}},
		Composers:      []models.Artist{{ID: "c", Name: "C", InstagramURL: "https://instagram.com/c"}},
	}}
	errs := ValidateArtistInfo(tracks)
	assert.Equal(t, []string{"tracks[0].primary_artists[0].name", "tracks[0].primary_artists[0].spotify_url"}, errs.Fields())
}

func TestSetTrackArtistsTagsRolesAndIDs(t *testing.T) {
	form := completeReleaseForm()
	require.NoError(t, form.SetTrackArtists(0, TrackArtists{
		PrimaryArtists: []models.Artist{{Name: " Asha "}},
		Producers:      []models.Artist{{ID: "x", Name: "Dev"}},
	}))

	track := form.Release.Tracks[0]
	require.Len(t, track.PrimaryArtists, 1)
	assert.NotEmpty(t, track.PrimaryArtists[0].ID)
	assert.Equal(t, "Asha", track.PrimaryArtists[0].Name)
	assert.Equal(t, models.RolePrimary, track.PrimaryArtists[0].Role)
	assert.Equal(t, models.RoleProducer, track.Producers[0].Role)
	assert.False(t, form.Confirmed)

	assert.ErrorIs(t, form.SetTrackArtists(3, TrackArtists{}), ErrTrackIndex)
}

func TestSetTracksKeepsCreditsByPosition(t *testing.T) {
	form := completeReleaseForm()
	form.SetTracks([]TrackDetails{
		{Name: "Cloudburst (Edit)", Language: "hi", Genre: "Pop"},
		{Name: "Second", Language: "en", Genre: "Rock", ISRC: " usrc17607839 "},
	})

	require.Len(t, form.Release.Tracks, 2)
	assert.Equal(t, "Cloudburst (Edit)", form.Release.Tracks[0].Name)
	assert.NotNil(t, form.Release.Tracks[0].Audio)
	assert.Len(t, form.Release.Tracks[0].PrimaryArtists, 1)
	assert.Nil(t, form.Release.Tracks[1].Audio)
	assert.Equal(t, "USRC17607839", form.Release.Tracks[1].ISRC)

	errs := ValidateUpload(form.Release.Tracks)
	assert.Equal(t, []string{"tracks[1].audio"}, errs.Fields())
}

func TestSetTrackAudioReturnsPrevious(t *testing.T) {
	form := completeReleaseForm()
	replacement := &models.StagedFile{Key: "staging/s/audio/new.wav"}
	previous, err := form.SetTrackAudio(0, replacement)
	require.NoError(t, err)
	assert.Equal(t, "staging/s/audio/t.flac", previous.Key)
	assert.Equal(t, replacement, form.Release.Tracks[0].Audio)

	_, err = form.SetTrackAudio(-1, replacement)
	assert.ErrorIs(t, err, ErrTrackIndex)
}

func TestValidateReview(t *testing.T) {
	assert.Contains(t, ValidateReview(false), "confirmed")
	assert.True(t, ValidateReview(true).Valid())
}

func TestUnknownStep(t *testing.T) {
	form := &ReleaseForm{}
	assert.Contains(t, form.Validate(9), "step")
}
