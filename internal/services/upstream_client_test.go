package services

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamErrorMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.upstream.JSON(http.MethodPost, "/user/loginEmailPass", http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	_, err := env.client.Login(ctx, "asha@example.com", "wrong")
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, http.StatusUnauthorized, ue.StatusCode)
	assert.Equal(t, "Invalid credentials", ue.Message)

	env.upstream.JSON(http.MethodPost, "/user/logout", http.StatusBadRequest, map[string]string{"error": "token missing"})
	assert.EqualError(t, env.client.Logout(ctx, "t"), "token missing")

	env.upstream.Handle(http.MethodPut, "/user/updateUser", func(w http.ResponseWriter, _ testutil.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})
	_, err = env.client.UpdateUser(ctx, "t", map[string]interface{}{"name": "A"})
	assert.EqualError(t, err, "request failed with status 502")
	assert.True(t, IsUpstreamStatus(err, http.StatusBadGateway))
}

func TestUpstreamHeadersAndEnvelope(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodPost, "/user/loginEmailPass", okJSON(map[string]interface{}{
		"data": map[string]interface{}{
			"token": "abc",
			"user":  map[string]interface{}{"id": "u1", "name": "Asha", "isOnboarded": true},
		},
	}))

	res, err := env.client.Login(context.Background(), "asha@example.com", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Token)
	assert.Equal(t, "u1", res.User.ID)
	assert.True(t, res.User.IsOnboarded)

	reqs := env.upstream.Requests("/user/loginEmailPass")
	require.Len(t, reqs, 1)
	assert.Equal(t, "test-client", reqs[0].Header.Get("client-id"))
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
	var body map[string]string
	require.NoError(t, reqs[0].DecodeJSON(&body))
	assert.Equal(t, "asha@example.com", body["email"])
}

func TestUpstreamUnwrappedBody(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodGet, "/user/getAllArtistFromAlbumId", okJSON([]map[string]string{
		{"id": "a1", "name": "Asha", "role": "primary", "trackId": "t1"},
	}))

	artists, err := env.client.GetReleaseArtists(context.Background(), "tok", "alb-1")
	require.NoError(t, err)
	require.Len(t, artists, 1)
	assert.Equal(t, "t1", artists[0].TrackID)

	req := env.upstream.Requests("/user/getAllArtistFromAlbumId")[0]
	assert.Equal(t, "alb-1", req.Query.Get("albumId"))
	assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
}

func TestGetReleaseRetriesWithUserID(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodGet, "/user/getreleasebyid", func(w http.ResponseWriter, r testutil.Request) {
		if r.Query.Get("userId") == "" {
			testutil.WriteJSON(w, http.StatusForbidden, map[string]string{"message": "forbidden"})
			return
		}
		testutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": map[string]interface{}{"id": "alb-1", "releaseStatusId": 16}})
	})

	album, err := env.client.GetRelease(context.Background(), "tok", "alb-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 16, album.ReleaseStatusID)

	reqs := env.upstream.Requests("/user/getreleasebyid")
	require.Len(t, reqs, 2)
	assert.Equal(t, "user-1", reqs[1].Query.Get("userId"))
}

func TestGetReleaseDoesNotRetryOtherErrors(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.JSON(http.MethodGet, "/user/getreleasebyid", http.StatusNotFound, map[string]string{"message": "Release not found"})

	_, err := env.client.GetRelease(context.Background(), "tok", "missing", "user-1")
	assert.True(t, IsNotFound(err))
	assert.Len(t, env.upstream.Requests("/user/getreleasebyid"), 1)
}

func TestCreateAlbumStreamsArtwork(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodPost, "/user/createAlbum", okJSON(map[string]interface{}{"data": map[string]string{"albumId": "alb-9"}}))

	release := models.Release{Title: "Monsoon Tapes", ReleaseDate: "2026-11-20", Label: "Rainfall", ContentID: true}
	art := FilePart{Field: "artwork", Filename: "cover.png", ContentType: "image/png", Body: bytes.NewReader(pngBytes)}
	id, err := env.client.CreateAlbum(context.Background(), "tok", release, art)
	require.NoError(t, err)
	assert.Equal(t, "alb-9", id)

	req := env.upstream.Requests("/user/createAlbum")[0]
	assert.Equal(t, "Monsoon Tapes", req.Form["title"])
	assert.Equal(t, "true", req.Form["contentId"])
	assert.NotContains(t, req.Form, "albumId")
	assert.Equal(t, pngBytes, req.Files["artwork"])
}

func TestAddTrackDetailsChecksIDCount(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodPost, "/user/addTrackDetails", okJSON(map[string]interface{}{"data": []map[string]string{{"id": "t1"}}}))

	_, err := env.client.AddTrackDetails(context.Background(), "tok", "alb-1", []models.Track{{Name: "a"}, {Name: "b"}})
	assert.ErrorContains(t, err, "returned 1 ids for 2 tracks")
}

func TestListReleasesQuery(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodGet, "/user/getAlbumsByStatus", okJSON(map[string]interface{}{
		"data":  []map[string]interface{}{{"id": "a", "releaseStatusId": 1}},
		"total": 7,
	}))

	page, err := env.client.ListReleases(context.Background(), "tok", AlbumQuery{
		StatusCodes: models.StatusTakedown.Codes(),
		Page:        2,
		Limit:       5,
		SortBy:      "title",
		SortOrder:   "asc",
	})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	require.Len(t, page.Albums, 1)

	q := env.upstream.Requests("/user/getAlbumsByStatus")[0].Query
	assert.Equal(t, []string{"3", "4", "5", "17", "18"}, q["releaseStatusId"])
	assert.Equal(t, "2", q.Get("page"))
	assert.Equal(t, "title", q.Get("sortBy"))
}
