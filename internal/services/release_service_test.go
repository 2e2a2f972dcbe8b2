package services

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func albumJSON(id string, code int) map[string]interface{} {
	return map[string]interface{}{"id": id, "title": "Release " + id, "releaseStatusId": code}
}

func TestReleaseUnknownStatusDisplaysAsDraft(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodGet, "/user/getreleasebyid", okJSON(map[string]interface{}{"data": albumJSON("alb-1", 99)}))
	s := NewReleaseService(env.client, env.recorder)

	view, err := s.Get(context.Background(), env.actor, "alb-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, view.Status)
	assert.False(t, view.CanSubmit, "unknown codes are never submittable")
	assert.False(t, view.CanEdit)
}

func TestReleaseListDefaults(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodGet, "/user/getAlbumsByStatus", okJSON(map[string]interface{}{
		"data":  []map[string]interface{}{albumJSON("a", models.ReleaseStatusCodeDraft), albumJSON("b", 16)},
		"total": 2,
	}))
	s := NewReleaseService(env.client, env.recorder)

	page, err := s.List(context.Background(), env.actor, ListOptions{Limit: 500, Order: "ASC"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.Limit)
	require.Len(t, page.Releases, 2)
	assert.True(t, page.Releases[0].CanSubmit)

	q := env.upstream.Requests("/user/getAlbumsByStatus")[0].Query
	assert.Empty(t, q["releaseStatusId"], "no status filter lists every release")
	assert.Equal(t, "createdAt", q.Get("sortBy"))
	assert.Equal(t, "asc", q.Get("sortOrder"))

	_, err = s.List(context.Background(), env.actor, ListOptions{Sort: "popularity"})
	assert.ErrorContains(t, err, "unknown sort field")
}

func TestReleaseSummaryCountsZeroOnFailure(t *testing.T) {
	env := newTestEnv(t)
	failing := models.StatusTakedown.Codes()[0]
	env.upstream.Handle(http.MethodGet, "/user/getAlbumsByStatus", func(w http.ResponseWriter, r testutil.Request) {
		codes := r.Query["releaseStatusId"]
		if codes[0] == strconv.Itoa(failing) {
			testutil.WriteJSON(w, http.StatusInternalServerError, map[string]string{"message": "db down"})
			return
		}
		testutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": []interface{}{}, "total": len(codes)})
	})
	s := NewReleaseService(env.client, env.recorder)

	summary := s.Summary(context.Background(), env.actor)
	require.Len(t, summary, len(models.AllReleaseStatuses))
	for _, status := range models.AllReleaseStatuses {
		if status == models.StatusTakedown {
			assert.Zero(t, summary[status])
			continue
		}
		assert.Equal(t, len(status.Codes()), summary[status], string(status))
	}
}

func TestSubmitForReview(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.Handle(http.MethodGet, "/user/getreleasebyid", func(w http.ResponseWriter, r testutil.Request) {
		code := models.ReleaseStatusCodeDraft
		if strings.HasPrefix(r.Query.Get("id"), "live") {
			code = 16
		}
		testutil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": albumJSON(r.Query.Get("id"), code)})
	})
	env.upstream.Handle(http.MethodPost, "/user/updateAlbumReleaseStatus", okJSON(map[string]bool{"success": true}))
	s := NewReleaseService(env.client, env.recorder)
	ctx := context.Background()

	view, err := s.SubmitForReview(ctx, env.actor, "draft-1", "  please check  ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, view.Status)
	assert.False(t, view.CanSubmit)

	var body map[string]interface{}
	require.NoError(t, env.upstream.Requests("/user/updateAlbumReleaseStatus")[0].DecodeJSON(&body))
	assert.Equal(t, "please check", body["remark"])

	_, err = s.SubmitForReview(ctx, env.actor, "live-1", "")
	assert.ErrorIs(t, err, ErrReleaseLocked)
	assert.Len(t, env.upstream.Requests("/user/updateAlbumReleaseStatus"), 1)
	assert.Equal(t, []string{ActionSubmitRelease}, env.recorder.Actions())
}
