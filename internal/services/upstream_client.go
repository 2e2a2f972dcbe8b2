package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/releasedesk/backend/internal/config"
	"github.com/releasedesk/backend/internal/models"
)

// UpstreamError is a non-2xx answer of the distribution API
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// IsUpstreamStatus reports whether err is an UpstreamError with one of codes
func IsUpstreamStatus(err error, codes ...int) bool {
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		return false
	}
	for _, c := range codes {
		if ue.StatusCode == c {
			return true
		}
	}
	return false
}

// FilePart is one file of a multipart submission
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Body        io.Reader
}

// AuthResult is the answer of the login and register endpoints
type AuthResult struct {
	User  models.RemoteUser `json:"user"`
	Token string            `json:"token"`
}

// RegisterRequest is the body of registerEmailPass
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// AlbumQuery filters getAlbumsByStatus
type AlbumQuery struct {
	StatusCodes []int
	Page        int
	Limit       int
	SortBy      string
	SortOrder   string
}

type upstreamTrack struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Genre    string `json:"genre"`
	SubGenre string `json:"subGenre,omitempty"`
	Mood     string `json:"mood,omitempty"`
	Explicit bool   `json:"explicit"`
	ISRC     string `json:"isrc,omitempty"`
}

type upstreamArtist struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	LegalName     string `json:"legalName,omitempty"`
	Role          string `json:"role"`
	SpotifyURL    string `json:"spotifyUrl,omitempty"`
	AppleMusicURL string `json:"appleMusicUrl,omitempty"`
	InstagramURL  string `json:"instagramUrl,omitempty"`
	YouTubeURL    string `json:"youtubeUrl,omitempty"`
}

type remoteID struct {
	ID      string `json:"id"`
	AlbumID string `json:"albumId"`
	TrackID string `json:"trackId"`
}

func (r remoteID) value() string {
	switch {
	case r.ID != "":
		return r.ID
	case r.AlbumID != "":
		return r.AlbumID
	}
	return r.TrackID
}

// UpstreamClient talks to the remote distribution API. Every call carries the
// client-id header and, once signed in, the session's bearer token. Calls are
// never retried.
type UpstreamClient struct {
	baseURL  string
	clientID string
	client   *http.Client
}

func NewUpstreamClient(cfg *config.Config) *UpstreamClient {
	return &UpstreamClient{
		baseURL:  cfg.UpstreamBaseURL,
		clientID: cfg.UpstreamClientID,
		client:   &http.Client{Timeout: cfg.UpstreamTimeout},
	}
}

// Login signs in with email and password
func (c *UpstreamClient) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/user/loginEmailPass", "", body, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("login response carried no token")
	}
	return &out, nil
}

// Register creates an account and signs it in
func (c *UpstreamClient) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	var out AuthResult
	if err := c.doJSON(ctx, http.MethodPost, "/user/registerEmailPass", "", req, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, errors.New("register response carried no token")
	}
	return &out, nil
}

// Logout invalidates the upstream token
func (c *UpstreamClient) Logout(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/user/logout", token, nil, nil)
}

// UpdateUser saves profile fields and returns the updated user
func (c *UpstreamClient) UpdateUser(ctx context.Context, token string, fields map[string]interface{}) (*models.RemoteUser, error) {
	var out models.RemoteUser
	if err := c.doJSON(ctx, http.MethodPut, "/user/updateUser", token, fields, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitKYC sends the onboarding data with the identity documents
func (c *UpstreamClient) SubmitKYC(ctx context.Context, token string, fields map[string]string, files []FilePart) error {
	return c.doMultipart(ctx, "/user/KYCVerification", token, fields, files, nil)
}

// CreateAlbum creates the release from the release-info step and returns its id
func (c *UpstreamClient) CreateAlbum(ctx context.Context, token string, release models.Release, artwork FilePart) (string, error) {
	fields := map[string]string{
		"title":       release.Title,
		"releaseDate": release.ReleaseDate,
		"label":       release.Label,
		"contentId":   strconv.FormatBool(release.ContentID),
	}
	if release.RemoteID != "" {
		fields["albumId"] = release.RemoteID
	}
	var out remoteID
	if err := c.doMultipart(ctx, "/user/createAlbum", token, fields, []FilePart{artwork}, &out); err != nil {
		return "", err
	}
	if out.value() == "" {
		return "", errors.New("createAlbum response carried no album id")
	}
	return out.value(), nil
}

// AddTrackDetails sends the track metadata and returns the remote track ids in order
func (c *UpstreamClient) AddTrackDetails(ctx context.Context, token, albumID string, tracks []models.Track) ([]string, error) {
	payload := struct {
		AlbumID string          `json:"albumId"`
		Tracks  []upstreamTrack `json:"tracks"`
	}{AlbumID: albumID}
	for _, t := range tracks {
		payload.Tracks = append(payload.Tracks, upstreamTrack{
			ID:       t.RemoteID,
			Name:     t.Name,
			Language: t.Language,
			Genre:    t.Genre,
			SubGenre: t.SubGenre,
			Mood:     t.Mood,
			Explicit: t.Explicit,
			ISRC:     t.ISRC,
		})
	}

	var out []remoteID
	if err := c.doJSON(ctx, http.MethodPost, "/user/addTrackDetails", token, payload, &out); err != nil {
		return nil, err
	}
	if len(out) != len(tracks) {
		return nil, errors.Newf("addTrackDetails returned %d ids for %d tracks", len(out), len(tracks))
	}
	ids := make([]string, len(out))
	for i, r := range out {
		ids[i] = r.value()
	}
	return ids, nil
}

// AddTrackArtists sends the credits of one track
func (c *UpstreamClient) AddTrackArtists(ctx context.Context, token, trackID string, artists []models.Artist) error {
	payload := struct {
		TrackID string           `json:"trackId"`
		Artists []upstreamArtist `json:"artists"`
	}{TrackID: trackID}
	for _, a := range artists {
		payload.Artists = append(payload.Artists, upstreamArtist{
			ID:            a.ID,
			Name:          a.Name,
			LegalName:     a.LegalName,
			Role:          string(a.Role),
			SpotifyURL:    a.SpotifyURL,
			AppleMusicURL: a.AppleMusicURL,
			InstagramURL:  a.InstagramURL,
			YouTubeURL:    a.YouTubeURL,
		})
	}
	return c.doJSON(ctx, http.MethodPost, "/user/addTrackArtists", token, payload, nil)
}

// UploadTrackAudio sends the audio file of one track
func (c *UpstreamClient) UploadTrackAudio(ctx context.Context, token, trackID string, audio FilePart) error {
	return c.doMultipart(ctx, "/user/uploadTrackAudio", token, map[string]string{"trackId": trackID}, []FilePart{audio}, nil)
}

// UpdateReleaseStatus moves a release to statusCode with an optional remark
func (c *UpstreamClient) UpdateReleaseStatus(ctx context.Context, token, albumID string, statusCode int, remark string) error {
	body := map[string]interface{}{
		"albumId":         albumID,
		"releaseStatusId": statusCode,
		"remark":          remark,
	}
	return c.doJSON(ctx, http.MethodPost, "/user/updateAlbumReleaseStatus", token, body, nil)
}

// GetRelease fetches one release. Some deployments only authorize the lookup
// with the owner id, so a 401/403 is retried once with userId attached.
func (c *UpstreamClient) GetRelease(ctx context.Context, token, albumID, userID string) (*models.RemoteAlbum, error) {
	q := url.Values{"id": {albumID}}
	var out models.RemoteAlbum
	err := c.doJSON(ctx, http.MethodGet, "/user/getreleasebyid?"+q.Encode(), token, nil, &out)
	if err != nil && userID != "" && IsUpstreamStatus(err, http.StatusUnauthorized, http.StatusForbidden) {
		q.Set("userId", userID)
		err = c.doJSON(ctx, http.MethodGet, "/user/getreleasebyid?"+q.Encode(), token, nil, &out)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetReleaseArtists lists every artist credited on a release
func (c *UpstreamClient) GetReleaseArtists(ctx context.Context, token, albumID string) ([]models.RemoteArtist, error) {
	q := url.Values{"albumId": {albumID}}
	var out []models.RemoteArtist
	if err := c.doJSON(ctx, http.MethodGet, "/user/getAllArtistFromAlbumId?"+q.Encode(), token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListReleases fetches one page of releases filtered by status codes
func (c *UpstreamClient) ListReleases(ctx context.Context, token string, query AlbumQuery) (*models.AlbumPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(query.Page))
	q.Set("limit", strconv.Itoa(query.Limit))
	if query.SortBy != "" {
		q.Set("sortBy", query.SortBy)
	}
	if query.SortOrder != "" {
		q.Set("sortOrder", query.SortOrder)
	}
	for _, code := range query.StatusCodes {
		q.Add("releaseStatusId", strconv.Itoa(code))
	}

	raw, err := c.do(ctx, http.MethodGet, "/user/getAlbumsByStatus?"+q.Encode(), token, nil, "")
	if err != nil {
		return nil, err
	}
	var page models.AlbumPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, errors.Wrap(err, "decode album page")
	}
	return &page, nil
}

func (c *UpstreamClient) doJSON(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	raw, err := c.do(ctx, method, path, token, body, contentType)
	if err != nil {
		return err
	}
	return decodeData(raw, out)
}

// doMultipart streams fields and files to the API without buffering the files
func (c *UpstreamClient) doMultipart(ctx context.Context, path, token string, fields map[string]string, files []FilePart, out interface{}) error {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeMultipart(mw, fields, files)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	raw, err := c.do(ctx, http.MethodPost, path, token, pr, mw.FormDataContentType())
	pr.Close()
	if err != nil {
		return err
	}
	return decodeData(raw, out)
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, files []FilePart) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return err
		}
	}
	for _, f := range files {
		if f.Body == nil {
			continue
		}
		part, err := mw.CreatePart(filePartHeader(f))
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return errors.Wrapf(err, "copy %s", f.Field)
		}
	}
	return nil
}

func filePartHeader(f FilePart) map[string][]string {
	ctype := f.ContentType
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	return map[string][]string{
		"Content-Disposition": {fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename)},
		"Content-Type":        {ctype},
	}
}

func (c *UpstreamClient) do(ctx context.Context, method, path, token string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.clientID != "" {
		req.Header.Set("client-id", c.clientID)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, req.URL.Path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}

	entry := log.WithFields(log.Fields{
		"method":   method,
		"path":     req.URL.Path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		entry.Warn("upstream request failed")
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: errorMessage(raw, resp.StatusCode)}
	}
	entry.Debug("upstream request")
	return raw, nil
}

// errorMessage extracts the API's message, falling back to a generic one
func errorMessage(raw []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// decodeData unwraps the {"data": ...} envelope when present
func decodeData(raw []byte, out interface{}) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &envelope) == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		raw = envelope.Data
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
