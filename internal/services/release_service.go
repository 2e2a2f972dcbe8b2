package services

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/releasedesk/backend/internal/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var (
	ErrReleaseLocked = errors.New("release can only be submitted while it is a draft")
	ErrUnknownSort   = errors.New("unknown sort field")
)

// ReleaseView is a release with its display status resolved
type ReleaseView struct {
	models.RemoteAlbum
	Status            models.ReleaseStatus `json:"status"`
	StatusDescription string               `json:"status_description"`
	CanEdit           bool                 `json:"can_edit"`
	CanSubmit         bool                 `json:"can_submit"`
}

// ReleasePage is one page of releases for the dashboard table
type ReleasePage struct {
	Releases []ReleaseView `json:"releases"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
}

// ListOptions are the dashboard table filters
type ListOptions struct {
	Status models.ReleaseStatus
	Page   int
	Limit  int
	Sort   string
	Order  string
}

// Summary is the number of releases per status category
type Summary map[models.ReleaseStatus]int

var sortFields = map[string]string{
	"":             "createdAt",
	"created_at":   "createdAt",
	"release_date": "releaseDate",
	"title":        "title",
}

// ReleaseService reads releases from the distribution API and resolves their
// display status
type ReleaseService struct {
	upstream *UpstreamClient
	audit    SubmissionRecorder
}

func NewReleaseService(upstream *UpstreamClient, audit SubmissionRecorder) *ReleaseService {
	return &ReleaseService{upstream: upstream, audit: audit}
}

// resolve maps the status code of a release. Unknown codes display as draft
// and are logged, never silently accepted.
func resolve(album models.RemoteAlbum) ReleaseView {
	status, ok := album.Status()
	if !ok {
		log.WithFields(log.Fields{
			"release_id": album.ID,
			"code":       album.ReleaseStatusID,
		}).Warn("unknown release status code")
	}
	return ReleaseView{
		RemoteAlbum:       album,
		Status:            status,
		StatusDescription: models.DescribeReleaseStatus(album.ReleaseStatusID),
		CanEdit:           ok && status.CanEdit(),
		CanSubmit:         ok && status.CanSubmit(),
	}
}

// Get fetches one release of the signed-in artist
func (s *ReleaseService) Get(ctx context.Context, actor Actor, id string) (*ReleaseView, error) {
	album, err := s.upstream.GetRelease(ctx, actor.token(), id, actor.Session.UserID)
	if err != nil {
		return nil, err
	}
	view := resolve(*album)
	return &view, nil
}

// Artists lists the credits of a release
func (s *ReleaseService) Artists(ctx context.Context, actor Actor, id string) ([]models.RemoteArtist, error) {
	return s.upstream.GetReleaseArtists(ctx, actor.token(), id)
}

// List returns one page of releases in a status category
func (s *ReleaseService) List(ctx context.Context, actor Actor, opts ListOptions) (*ReleasePage, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = defaultPageSize
	}
	if opts.Limit > maxPageSize {
		opts.Limit = maxPageSize
	}
	sortBy, ok := sortFields[opts.Sort]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownSort, "sort %q", opts.Sort)
	}
	order := strings.ToLower(opts.Order)
	if order != "asc" {
		order = "desc"
	}

	query := AlbumQuery{Page: opts.Page, Limit: opts.Limit, SortBy: sortBy, SortOrder: order}
	if opts.Status != "" {
		query.StatusCodes = opts.Status.Codes()
	}
	page, err := s.upstream.ListReleases(ctx, actor.token(), query)
	if err != nil {
		return nil, err
	}

	out := &ReleasePage{Releases: make([]ReleaseView, 0, len(page.Albums)), Total: page.Total, Page: opts.Page, Limit: opts.Limit}
	for _, album := range page.Albums {
		out.Releases = append(out.Releases, resolve(album))
	}
	return out, nil
}

// Summary counts releases per status category. The counts are fetched
// concurrently; a category whose request fails counts as zero.
func (s *ReleaseService) Summary(ctx context.Context, actor Actor) Summary {
	summary := Summary{}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, status := range models.AllReleaseStatuses {
		wg.Add(1)
		go func(status models.ReleaseStatus) {
			defer wg.Done()
			total := 0
			page, err := s.upstream.ListReleases(ctx, actor.token(), AlbumQuery{StatusCodes: status.Codes(), Page: 1, Limit: 1})
			if err != nil {
				log.WithError(err).WithField("status", status).Warn("could not count releases")
			} else {
				total = page.Total
			}
			mu.Lock()
			summary[status] = total
			mu.Unlock()
		}(status)
	}
	wg.Wait()
	return summary
}

// SubmitForReview moves a draft release to under review
func (s *ReleaseService) SubmitForReview(ctx context.Context, actor Actor, id, remark string) (*ReleaseView, error) {
	view, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !view.CanSubmit {
		return nil, errors.Wrapf(ErrReleaseLocked, "release %s is %s", id, view.Status)
	}

	err = s.upstream.UpdateReleaseStatus(ctx, actor.token(), id, models.ReleaseStatusCodeUnderReview, strings.TrimSpace(remark))
	record(ctx, s.audit, actor, ActionSubmitRelease, TargetTypeAlbum, id, err, nil)
	if err != nil {
		return nil, err
	}

	view.ReleaseStatusID = models.ReleaseStatusCodeUnderReview
	updated := resolve(view.RemoteAlbum)
	return &updated, nil
}

// IsNotFound reports whether err means the release does not exist or is not visible
func IsNotFound(err error) bool {
	return IsUpstreamStatus(err, http.StatusNotFound)
}
