package services

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/releasedesk/backend/internal/models"
	"gorm.io/gorm"
)

// Submission log actions
const (
	ActionUpdateProfile  = "update_profile"
	ActionKYC            = "kyc_verification"
	ActionCreateAlbum    = "create_album"
	ActionTrackDetails   = "add_track_details"
	ActionTrackArtists   = "add_track_artists"
	ActionTrackAudio     = "upload_track_audio"
	ActionSubmitRelease  = "submit_release"
	ActionLogin          = "login"
	ActionRegister       = "register"
	ActionLogout         = "logout"
	TargetTypeUser       = "user"
	TargetTypeAlbum      = "album"
	TargetTypeTrack      = "track"
	defaultAuditPageSize = 20
)

// Actor is the session and client behind a request
type Actor struct {
	Session   *models.Session
	IPAddress string
	UserAgent string
}

func (a Actor) token() string {
	if a.Session == nil {
		return ""
	}
	return a.Session.UpstreamToken
}

// SubmissionRecorder stores submission log entries
type SubmissionRecorder interface {
	Record(ctx context.Context, entry *models.SubmissionLog) error
}

// AuditService keeps the submission log in postgres
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Migrate creates or updates the submission log table
func (s *AuditService) Migrate() error {
	return errors.Wrap(s.db.AutoMigrate(&models.SubmissionLog{}), "migrate submission log")
}

func (s *AuditService) Record(ctx context.Context, entry *models.SubmissionLog) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(entry).Error, "record submission")
}

// ListForUser returns a page of a user's submissions, newest first
func (s *AuditService) ListForUser(ctx context.Context, userID string, page, limit int, action string) ([]models.SubmissionLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = defaultAuditPageSize
	}

	var logs []models.SubmissionLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.SubmissionLog{}).Where("user_id = ?", userID)
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count submissions")
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&logs).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list submissions")
	}
	return logs, total, nil
}

// ActionCount returns how often a user performed action since the given time
func (s *AuditService) ActionCount(ctx context.Context, userID, action string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.SubmissionLog{}).
		Where("user_id = ? AND action = ? AND created_at > ?", userID, action, since).
		Count(&count).Error
	return count, errors.Wrap(err, "count actions")
}

// record writes one entry for an upstream call. A failing audit write is
// logged and never fails the call it describes.
func record(ctx context.Context, rec SubmissionRecorder, actor Actor, action, targetType, targetID string, callErr error, details map[string]interface{}) {
	if rec == nil {
		return
	}
	entry := &models.SubmissionLog{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Success:    callErr == nil,
		StatusCode: http.StatusOK,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
	if actor.Session != nil {
		entry.UserID = actor.Session.UserID
		entry.SessionID = actor.Session.ID
	}
	if callErr != nil {
		entry.Error = callErr.Error()
		entry.StatusCode = 0
		var ue *UpstreamError
		if errors.As(callErr, &ue) {
			entry.StatusCode = ue.StatusCode
		}
	}
	if details != nil {
		if b, err := json.Marshal(details); err == nil {
			entry.Details = string(b)
		}
	}

	fields := log.Fields{
		"action":  action,
		"target":  targetID,
		"user_id": entry.UserID,
		"success": entry.Success,
	}
	if callErr != nil {
		log.WithFields(fields).WithError(callErr).Warn("submission failed")
	} else {
		log.WithFields(fields).Info("submission forwarded")
	}

	if err := rec.Record(ctx, entry); err != nil {
		log.WithError(err).WithField("action", action).Error("could not write submission log")
	}
}
