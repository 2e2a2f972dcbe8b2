package services

import (
	"context"
	"strings"

	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/session"
	"github.com/releasedesk/backend/internal/wizard"
	"github.com/releasedesk/backend/pkg/validation"
)

// SupportedCurrencies are the earnings display currencies
var SupportedCurrencies = []string{"INR", "USD", "EUR", "GBP"}

// ProfileUpdate holds the profile fields an artist may change
type ProfileUpdate struct {
	Name              *string `json:"name"`
	Phone             *string `json:"phone"`
	Country           *string `json:"country"`
	PreferredLanguage *string `json:"preferred_language"`
}

// UserService serves the signed-in artist's profile from the session and
// forwards profile changes
type UserService struct {
	upstream *UpstreamClient
	sessions session.Store
	audit    SubmissionRecorder
}

func NewUserService(upstream *UpstreamClient, sessions session.Store, audit SubmissionRecorder) *UserService {
	return &UserService{upstream: upstream, sessions: sessions, audit: audit}
}

// UpdateProfile validates and forwards the changed fields
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, update ProfileUpdate) (*models.RemoteUser, error) {
	errs := wizard.FieldErrors{}
	fields := map[string]interface{}{}

	if update.Name != nil {
		name := validation.SanitizeString(*update.Name)
		if name == "" {
			errs.Add("name", "Name is required")
		}
		fields["name"] = name
	}
	if update.Phone != nil {
		phone := strings.TrimSpace(*update.Phone)
		if !validation.ValidatePhone(phone) {
			errs.Add("phone", "Invalid phone number")
		}
		fields["phone"] = phone
	}
	if update.Country != nil {
		country := strings.ToUpper(strings.TrimSpace(*update.Country))
		if len(country) != 2 {
			errs.Add("country", "Country must be a two letter code")
		}
		fields["country"] = country
	}
	if update.PreferredLanguage != nil {
		fields["preferredLanguage"] = strings.TrimSpace(*update.PreferredLanguage)
	}
	if !errs.Valid() {
		return nil, errs
	}
	if len(fields) == 0 {
		return nil, wizard.FieldErrors{"profile": "No fields to update"}
	}

	user, err := s.upstream.UpdateUser(ctx, actor.token(), fields)
	record(ctx, s.audit, actor, ActionUpdateProfile, TargetTypeUser, actor.Session.UserID, err, fields)
	if err != nil {
		return nil, err
	}

	actor.Session.User = *user
	if err := s.sessions.Save(ctx, actor.Session); err != nil {
		return nil, err
	}
	return user, nil
}

// SetCurrency stores the earnings display currency on the session
func (s *UserService) SetCurrency(ctx context.Context, sess *models.Session, currency string) error {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	supported := false
	for _, c := range SupportedCurrencies {
		if c == currency {
			supported = true
			break
		}
	}
	if !supported {
		return wizard.FieldErrors{"currency": "Unsupported currency " + currency}
	}
	sess.Currency = currency
	return s.sessions.Save(ctx, sess)
}
