package services

import (
	"context"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/releasedesk/backend/internal/config"
	"github.com/releasedesk/backend/internal/models"
	"github.com/releasedesk/backend/internal/session"
	"github.com/releasedesk/backend/internal/wizard"
	jwtpkg "github.com/releasedesk/backend/pkg/jwt"
	"github.com/releasedesk/backend/pkg/validation"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Tokens are handed to the browser after sign in
type Tokens struct {
	SessionToken string `json:"session_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// AuthService signs artists in against the distribution API and keeps the
// resulting upstream token in a server side session
type AuthService struct {
	upstream *UpstreamClient
	sessions session.Store
	staging  *StagingService
	audit    SubmissionRecorder
	cfg      *config.Config
}

func NewAuthService(upstream *UpstreamClient, sessions session.Store, staging *StagingService, audit SubmissionRecorder, cfg *config.Config) *AuthService {
	return &AuthService{
		upstream: upstream,
		sessions: sessions,
		staging:  staging,
		audit:    audit,
		cfg:      cfg,
	}
}

// Login authenticates with email and password and opens a session
func (s *AuthService) Login(ctx context.Context, email, password string, actor Actor) (*Tokens, *models.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	errs := wizard.FieldErrors{}
	if !validation.ValidateEmail(email) {
		errs.Add("email", "Invalid email address")
	}
	if password == "" {
		errs.Add("password", "Password is required")
	}
	if !errs.Valid() {
		return nil, nil, errs
	}

	res, err := s.upstream.Login(ctx, email, password)
	if err != nil {
		record(ctx, s.audit, actor, ActionLogin, TargetTypeUser, email, err, nil)
		return nil, nil, err
	}
	return s.open(ctx, res, ActionLogin, actor)
}

// Register creates the account upstream and opens a session for it
func (s *AuthService) Register(ctx context.Context, req RegisterRequest, actor Actor) (*Tokens, *models.Session, error) {
	req.Name = validation.SanitizeString(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Phone = strings.TrimSpace(req.Phone)

	errs := wizard.FieldErrors{}
	if req.Name == "" {
		errs.Add("name", "Name is required")
	}
	if !validation.ValidateEmail(req.Email) {
		errs.Add("email", "Invalid email address")
	}
	if !validation.ValidatePassword(req.Password) {
		errs.Add("password", "Password must be at least 8 characters with upper and lower case letters, a digit and a special character")
	}
	if req.Phone != "" && !validation.ValidatePhone(req.Phone) {
		errs.Add("phone", "Invalid phone number")
	}
	if !errs.Valid() {
		return nil, nil, errs
	}

	res, err := s.upstream.Register(ctx, req)
	if err != nil {
		record(ctx, s.audit, actor, ActionRegister, TargetTypeUser, req.Email, err, nil)
		return nil, nil, err
	}
	return s.open(ctx, res, ActionRegister, actor)
}

func (s *AuthService) open(ctx context.Context, res *AuthResult, action string, actor Actor) (*Tokens, *models.Session, error) {
	now := time.Now().UTC()
	sess := &models.Session{
		ID:            uuid.New().String(),
		UserID:        res.User.ID,
		UpstreamToken: res.Token,
		User:          res.User,
		Currency:      s.cfg.DefaultCurrency,
		CreatedAt:     now,
		LastSeenAt:    now,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issue(sess, true)
	if err != nil {
		return nil, nil, err
	}
	actor.Session = sess
	record(ctx, s.audit, actor, action, TargetTypeUser, sess.UserID, nil, nil)
	return tokens, sess, nil
}

func (s *AuthService) issue(sess *models.Session, withRefresh bool) (*Tokens, error) {
	access, err := jwtpkg.GenerateSessionToken(sess.ID, sess.UserID, s.cfg.JWTSecret, s.cfg.JWTSessionTokenDuration)
	if err != nil {
		return nil, errors.Wrap(err, "sign session token")
	}
	tokens := &Tokens{SessionToken: access, ExpiresIn: int64(s.cfg.JWTSessionTokenDuration.Seconds())}
	if withRefresh {
		refresh, err := jwtpkg.GenerateRefreshToken(sess.ID, sess.UserID, s.cfg.JWTSecret, s.cfg.JWTRefreshTokenDuration)
		if err != nil {
			return nil, errors.Wrap(err, "sign refresh token")
		}
		tokens.RefreshToken = refresh
	}
	return tokens, nil
}

// Refresh mints a new session token while the session still exists
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	claims, err := s.validate(ctx, refreshToken, jwtpkg.RefreshToken)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	sess.LastSeenAt = time.Now().UTC()
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return s.issue(sess, false)
}

// Authenticate validates a session token and loads its session
func (s *AuthService) Authenticate(ctx context.Context, token string) (*jwtpkg.Claims, *models.Session, error) {
	claims, err := s.validate(ctx, token, jwtpkg.SessionToken)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	return claims, sess, nil
}

func (s *AuthService) validate(ctx context.Context, token string, want jwtpkg.TokenType) (*jwtpkg.Claims, error) {
	claims, err := jwtpkg.ValidateToken(token, s.cfg.JWTSecret)
	if err != nil || claims.TokenType != want || claims.SessionID == "" {
		return nil, ErrInvalidToken
	}

	// If redis is down the session lookup fails anyway, so the blacklist check
	// only warns here
	revoked, err := s.sessions.IsBlacklisted(ctx, claims.SessionID)
	if err != nil {
		log.WithError(err).Warn("could not check token blacklist")
	} else if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout ends the session upstream and locally and revokes its tokens
func (s *AuthService) Logout(ctx context.Context, actor Actor) error {
	sess := actor.Session
	if sess == nil {
		return session.ErrNotFound
	}

	err := s.upstream.Logout(ctx, sess.UpstreamToken)
	record(ctx, s.audit, actor, ActionLogout, TargetTypeUser, sess.UserID, err, nil)
	if err != nil {
		// The local session ends regardless
		log.WithError(err).WithField("user_id", sess.UserID).Warn("upstream logout failed")
	}

	if s.staging != nil {
		if err := s.staging.DiscardSession(ctx, sess.ID); err != nil {
			log.WithError(err).WithField("session_id", sess.ID).Warn("could not discard staged uploads")
		}
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return err
	}
	return s.sessions.Blacklist(ctx, sess.ID, s.cfg.JWTRefreshTokenDuration)
}
