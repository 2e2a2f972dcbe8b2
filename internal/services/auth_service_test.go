package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/releasedesk/backend/internal/session"
	"github.com/releasedesk/backend/internal/wizard"
	jwtpkg "github.com/releasedesk/backend/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(env *testEnv) *AuthService {
	return NewAuthService(env.client, env.sessions, env.staging, env.recorder, env.cfg)
}

func routeLogin(env *testEnv) {
	env.upstream.Handle(http.MethodPost, "/user/loginEmailPass", okJSON(map[string]interface{}{
		"data": map[string]interface{}{
			"token": "remote-token",
			"user":  map[string]interface{}{"id": "user-7", "name": "Asha Rao", "email": "asha@example.com"},
		},
	}))
}

func TestLoginValidatesBeforeCallingUpstream(t *testing.T) {
	env := newTestEnv(t)
	s := newAuthService(env)

	_, _, err := s.Login(context.Background(), "not-an-email", "", Actor{})
	var fe wizard.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, []string{"email", "password"}, fe.Fields())
	assert.Empty(t, env.upstream.Paths())
}

func TestLoginOpensSession(t *testing.T) {
	env := newTestEnv(t)
	routeLogin(env)
	s := newAuthService(env)
	ctx := context.Background()

	tokens, sess, err := s.Login(ctx, " Asha@Example.com", "Secret1!", Actor{IPAddress: "10.0.0.2"})
	require.NoError(t, err)
	assert.Equal(t, "remote-token", sess.UpstreamToken)
	assert.Equal(t, "user-7", sess.UserID)
	assert.Equal(t, "INR", sess.Currency)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.EqualValues(t, env.cfg.JWTSessionTokenDuration.Seconds(), tokens.ExpiresIn)

	var body map[string]string
	require.NoError(t, env.upstream.Requests("/user/loginEmailPass")[0].DecodeJSON(&body))
	assert.Equal(t, "asha@example.com", body["email"])

	claims, got, err := s.Authenticate(ctx, tokens.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, claims.SessionID)
	assert.Equal(t, "remote-token", got.UpstreamToken)

	require.Len(t, env.recorder.Entries, 1)
	assert.Equal(t, ActionLogin, env.recorder.Entries[0].Action)
	assert.Equal(t, sess.ID, env.recorder.Entries[0].SessionID)
	assert.True(t, env.recorder.Entries[0].Success)
}

func TestLoginFailureIsRecorded(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.JSON(http.MethodPost, "/user/loginEmailPass", http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
	s := newAuthService(env)

	_, _, err := s.Login(context.Background(), "asha@example.com", "wrong", Actor{})
	assert.True(t, IsUpstreamStatus(err, http.StatusUnauthorized))
	require.Len(t, env.recorder.Entries, 1)
	assert.False(t, env.recorder.Entries[0].Success)
	assert.Equal(t, "asha@example.com", env.recorder.Entries[0].TargetID)
}

func TestRegisterPasswordRules(t *testing.T) {
	env := newTestEnv(t)
	s := newAuthService(env)

	_, _, err := s.Register(context.Background(), RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "weak"}, Actor{})
	var fe wizard.FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "password")
	assert.NotContains(t, fe, "email")
}

func TestAuthenticateRejectsWrongTokens(t *testing.T) {
	env := newTestEnv(t)
	s := newAuthService(env)
	ctx := context.Background()

	_, _, err := s.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	refresh, err := jwtpkg.GenerateRefreshToken("sess-1", "user-1", env.cfg.JWTSecret, env.cfg.JWTRefreshTokenDuration)
	require.NoError(t, err)
	_, _, err = s.Authenticate(ctx, refresh)
	assert.ErrorIs(t, err, ErrInvalidToken, "refresh token is not a session token")

	orphan, err := jwtpkg.GenerateSessionToken("gone", "user-1", env.cfg.JWTSecret, env.cfg.JWTSessionTokenDuration)
	require.NoError(t, err)
	_, _, err = s.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestRefreshIssuesSessionToken(t *testing.T) {
	env := newTestEnv(t)
	s := newAuthService(env)

	refresh, err := jwtpkg.GenerateRefreshToken("sess-1", "user-1", env.cfg.JWTSecret, env.cfg.JWTRefreshTokenDuration)
	require.NoError(t, err)
	tokens, err := s.Refresh(context.Background(), refresh)
	require.NoError(t, err)
	assert.Empty(t, tokens.RefreshToken)

	claims, _, err := s.Authenticate(context.Background(), tokens.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestLogoutRevokesSession(t *testing.T) {
	env := newTestEnv(t)
	env.upstream.JSON(http.MethodPost, "/user/logout", http.StatusInternalServerError, map[string]string{"message": "boom"})
	s := newAuthService(env)
	ctx := context.Background()

	_, err := env.staging.Stage(ctx, "sess-1", KindDocument, "id.pdf", int64(len(pdfBytes)), upload("id.pdf", pdfBytes).Body)
	require.NoError(t, err)
	token, err := jwtpkg.GenerateSessionToken("sess-1", "user-1", env.cfg.JWTSecret, env.cfg.JWTSessionTokenDuration)
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, env.actor), "upstream failure does not keep the session alive")

	_, err = env.sessions.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.Empty(t, env.objects.Keys())

	_, _, err = s.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	assert.Equal(t, "Bearer upstream-token", env.upstream.Requests("/user/logout")[0].Header.Get("Authorization"))
}
