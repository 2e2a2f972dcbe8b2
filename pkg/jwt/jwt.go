package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType represents the type of JWT token
type TokenType string

const (
	SessionToken TokenType = "session"
	RefreshToken TokenType = "refresh"
)

// Claims represents the JWT claims issued to the dashboard
type Claims struct {
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

func sign(claims Claims, secret string, duration time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        claims.SessionID,
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// GenerateSessionToken binds a dashboard session id to the remote user id
func GenerateSessionToken(sessionID, userID, secret string, duration time.Duration) (string, error) {
	return sign(Claims{SessionID: sessionID, UserID: userID, TokenType: SessionToken}, secret, duration)
}

// GenerateRefreshToken generates a longer lived token that can mint a new session
// token for the same session while the session still exists
func GenerateRefreshToken(sessionID, userID, secret string, duration time.Duration) (string, error) {
	return sign(Claims{SessionID: sessionID, UserID: userID, TokenType: RefreshToken}, secret, duration)
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// IsTokenValid checks if a token is valid
func IsTokenValid(tokenString string, secret string, expectedType TokenType) bool {
	claims, err := ValidateToken(tokenString, secret)
	if err != nil {
		return false
	}

	return claims.TokenType == expectedType
}
