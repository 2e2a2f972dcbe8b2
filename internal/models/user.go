package models

import "time"

// RemoteUser is the artist profile owned by the distribution API
type RemoteUser struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Country       string `json:"country,omitempty"`
	KYCVerified   bool   `json:"isKYCVerified"`
	IsOnboarded   bool   `json:"isOnboarded"`
	ProfileImage  string `json:"profileImage,omitempty"`
	PreferredLang string `json:"preferredLanguage,omitempty"`
}

// Session is one signed-in dashboard session. It carries what the browser used to
// keep in local storage: the upstream bearer token and the currency preference.
type Session struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	UpstreamToken string     `json:"upstream_token"`
	User          RemoteUser `json:"user"`
	Currency      string     `json:"currency"`
	CreatedAt     time.Time  `json:"created_at"`
	LastSeenAt    time.Time  `json:"last_seen_at"`
}
