package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionLog records every call the dashboard forwards to the distribution API
type SubmissionLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID     string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	SessionID  string    `gorm:"type:varchar(64);index" json:"session_id"`
	Action     string    `gorm:"type:varchar(100);not null" json:"action"` // e.g. "create_album", "kyc_verification"
	TargetType string    `gorm:"type:varchar(50)" json:"target_type"`      // e.g. "album", "track", "user"
	TargetID   string    `gorm:"type:varchar(64)" json:"target_id,omitempty"`
	StatusCode int       `json:"status_code"`
	Success    bool      `gorm:"default:false" json:"success"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	Details    string    `gorm:"type:text" json:"details,omitempty"` // JSON string with additional info
	IPAddress  string    `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent  string    `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name for SubmissionLog
func (SubmissionLog) TableName() string {
	return "submission_logs"
}

// BeforeCreate generates a UUID if not set
func (l *SubmissionLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
