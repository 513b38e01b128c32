package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit outcomes. Dependency failures (store, SMS gateway) are kept apart
// from user-input failures so alerting can key on "dependency" alone.
const (
	OutcomeSuccess    = "success"
	OutcomeUserError  = "user_error"
	OutcomeDependency = "dependency_error"
)

// AuditLog records one authentication event: an OTP request, a verification
// attempt, or a token operation.
type AuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Action    string    `gorm:"type:varchar(100);not null;index" json:"action"` // e.g. "otp_request", "otp_verify", "login"
	Phone     string    `gorm:"type:varchar(16);index" json:"phone,omitempty"`
	Purpose   string    `gorm:"type:varchar(32)" json:"purpose,omitempty"`
	Outcome   string    `gorm:"type:varchar(32);not null" json:"outcome"`
	Detail    string    `gorm:"type:text" json:"detail,omitempty"`
	IPAddress string    `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent string    `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
