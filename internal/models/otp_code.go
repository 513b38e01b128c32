package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OtpPurpose partitions OTP issuance and verification into independent
// channels for the same phone number. A code issued for one purpose is never
// valid for another.
type OtpPurpose string

const (
	PurposeLogin               OtpPurpose = "login"
	PurposePaymentConfirmation OtpPurpose = "payment_confirmation"
	PurposePhoneVerification   OtpPurpose = "phone_verification"
	PurposePasswordReset       OtpPurpose = "password_reset"
)

// Valid reports whether p is a known purpose.
func (p OtpPurpose) Valid() bool {
	switch p {
	case PurposeLogin, PurposePaymentConfirmation, PurposePhoneVerification, PurposePasswordReset:
		return true
	}
	return false
}

// OtpCode is one issuance attempt. Several unused, unexpired codes may exist
// at the same time for the same phone and purpose; verification always picks
// the most recently created one. Rows past ExpiresAt can be deleted at any
// time, they can never verify again.
type OtpCode struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	PhoneNumber string     `gorm:"not null;index:idx_otp_phone_created" json:"phone_number"`
	Code        string     `gorm:"type:varchar(6);not null" json:"-"`
	Purpose     OtpPurpose `gorm:"type:varchar(32);not null;index" json:"purpose"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	IsUsed      bool       `gorm:"not null;default:false" json:"is_used"`
	UsedAt      *time.Time `gorm:"default:null" json:"used_at,omitempty"`
	CreatedAt   time.Time  `gorm:"index:idx_otp_phone_created" json:"created_at"`
	UpdatedAt   time.Time  `json:"-"`
}

func (o *OtpCode) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
