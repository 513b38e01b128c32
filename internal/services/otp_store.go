package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scolarfaso/backend/internal/models"
	"gorm.io/gorm"
)

// OTPStore is the persistence contract of the OTP service. The GORM
// implementation below is the production one; tests swap in an in-memory
// store.
type OTPStore interface {
	// CountRecent counts rows for a phone number, any purpose, created at or
	// after windowStart.
	CountRecent(phoneNumber string, windowStart time.Time) (int64, error)

	// Insert persists a new code row.
	Insert(otp *models.OtpCode) error

	// FindLatestValid returns the most recently created unused row matching
	// the triple, or nil when none exists. Expiry is the caller's check.
	FindLatestValid(phoneNumber, code string, purpose models.OtpPurpose) (*models.OtpCode, error)

	// MarkUsed flips is_used on the row in a single conditional update and
	// reports whether this call claimed it. Exactly one of two concurrent
	// callers can observe true.
	MarkUsed(id uuid.UUID, usedAt time.Time) (bool, error)

	// DeleteExpired removes rows past their expiry. Safe at any time: an
	// expired row can never verify again.
	DeleteExpired(now time.Time) (int64, error)
}

type gormOTPStore struct {
	db *gorm.DB
}

// NewOTPStore creates the database-backed OTP store.
func NewOTPStore(db *gorm.DB) OTPStore {
	return &gormOTPStore{db: db}
}

func (s *gormOTPStore) CountRecent(phoneNumber string, windowStart time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&models.OtpCode{}).
		Where("phone_number = ? AND created_at >= ?", phoneNumber, windowStart).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: count recent: %v", ErrStore, err)
	}
	return count, nil
}

func (s *gormOTPStore) Insert(otp *models.OtpCode) error {
	if err := s.db.Create(otp).Error; err != nil {
		return fmt.Errorf("%w: insert: %v", ErrStore, err)
	}
	return nil
}

func (s *gormOTPStore) FindLatestValid(phoneNumber, code string, purpose models.OtpPurpose) (*models.OtpCode, error) {
	var otp models.OtpCode
	err := s.db.
		Where("phone_number = ? AND code = ? AND purpose = ? AND is_used = ?", phoneNumber, code, purpose, false).
		Order("created_at DESC").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: find: %v", ErrStore, err)
	}
	return &otp, nil
}

func (s *gormOTPStore) MarkUsed(id uuid.UUID, usedAt time.Time) (bool, error) {
	// Single conditional write guarded on is_used. Two racing verifications
	// cannot both claim the row.
	res := s.db.Model(&models.OtpCode{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{"is_used": true, "used_at": usedAt})
	if res.Error != nil {
		return false, fmt.Errorf("%w: mark used: %v", ErrStore, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormOTPStore) DeleteExpired(now time.Time) (int64, error) {
	res := s.db.Where("expires_at < ?", now).Delete(&models.OtpCode{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: delete expired: %v", ErrStore, res.Error)
	}
	return res.RowsAffected, nil
}
