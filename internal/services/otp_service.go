package services

import (
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/scolarfaso/backend/internal/config"
	"github.com/scolarfaso/backend/internal/models"
	"github.com/scolarfaso/backend/pkg/phone"
)

// Fixed issuance contract: codes live 5 minutes, and a phone number gets at
// most 3 codes per trailing 5-minute window across all purposes. Neither is
// configurable per call.
const (
	otpTTL          = 5 * time.Minute
	rateLimitWindow = 5 * time.Minute
	rateLimitMax    = 3
)

// smsTemplates are keyed by purpose. Each embeds the code and the validity
// window shown to the recipient.
var smsTemplates = map[models.OtpPurpose]string{
	models.PurposeLogin:               "ScolarFaso: votre code de connexion est %s. Valable 5 minutes.",
	models.PurposePaymentConfirmation: "ScolarFaso: votre code de confirmation de paiement est %s. Valable 5 minutes.",
	models.PurposePhoneVerification:   "ScolarFaso: votre code de verification est %s. Valable 5 minutes.",
	models.PurposePasswordReset:       "ScolarFaso: votre code de reinitialisation est %s. Valable 5 minutes.",
}

// OTPResult is the successful outcome of an OTP request.
type OTPResult struct {
	PhoneNumber string    `json:"phone_number"`
	ExpiresAt   time.Time `json:"expires_at"`
	// DebugCode carries the plaintext code only when the non-production
	// debug flag is on. Empty in production, always.
	DebugCode string `json:"debug_code,omitempty"`
}

type OTPService struct {
	store  OTPStore
	sender SMSSender
	cfg    *config.Config

	// now is swappable so tests can move the clock. Nil means time.Now.
	now func() time.Time
}

func NewOTPService(store OTPStore, sender SMSSender, cfg *config.Config) *OTPService {
	return &OTPService{
		store:  store,
		sender: sender,
		cfg:    cfg,
	}
}

func (s *OTPService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// RequestOTP validates and normalizes the phone number, enforces the
// per-phone rate limit, then generates, persists and sends a fresh code.
// The row is persisted before the SMS goes out: a send failure leaves a
// valid row behind, which is accepted behavior, while the reverse (an SMS
// carrying a code the store never saw) would be unverifiable.
func (s *OTPService) RequestOTP(phoneNumber string, purpose models.OtpPurpose) (*OTPResult, error) {
	canonical, err := phone.Normalize(phoneNumber)
	if err != nil {
		return nil, err
	}
	if !purpose.Valid() {
		return nil, ErrInvalidPurpose
	}

	now := s.clock()

	// Rate limit is global across purposes for the phone number. The count
	// and the insert are not one transaction; a racing pair of requests can
	// both pass, the limit is advisory.
	count, err := s.store.CountRecent(canonical, now.Add(-rateLimitWindow))
	if err != nil {
		return nil, err
	}
	if count >= rateLimitMax {
		return nil, ErrRateLimited
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	otp := &models.OtpCode{
		PhoneNumber: canonical,
		Code:        code,
		Purpose:     purpose,
		ExpiresAt:   now.Add(otpTTL),
		IsUsed:      false,
		CreatedAt:   now,
	}
	if err := s.store.Insert(otp); err != nil {
		return nil, err
	}

	message := fmt.Sprintf(smsTemplates[purpose], code)
	if err := s.sender.Send(canonical, message); err != nil {
		// The persisted row stays valid. A later verify with this code can
		// still succeed if the user got it through another channel.
		log.Printf("WARN: SMS send failed for %s (%s): %v", canonical, purpose, err)
		return nil, fmt.Errorf("%w: %v", ErrSend, err)
	}

	result := &OTPResult{PhoneNumber: canonical, ExpiresAt: otp.ExpiresAt}
	if s.cfg.OTPDebugResponse {
		result.DebugCode = code
	}
	return result, nil
}

// VerifyOTP checks a submitted code for a phone number and purpose. On
// success the row is atomically claimed and can never verify again, even
// before its expiry.
func (s *OTPService) VerifyOTP(phoneNumber, code string, purpose models.OtpPurpose) error {
	canonical, err := phone.Normalize(phoneNumber)
	if err != nil {
		return err
	}
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}

	otp, err := s.store.FindLatestValid(canonical, code, purpose)
	if err != nil {
		return err
	}
	if otp == nil {
		return ErrInvalidCode
	}

	now := s.clock()
	if now.After(otp.ExpiresAt) {
		// Left as-is: time only advances, the row can never pass this check
		// again and the retention sweep will collect it.
		return ErrExpired
	}

	claimed, err := s.store.MarkUsed(otp.ID, now)
	if err != nil {
		return err
	}
	if !claimed {
		// A concurrent verification won the conditional update.
		return ErrInvalidCode
	}
	return nil
}

// CleanupExpired removes rows past their expiry, returning how many were
// deleted. Run periodically from main.
func (s *OTPService) CleanupExpired() (int64, error) {
	return s.store.DeleteExpired(s.clock())
}

// generateCode draws a 6-digit code uniformly from [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
