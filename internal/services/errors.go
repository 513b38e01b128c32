package services

import (
	"errors"

	"github.com/scolarfaso/backend/pkg/phone"
)

// Terminal outcomes of the OTP flow. None of them triggers an internal retry;
// the caller decides whether to ask the user to try again.
var (
	// ErrInvalidPhoneFormat mirrors phone.ErrInvalidFormat at the service
	// boundary so handlers only ever match against this package.
	ErrInvalidPhoneFormat = phone.ErrInvalidFormat

	ErrInvalidPurpose = errors.New("unknown otp purpose")
	ErrRateLimited    = errors.New("too many codes requested for this number")
	ErrStore          = errors.New("otp store failure")
	ErrSend           = errors.New("sms send failure")
	ErrInvalidCode    = errors.New("invalid code")
	ErrExpired        = errors.New("code expired")

	ErrUserNotFound    = errors.New("user not found")
	ErrUserDeactivated = errors.New("account is deactivated")
)

// IsDependencyError reports whether err is an external-dependency failure
// (database or SMS gateway) as opposed to a user-input failure. The two
// classes return identically to the caller but are logged apart.
func IsDependencyError(err error) bool {
	return errors.Is(err, ErrStore) || errors.Is(err, ErrSend)
}
