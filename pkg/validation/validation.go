package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	otpCodeRegex = regexp.MustCompile(`^\d{6}$`)
)

// ValidateOTPCode validates the shape of a submitted OTP code
func ValidateOTPCode(code string) bool {
	return otpCodeRegex.MatchString(strings.TrimSpace(code))
}

// ValidatePassword validates password strength
func ValidatePassword(password string) bool {
	if len(password) < 8 {
		return false
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	return hasUpper && hasLower && hasNumber
}

// SanitizeString removes potentially harmful characters
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
