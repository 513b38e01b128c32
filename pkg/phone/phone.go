package phone

import (
	"errors"
	"strings"
)

// CountryCode is the Burkina Faso dialling code. All numbers handled by the
// platform are normalized to +226XXXXXXXX before being stored or compared.
const CountryCode = "226"

const (
	prefix            = "+" + CountryCode
	intlDialOutPrefix = "00" + CountryCode
	localDigits       = 8
	canonicalLength   = 1 + len(CountryCode) + localDigits
)

// ErrInvalidFormat is returned when the input cannot be resolved to exactly
// one Burkinabe number.
var ErrInvalidFormat = errors.New("invalid phone number format")

// Normalize converts a raw phone number into its canonical +226XXXXXXXX form.
//
// Accepted shapes, tried in order (first match wins):
//   - "+226 70 12 34 56"  already international
//   - "0022670123456"     international dial-out prefix
//   - "22670123456"       bare country code
//   - "070123456"         local trunk zero
//   - "70123456"          bare 8-digit local number
//
// The dial-out form must be checked before the bare country code form: both
// start with "226" after cleaning, and the longer prefix has to win.
func Normalize(raw string) (string, error) {
	cleaned := strings.NewReplacer(" ", "", "-", "", "\t", "").Replace(strings.TrimSpace(raw))

	var result string
	switch {
	case strings.HasPrefix(cleaned, prefix):
		result = cleaned
	case strings.HasPrefix(cleaned, intlDialOutPrefix):
		result = prefix + cleaned[len(intlDialOutPrefix):]
	case strings.HasPrefix(cleaned, CountryCode):
		result = "+" + cleaned
	case strings.HasPrefix(cleaned, "0"):
		result = prefix + cleaned[1:]
	case len(cleaned) == localDigits && isDigits(cleaned):
		result = prefix + cleaned
	default:
		return "", ErrInvalidFormat
	}

	if len(result) != canonicalLength || !isDigits(result[1:]) {
		return "", ErrInvalidFormat
	}
	return result, nil
}

// IsCanonical reports whether s is already in the canonical +226XXXXXXXX form.
func IsCanonical(s string) bool {
	return len(s) == canonicalLength && strings.HasPrefix(s, prefix) && isDigits(s[1:])
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
