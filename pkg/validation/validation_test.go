package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOTPCode(t *testing.T) {
	assert.True(t, ValidateOTPCode("123456"))
	assert.True(t, ValidateOTPCode(" 123456 "))
	assert.False(t, ValidateOTPCode("12345"))
	assert.False(t, ValidateOTPCode("1234567"))
	assert.False(t, ValidateOTPCode("12345a"))
	assert.False(t, ValidateOTPCode(""))
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("Passw0rd"))
	assert.False(t, ValidatePassword("short1A"))
	assert.False(t, ValidatePassword("alllowercase1"))
	assert.False(t, ValidatePassword("ALLUPPERCASE1"))
	assert.False(t, ValidatePassword("NoNumbersHere"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hello  "))
	assert.Equal(t, "ab", SanitizeString("a\x00b"))
}
