package utils

import (
	"errors"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

var (
	reLower   = regexp.MustCompile(`[a-z]`)
	reUpper   = regexp.MustCompile(`[A-Z]`)
	reDigit   = regexp.MustCompile(`\d`)
	reSpecial = regexp.MustCompile(`[!@#\$%\^&\*\(\)_\+\-=\[\]{};:"\\|,.<>\/\?` + "`" + `~]`)
)

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// ValidatePasswordStrong requires 8+ characters with lower, upper, digit and
// special characters.
func ValidatePasswordStrong(pw string) error {
	if len(pw) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if !reLower.MatchString(pw) {
		return errors.New("password must contain a lowercase letter")
	}
	if !reUpper.MatchString(pw) {
		return errors.New("password must contain an uppercase letter")
	}
	if !reDigit.MatchString(pw) {
		return errors.New("password must contain a digit")
	}
	if !reSpecial.MatchString(pw) {
		return errors.New("password must contain a special character (e.g. !@#)")
	}
	return nil
}
