package auth

import (
	"net/mail"
	"strings"

	"github.com/pkg/errors"
)

// DefaultMinPasswordLength is the registration minimum unless configuration
// overrides it.
const DefaultMinPasswordLength = 8

// ValidateEmail checks that the address is syntactically valid and carries a
// domain part.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.Wrap(ErrValidation, "email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.Wrap(ErrValidation, "invalid email format")
	}
	if at := strings.LastIndex(email, "@"); at < 1 || at == len(email)-1 {
		return errors.Wrap(ErrValidation, "invalid email format")
	}
	return nil
}

// ValidatePassword enforces the minimum length policy. Length is counted in
// runes so multibyte passwords are not over-counted.
func ValidatePassword(password string, minLength int) error {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	if len([]rune(password)) < minLength {
		return errors.Wrapf(ErrValidation, "password must be at least %d characters long", minLength)
	}
	return nil
}
