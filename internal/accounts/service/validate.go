package service

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrInvalidName      = errors.New("name must be 3 to 50 characters")
	ErrWeakPassword     = errors.New("password must be 6 to 50 characters")
	ErrPasswordMismatch = errors.New("password and confirmation do not match")
)

const (
	minNameLen     = 3
	maxNameLen     = 50
	minPasswordLen = 6
	maxPasswordLen = 50
)

// normalizeEmail trims and lower-cases an address and checks it parses as
// a bare addr-spec.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < minNameLen || n > maxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

// validateNewPassword checks length and, when confirm is non-nil, that the
// confirmation matches.
func validateNewPassword(password string, confirm *string) error {
	if n := utf8.RuneCountInString(password); n < minPasswordLen || n > maxPasswordLen {
		return ErrWeakPassword
	}
	if confirm != nil && *confirm != password {
		return ErrPasswordMismatch
	}
	return nil
}
