package service

import "github.com/aussiebroadwan/accounts/pkg/cryptox"

// GenerateState returns a fresh nonce for a federated login round trip.
// The caller keeps it in the session and clears it at the callback.
func GenerateState() (string, error) {
	return cryptox.GenerateToken(cryptox.TokenSize128)
}

// ValidateState reports whether the state returned by the provider matches
// the stored one. Empty values never match.
func ValidateState(received, stored string) bool {
	if received == "" || stored == "" {
		return false
	}
	return cryptox.EqualStrings(received, stored)
}
