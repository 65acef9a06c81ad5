package domain

import (
	"fmt"
	"time"
)

// Purpose namespaces verification tokens so a token issued for one flow can
// never satisfy another.
type Purpose string

const (
	PurposeActivation    Purpose = "activation"
	PurposePasswordReset Purpose = "password_reset"
)

const (
	ActivationTTL    = 24 * time.Hour
	PasswordResetTTL = 10 * time.Minute
)

// TTL is how long a freshly issued token of this purpose stays valid.
func (p Purpose) TTL() time.Duration {
	switch p {
	case PurposeActivation:
		return ActivationTTL
	case PurposePasswordReset:
		return PasswordResetTTL
	}
	return 0
}

// RequiresActive is the account state a token of this purpose applies to:
// activation only for inactive accounts, reset only for active ones.
func (p Purpose) RequiresActive() bool {
	return p == PurposePasswordReset
}

// Validate rejects unknown purposes.
func (p Purpose) Validate() error {
	switch p {
	case PurposeActivation, PurposePasswordReset:
		return nil
	}
	return fmt.Errorf("domain: unknown verification purpose %q", string(p))
}

// VerificationToken is the stored form of a pending single-use token. Only
// the SHA-256 fingerprint of the token is kept.
type VerificationToken struct {
	UserNo    string
	Purpose   Purpose
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the token is no longer usable at now. Expiry is
// strict: a token expiring exactly at now is expired.
func (t VerificationToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// Effect is what consuming a token does to the account.
type Effect struct {
	// Activate flips is_active to true.
	Activate bool
	// PasswordHash, when set, replaces the stored hash.
	PasswordHash string
}
