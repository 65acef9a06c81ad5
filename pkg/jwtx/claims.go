package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultSessionTTL is how long a minted session token stays valid.
	DefaultSessionTTL = 120 * time.Minute

	// DefaultLeeway is the clock skew tolerated on exp/nbf.
	DefaultLeeway = 30 * time.Second
)

// Principal is the identity a session token asserts. Subject, Name and Role
// are required; the rest are carried through untouched.
type Principal struct {
	Subject            string
	Name               string
	Role               string
	Settings           string
	CalendarPreference string
}

// Claims are the session-token claims. Custom fields are additive so older
// tokens keep parsing.
type Claims struct {
	jwt.RegisteredClaims

	// Display name of the account holder
	Name string `json:"name"`

	// Role name, e.g. "Admin", "Member"
	Role string `json:"role"`

	// Opaque per-user UI settings blob
	Settings string `json:"settings,omitempty"`

	// Calendar preference, e.g. "gregorian", "roc"
	CalendarPreference string `json:"calendar_preference,omitempty"`
}

// Principal returns the identity carried by the claims.
func (c *Claims) Principal() Principal {
	return Principal{
		Subject:            c.Subject,
		Name:               c.Name,
		Role:               c.Role,
		Settings:           c.Settings,
		CalendarPreference: c.CalendarPreference,
	}
}

// NewSessionClaims builds minimally-correct claims for p.
func NewSessionClaims(
	p Principal,
	issuer string,
	audience []string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.Subject,
			Audience:  jwt.ClaimStrings(audience),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Name:               p.Name,
		Role:               p.Role,
		Settings:           p.Settings,
		CalendarPreference: p.CalendarPreference,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateAudience checks if at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil // nothing to enforce
	}

	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}

	return ErrAudience
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryAt(time.Now().UTC(), 0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	return c.ValidateExpiryAt(time.Now().UTC(), leeway)
}

// ValidateExpiryAt checks exp and nbf against now, allowing leeway either way.
// A token without exp is rejected; session tokens always carry one.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}

	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}

	return nil
}
