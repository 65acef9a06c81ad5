package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the shortest HS256 key we accept (256 bits).
const MinKeyLength = 32

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
	Validate() error
}

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("jwtx: validation failed")

// ValidationError is returned when a principal is missing a required field.
// Tokens are never minted for half-populated accounts.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("jwtx: principal %s is required", e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SignOptions configures an HS256Signer.
type SignOptions struct {
	Issuer   string
	Audience []string

	// TTL defaults to DefaultSessionTTL.
	TTL time.Duration

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// HS256Signer mints session tokens with a shared secret.
type HS256Signer struct {
	key  []byte
	opts SignOptions
}

// NewHS256Signer validates the key and fills option defaults.
func NewHS256Signer(key []byte, opts SignOptions) (*HS256Signer, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &HS256Signer{key: key, opts: opts}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// TTL is the validity window applied to every minted token.
func (s *HS256Signer) TTL() time.Duration { return s.opts.TTL }

// Validate does a quick sanity check on the key.
func (s *HS256Signer) Validate() error {
	if len(s.key) < MinKeyLength {
		return fmt.Errorf("jwtx: HS256 key must be at least %d bytes, got %d", MinKeyLength, len(s.key))
	}
	return nil
}

// Sign takes claims and turns them into a signed JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.key)
}

// GenerateToken mints a session token for p, valid for the configured TTL.
func (s *HS256Signer) GenerateToken(p Principal) (string, error) {
	switch {
	case p.Subject == "":
		return "", &ValidationError{Field: "subject"}
	case p.Name == "":
		return "", &ValidationError{Field: "name"}
	case p.Role == "":
		return "", &ValidationError{Field: "role"}
	}

	now := s.opts.Now().UTC()
	claims := NewSessionClaims(p, s.opts.Issuer, s.opts.Audience, s.opts.TTL, now)
	return s.Sign(claims)
}
