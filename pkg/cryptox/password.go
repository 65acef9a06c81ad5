package cryptox

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Parameters for PBKDF2-HMAC-SHA512 hashing.
const (
	HashVersion = "v1"

	DefaultIterations = 210_000 // OWASP 2023 guidance for PBKDF2-HMAC-SHA512
	MinIterations     = 210_000

	SaltLength   = 16
	DigestLength = 64
)

var (
	ErrHashFormat          = errors.New("cryptox: invalid hash format")
	ErrIterationTooLow     = errors.New("cryptox: iteration count below policy minimum")
	ErrInvalidSaltLength   = errors.New("cryptox: invalid salt length")
	ErrInvalidDigestLength = errors.New("cryptox: invalid digest length")
)

// PasswordHasher encodes and verifies passwords as
// "$v1$<base64 salt>$<iterations>$<base64 digest>".
//
// The iteration count travels with every hash, so raising Iterations later
// keeps old hashes verifiable as long as they stay above MinIterations.
type PasswordHasher struct {
	Iterations    int
	MinIterations int
}

// DefaultHasher is used by HashPassword and VerifyPassword.
var DefaultHasher = NewPasswordHasher(DefaultIterations, MinIterations)

// NewPasswordHasher builds a hasher. Iterations is raised to minIterations
// when lower, since a hash below the minimum could never be verified.
func NewPasswordHasher(iterations, minIterations int) *PasswordHasher {
	if minIterations <= 0 {
		minIterations = MinIterations
	}
	if iterations < minIterations {
		iterations = minIterations
	}
	return &PasswordHasher{Iterations: iterations, MinIterations: minIterations}
}

// CreateHash derives a new encoded hash with a fresh random salt.
func (h *PasswordHasher) CreateHash(password string) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("cryptox: failed to generate salt: %w", err)
	}

	digest := pbkdf2.Key([]byte(password), salt, h.Iterations, DigestLength, sha512.New)

	return fmt.Sprintf("$%s$%s$%d$%s",
		HashVersion,
		base64.StdEncoding.EncodeToString(salt),
		h.Iterations,
		base64.StdEncoding.EncodeToString(digest),
	), nil
}

// VerifyHash reports whether password matches the encoded hash.
//
// A mismatch is (false, nil). Malformed hashes and policy violations are
// returned as errors and never report a match.
func (h *PasswordHasher) VerifyHash(password, encoded string) (bool, error) {
	parsed, err := h.parse(encoded)
	if err != nil {
		return false, err
	}

	computed := pbkdf2.Key([]byte(password), parsed.salt, parsed.iterations, len(parsed.digest), sha512.New)
	return subtle.ConstantTimeCompare(computed, parsed.digest) == 1, nil
}

// NeedsRehash reports whether encoded was produced with fewer iterations than
// the hasher currently uses. Unparseable hashes need a rehash too.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	parsed, err := h.parse(encoded)
	if err != nil {
		return true
	}
	return parsed.iterations < h.Iterations
}

type encodedHash struct {
	iterations int
	salt       []byte
	digest     []byte
}

func (h *PasswordHasher) parse(encoded string) (encodedHash, error) {
	// Split on "$" and drop empty segments: ["v1", salt, iterations, digest]
	parts := strings.FieldsFunc(encoded, func(r rune) bool { return r == '$' })
	if len(parts) != 4 {
		return encodedHash{}, fmt.Errorf("%w: expected 4 parts, got %d", ErrHashFormat, len(parts))
	}
	if parts[0] != HashVersion {
		return encodedHash{}, fmt.Errorf("%w: unsupported version %q", ErrHashFormat, parts[0])
	}

	iterations, err := strconv.Atoi(parts[2])
	if err != nil {
		return encodedHash{}, fmt.Errorf("%w: iteration count is not a number", ErrHashFormat)
	}
	if iterations < h.MinIterations {
		return encodedHash{}, fmt.Errorf("%w: %d < %d", ErrIterationTooLow, iterations, h.MinIterations)
	}

	salt, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return encodedHash{}, fmt.Errorf("%w: failed to decode salt: %v", ErrHashFormat, err)
	}
	if len(salt) < SaltLength {
		return encodedHash{}, fmt.Errorf("%w: %d bytes", ErrInvalidSaltLength, len(salt))
	}

	digest, err := base64.StdEncoding.DecodeString(parts[3])
	if err != nil {
		return encodedHash{}, fmt.Errorf("%w: failed to decode digest: %v", ErrHashFormat, err)
	}
	if len(digest) != DigestLength {
		return encodedHash{}, fmt.Errorf("%w: %d bytes", ErrInvalidDigestLength, len(digest))
	}

	return encodedHash{iterations: iterations, salt: salt, digest: digest}, nil
}

// HashPassword encodes password with DefaultHasher.
func HashPassword(password string) (string, error) {
	return DefaultHasher.CreateHash(password)
}

// VerifyPassword checks password against encoded with DefaultHasher.
func VerifyPassword(password, encoded string) (bool, error) {
	return DefaultHasher.VerifyHash(password, encoded)
}

// GeneratePassword returns a random 12 character alphanumeric password. Used
// for accounts created through federated login, which never sign in locally.
func GeneratePassword() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 12
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate random password: %w", err)
		}
		password[i] = charset[n.Int64()]
	}
	return string(password), nil
}
