package cryptox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// knownHash was produced by an independent PBKDF2-HMAC-SHA512 implementation
// with salt 0x00..0x0f and 210000 iterations.
const (
	knownPassword = "correct horse battery staple"
	knownHash     = "$v1$AAECAwQFBgcICQoLDA0ODw==$210000$tfP6dFnMFLm84erFFC/hWDzb6fAjAPCAs0RvJLiu5xYHfelPBTAEADgLVRgJzZ8bKvvUpW2nUExEbADbiezuPg=="
)

// fastHasher keeps the suite quick; policy behaviour is identical.
func fastHasher() *PasswordHasher {
	return NewPasswordHasher(1000, 1000)
}

func TestCreateHash(t *testing.T) {
	h := fastHasher()

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := h.CreateHash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(encoded, "$v1$"))

			parts := strings.Split(strings.TrimPrefix(encoded, "$"), "$")
			require.Len(t, parts, 4)
			require.Equal(t, "v1", parts[0])
			require.Equal(t, "1000", parts[2])

			salt, err := base64.StdEncoding.DecodeString(parts[1])
			require.NoError(t, err)
			require.Len(t, salt, SaltLength)

			digest, err := base64.StdEncoding.DecodeString(parts[3])
			require.NoError(t, err)
			require.Len(t, digest, DigestLength)

			ok, err := h.VerifyHash(tt.password, encoded)
			require.NoError(t, err)
			require.True(t, ok)
		})
	}
}

func TestCreateHash_UniqueSalts(t *testing.T) {
	h := fastHasher()

	hash1, err := h.CreateHash("samepassword")
	require.NoError(t, err)
	hash2, err := h.CreateHash("samepassword")
	require.NoError(t, err)

	require.NotEqual(t, hash1, hash2, "hashes should differ due to unique salts")
}

func TestVerifyHash_KnownVector(t *testing.T) {
	ok, err := VerifyPassword(knownPassword, knownHash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("Correct horse battery staple", knownHash)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyHash_WrongPassword(t *testing.T) {
	h := fastHasher()
	encoded, err := h.CreateHash("correct-password")
	require.NoError(t, err)

	for _, wrong := range []string{
		"wrong-password",
		"Correct-Password",
		"correct-password ",
		"",
		strings.Repeat("x", 10000),
	} {
		ok, err := h.VerifyHash(wrong, encoded)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestVerifyHash_TamperedDigest(t *testing.T) {
	h := fastHasher()
	encoded, err := h.CreateHash("tamper-me")
	require.NoError(t, err)

	parts := strings.Split(strings.TrimPrefix(encoded, "$"), "$")
	digest, err := base64.StdEncoding.DecodeString(parts[3])
	require.NoError(t, err)

	for i := range digest {
		mutated := append([]byte(nil), digest...)
		mutated[i] ^= 0x01
		parts[3] = base64.StdEncoding.EncodeToString(mutated)

		ok, err := h.VerifyHash("tamper-me", "$"+strings.Join(parts, "$"))
		require.NoError(t, err)
		require.False(t, ok, "flipping byte %d must not verify", i)
	}
}

func TestVerifyHash_Errors(t *testing.T) {
	salt16 := base64.StdEncoding.EncodeToString(make([]byte, 16))
	salt8 := base64.StdEncoding.EncodeToString(make([]byte, 8))
	digest64 := base64.StdEncoding.EncodeToString(make([]byte, 64))
	digest32 := base64.StdEncoding.EncodeToString(make([]byte, 32))

	tests := []struct {
		name    string
		encoded string
		wantErr error
	}{
		{"empty", "", ErrHashFormat},
		{"too few parts", "$v1$" + salt16 + "$210000", ErrHashFormat},
		{"too many parts", "$v1$" + salt16 + "$210000$" + digest64 + "$extra", ErrHashFormat},
		{"wrong version", "$v2$" + salt16 + "$210000$" + digest64, ErrHashFormat},
		{"non numeric iterations", "$v1$" + salt16 + "$lots$" + digest64, ErrHashFormat},
		{"bad salt base64", "$v1$!!!$210000$" + digest64, ErrHashFormat},
		{"bad digest base64", "$v1$" + salt16 + "$210000$!!!", ErrHashFormat},
		{"iterations below minimum", "$v1$" + salt16 + "$1000$" + digest64, ErrIterationTooLow},
		{"short salt", "$v1$" + salt8 + "$210000$" + digest64, ErrInvalidSaltLength},
		{"short digest", "$v1$" + salt16 + "$210000$" + digest32, ErrInvalidDigestLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := DefaultHasher.VerifyHash("whatever", tt.encoded)
			require.ErrorIs(t, err, tt.wantErr)
			require.False(t, ok)
		})
	}
}

func TestNewPasswordHasher_ClampsToMinimum(t *testing.T) {
	h := NewPasswordHasher(10, 5000)
	require.Equal(t, 5000, h.Iterations)
	require.Equal(t, 5000, h.MinIterations)

	h = NewPasswordHasher(0, 0)
	require.Equal(t, MinIterations, h.Iterations)
}

func TestNeedsRehash(t *testing.T) {
	old := NewPasswordHasher(1000, 1000)
	encoded, err := old.CreateHash("upgrade-me")
	require.NoError(t, err)

	require.False(t, old.NeedsRehash(encoded))

	stronger := NewPasswordHasher(2000, 1000)
	require.True(t, stronger.NeedsRehash(encoded))

	// Still verifiable after the default is raised.
	ok, err := stronger.VerifyHash("upgrade-me", encoded)
	require.NoError(t, err)
	require.True(t, ok)

	require.True(t, stronger.NeedsRehash("garbage"))
}

func TestGeneratePassword(t *testing.T) {
	for range 10 {
		password, err := GeneratePassword()
		require.NoError(t, err)
		require.Len(t, password, 12)

		for _, char := range password {
			valid := (char >= 'a' && char <= 'z') ||
				(char >= 'A' && char <= 'Z') ||
				(char >= '0' && char <= '9')
			require.True(t, valid, "password should only contain alphanumeric characters")
		}
	}
}
