package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://accounts.test"

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// fastHasher keeps PBKDF2 cheap in tests.
var fastHasher = cryptox.NewPasswordHasher(1000, 1000)

type sentMail struct {
	To, Subject, Body string
}

type fakeMail struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMail) Send(_ context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

func (f *fakeMail) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no mail sent")
	return f.sent[len(f.sent)-1]
}

func (f *fakeMail) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

var errMailDown = errors.New("smtp down")

type testEnv struct {
	store    *sqlite.Store
	mail     *fakeMail
	signer   *jwtx.HS256Signer
	verifier *jwtx.HS256Verifier
	verify   *VerificationService
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewHS256Signer(testSigningKey, jwtx.SignOptions{Issuer: "accounts-test"})
	require.NoError(t, err)

	m := &fakeMail{}
	v := &VerificationService{Store: st, Hasher: fastHasher, Logger: slogx.Discard()}
	return &testEnv{
		store:    st,
		mail:     m,
		signer:   signer,
		verifier: jwtx.NewHS256Verifier(testSigningKey, jwtx.VerifyOptions{Issuer: "accounts-test"}),
		verify:   v,
		auth: &AuthService{
			Store:        st,
			Hasher:       fastHasher,
			Signer:       signer,
			Verification: v,
			Mail:         m,
			BaseURL:      testBaseURL,
			Logger:       slogx.Discard(),
		},
	}
}

// seed inserts an account with the given password (empty for none).
func (e *testEnv) seed(t *testing.T, userNo, email, password, role string, active bool) domain.User {
	t.Helper()

	var hash string
	if password != "" {
		var err error
		hash, err = fastHasher.CreateHash(password)
		require.NoError(t, err)
	}

	u := domain.User{
		UserNo:       userNo,
		Email:        email,
		Name:         "User " + userNo,
		PasswordHash: hash,
		IsActive:     active,
		Role:         role,
	}
	require.NoError(t, e.store.Users().Create(context.Background(), u))
	return u
}

// tokenFromMail pulls the token query parameter out of the link in a mail body.
func tokenFromMail(t *testing.T, body, path string) string {
	t.Helper()

	prefix := testBaseURL + path + "?token="
	i := strings.Index(body, prefix)
	require.GreaterOrEqual(t, i, 0, "link %s not in body:\n%s", path, body)

	rest := body[i+len(prefix):]
	if j := strings.IndexAny(rest, " \n"); j >= 0 {
		rest = rest[:j]
	}
	tok, err := url.QueryUnescape(rest)
	require.NoError(t, err)
	return tok
}
