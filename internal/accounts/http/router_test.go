package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/session"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/captcha"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/stretchr/testify/require"
)

var (
	testKey    = []byte("0123456789abcdef0123456789abcdef")
	fastHasher = cryptox.NewPasswordHasher(1000, 1000)
)

type fakeMail struct {
	mu     sync.Mutex
	bodies []string
}

func (f *fakeMail) Send(_ context.Context, _, _, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies = append(f.bodies, body)
	return nil
}

// lastToken pulls the token out of the newest mail's link for path.
func (f *fakeMail) lastToken(t *testing.T, baseURL, path string) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.bodies, "no mail sent")

	body := f.bodies[len(f.bodies)-1]
	prefix := baseURL + path + "?token="
	i := strings.Index(body, prefix)
	require.GreaterOrEqual(t, i, 0, "link not found in:\n%s", body)

	rest := body[i+len(prefix):]
	if j := strings.IndexAny(rest, " \n"); j >= 0 {
		rest = rest[:j]
	}
	tok, err := url.QueryUnescape(rest)
	require.NoError(t, err)
	return tok
}

type harness struct {
	srv      *httptest.Server
	client   *accountsdk.SDKClient
	store    *sqlite.Store
	sessions *session.MemoryStore
	mail     *fakeMail
	router   *Router
}

type harnessOption func(r *Router)

func withGoogle(svc *service.GoogleLoginService) harnessOption {
	return func(r *Router) { r.GoogleLoginService = svc }
}

func withMailBroker(p Pinger) harnessOption {
	return func(r *Router) { r.MailBroker = p }
}

func withoutCaptcha() harnessOption {
	return func(r *Router) { r.RequireCaptcha = false }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewHS256Signer(testKey, jwtx.SignOptions{Issuer: "accounts-test"})
	require.NoError(t, err)
	verifier := jwtx.NewHS256Verifier(testKey, jwtx.VerifyOptions{Issuer: "accounts-test"})

	gen, err := captcha.NewGenerator()
	require.NoError(t, err)

	mem := session.NewMemoryStore(session.DefaultIdleTimeout)
	m := &fakeMail{}
	logger := slogx.Discard()

	r := NewRouter(verifier, "test", st, session.NewManager(mem), logger)
	r.Captcha = gen

	// Mail links need the server URL, so routes are applied after start
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	verification := &service.VerificationService{Store: st, Hasher: fastHasher, Logger: logger}
	r.VerificationService = verification
	r.AuthService = &service.AuthService{
		Store:        st,
		Hasher:       fastHasher,
		Signer:       signer,
		Verification: verification,
		Mail:         m,
		BaseURL:      srv.URL,
		Logger:       logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.GoogleLoginService != nil {
		r.GoogleLoginService.Signer = signer
		r.GoogleLoginService.Store = st
	}
	r.ApplyRoutes()

	return &harness{
		srv:      srv,
		client:   accountsdk.NewSDKClient(srv.URL),
		store:    st,
		sessions: mem,
		mail:     m,
		router:   r,
	}
}

func (h *harness) seed(t *testing.T, userNo, email, password, role string, active bool) {
	t.Helper()
	hash, err := fastHasher.CreateHash(password)
	require.NoError(t, err)
	require.NoError(t, h.store.Users().Create(context.Background(), domain.User{
		UserNo:       userNo,
		Email:        email,
		Name:         "User " + userNo,
		PasswordHash: hash,
		IsActive:     active,
		Role:         role,
	}))
}

// cookie returns the named cookie the client's jar holds for the server.
func (h *harness) cookie(t *testing.T, name string) *http.Cookie {
	t.Helper()
	u, err := url.Parse(h.srv.URL)
	require.NoError(t, err)
	for _, c := range h.client.HTTPClient.Jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// captchaCode fetches a challenge and reads its answer from the session store.
func (h *harness) captchaCode(t *testing.T) string {
	t.Helper()
	img, err := h.client.GetCaptcha(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, img)

	sid := h.cookie(t, session.DefaultCookieName)
	require.NotNil(t, sid)

	code, ok, err := h.sessions.Get(context.Background(), sid.Value, session.KeyCaptchaCode)
	require.NoError(t, err)
	require.True(t, ok)
	return code
}

func TestLoginWithCaptcha(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "ADMIN1", "admin@example.com", "secret1", domain.RoleAdmin, true)

	t.Run("missing captcha", func(t *testing.T) {
		_, err := h.client.Login(ctx, "admin@example.com", "secret1", "")
		require.ErrorIs(t, err, accountsdk.ErrInvalidCaptcha)
	})

	t.Run("code is spent by a failed attempt", func(t *testing.T) {
		code := h.captchaCode(t)

		_, err := h.client.Login(ctx, "admin@example.com", "wrong-pw", code)
		require.ErrorIs(t, err, accountsdk.ErrInvalidCredentials)

		_, err = h.client.Login(ctx, "admin@example.com", "secret1", code)
		require.ErrorIs(t, err, accountsdk.ErrInvalidCaptcha)
	})

	t.Run("success sets the session cookie", func(t *testing.T) {
		code := h.captchaCode(t)

		res, err := h.client.Login(ctx, "admin@example.com", "secret1", strings.ToLower(code))
		require.NoError(t, err)
		require.Equal(t, "/Admin", res.Redirect)
		require.Equal(t, "ADMIN1", res.UserNo)
		require.Equal(t, domain.RoleAdmin, res.Role)

		c := h.cookie(t, httpx.SessionCookieName)
		require.NotNil(t, c)
		require.Equal(t, res.Token, c.Value)

		me, err := h.client.NewSession(res.Token).Me(ctx)
		require.NoError(t, err)
		require.Equal(t, "ADMIN1", me.UserNo)
		require.NotZero(t, me.ExpiresAt)
	})
}

func TestLoginCookieAttributes(t *testing.T) {
	h := newHarness(t, withoutCaptcha())
	h.seed(t, "U1", "a@example.com", "secret1", domain.RoleMember, true)

	req := httptest.NewRequest(http.MethodPost, "/Account/Login",
		strings.NewReader(url.Values{"email": {"a@example.com"}, "password": {"secret1"}}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == httpx.SessionCookieName {
			found = c
		}
	}
	require.NotNil(t, found)
	require.True(t, found.HttpOnly)
	require.True(t, found.Secure)
	require.Equal(t, http.SameSiteLaxMode, found.SameSite)
	require.Equal(t, int(SessionCookieTTL.Seconds()), found.MaxAge)

	var body accountsdk.LoginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "/", body.Redirect)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, withoutCaptcha())
	h.seed(t, "U1", "a@example.com", "secret1", domain.RoleMember, true)
	h.seed(t, "U2", "sleepy@example.com", "secret1", domain.RoleMember, false)

	for _, tc := range []struct{ name, email, password string }{
		{"wrong password", "a@example.com", "nope-nope"},
		{"unknown email", "ghost@example.com", "secret1"},
		{"inactive", "sleepy@example.com", "secret1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.client.Login(ctx, tc.email, tc.password, "")
			require.ErrorIs(t, err, accountsdk.ErrInvalidCredentials)

			var apiErr *accountsdk.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, "Invalid email or password", apiErr.Description)
		})
	}
}

func TestRegisterActivateLogin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	reg, err := h.client.Register(ctx, accountsdk.RegisterRequest{
		Name:            "Carol",
		Email:           "carol@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Captcha:         h.captchaCode(t),
	})
	require.NoError(t, err)
	require.True(t, reg.MailSent)
	require.NotEmpty(t, reg.UserNo)

	_, err = h.client.Register(ctx, accountsdk.RegisterRequest{
		Name:            "Carol Again",
		Email:           "CAROL@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Captcha:         h.captchaCode(t),
	})
	require.ErrorIs(t, err, accountsdk.ErrEmailTaken)

	_, err = h.client.Register(ctx, accountsdk.RegisterRequest{
		Name:            "Dan",
		Email:           "dan@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret2",
		Captcha:         h.captchaCode(t),
	})
	require.ErrorIs(t, err, accountsdk.ErrInvalidRequest)

	token := h.mail.lastToken(t, h.srv.URL, service.ActivatePath)

	msg, err := h.client.Activate(ctx, token)
	require.NoError(t, err)
	require.NotEmpty(t, msg.Message)

	_, err = h.client.Activate(ctx, token)
	require.ErrorIs(t, err, accountsdk.ErrInvalidToken)

	res, err := h.client.Login(ctx, "carol@example.com", "secret1", h.captchaCode(t))
	require.NoError(t, err)
	require.Equal(t, reg.UserNo, res.UserNo)
	require.Equal(t, "/", res.Redirect)
}

func TestForgotAndResetPassword(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, withoutCaptcha())
	h.seed(t, "U1", "a@example.com", "secret1", domain.RoleMember, true)

	unknown, err := h.client.ForgotPassword(ctx, "ghost@example.com")
	require.NoError(t, err)
	known, err := h.client.ForgotPassword(ctx, "a@example.com")
	require.NoError(t, err)
	require.Equal(t, unknown.Message, known.Message)

	token := h.mail.lastToken(t, h.srv.URL, service.ResetPasswordPath)
	require.NoError(t, h.client.ValidateResetToken(ctx, token))
	require.ErrorIs(t, h.client.ValidateResetToken(ctx, "bogus"), accountsdk.ErrInvalidToken)

	_, err = h.client.ResetPassword(ctx, token, "changed1", "changed2")
	require.ErrorIs(t, err, accountsdk.ErrInvalidRequest)
	_, err = h.client.ResetPassword(ctx, token, "abc", "abc")
	require.ErrorIs(t, err, accountsdk.ErrInvalidRequest)

	_, err = h.client.ResetPassword(ctx, token, "changed1", "changed1")
	require.NoError(t, err)

	_, err = h.client.ResetPassword(ctx, token, "changed2", "changed2")
	require.ErrorIs(t, err, accountsdk.ErrInvalidToken)

	_, err = h.client.Login(ctx, "a@example.com", "changed1", "")
	require.NoError(t, err)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, withoutCaptcha())
	h.seed(t, "U1", "a@example.com", "secret1", domain.RoleMember, true)

	t.Run("requires a session", func(t *testing.T) {
		err := h.client.NewSession("garbage").ChangePassword(ctx, "secret1", "changed1", "changed1")
		var apiErr *accountsdk.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	})

	res, err := h.client.Login(ctx, "a@example.com", "secret1", "")
	require.NoError(t, err)
	s := h.client.NewSession(res.Token)

	err = s.ChangePassword(ctx, "wrong-pw", "changed1", "changed1")
	require.ErrorIs(t, err, accountsdk.ErrInvalidCredentials)

	require.NoError(t, s.ChangePassword(ctx, "secret1", "changed1", "changed1"))

	_, err = h.client.Login(ctx, "a@example.com", "changed1", "")
	require.NoError(t, err)
}

func TestMeAcceptsCookie(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, withoutCaptcha())
	h.seed(t, "U1", "a@example.com", "secret1", domain.RoleMember, true)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.srv.URL+"/v1/me", nil)
	require.NoError(t, err)
	resp, err := h.client.HTTPClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err = h.client.Login(ctx, "a@example.com", "secret1", "")
	require.NoError(t, err)

	// The jar now sends jwtToken; no Authorization header is set
	req, err = http.NewRequestWithContext(ctx, http.MethodGet, h.srv.URL+"/v1/me", nil)
	require.NoError(t, err)
	resp, err = h.client.HTTPClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me accountsdk.PrincipalResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&me))
	require.Equal(t, "U1", me.UserNo)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.seed(t, "U1", "a@example.com", "secret1", domain.RoleMember, true)

	_, err := h.client.Login(ctx, "a@example.com", "secret1", h.captchaCode(t))
	require.NoError(t, err)
	require.NotNil(t, h.cookie(t, httpx.SessionCookieName))

	require.NoError(t, h.client.Logout(ctx))
	require.Nil(t, h.cookie(t, httpx.SessionCookieName))
	require.Nil(t, h.cookie(t, session.DefaultCookieName))
}

func TestResendActivation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, withoutCaptcha())
	h.seed(t, "ADMIN1", "admin@example.com", "secret1", domain.RoleAdmin, true)
	h.seed(t, "M1", "member@example.com", "secret1", domain.RoleMember, true)
	h.seed(t, "NEW1", "new@example.com", "secret1", domain.RoleMember, false)

	member, err := h.client.Login(ctx, "member@example.com", "secret1", "")
	require.NoError(t, err)
	err = h.client.NewSession(member.Token).ResendActivation(ctx, "NEW1")
	require.ErrorIs(t, err, accountsdk.ErrInsufficientRole)

	admin, err := h.client.Login(ctx, "admin@example.com", "secret1", "")
	require.NoError(t, err)
	s := h.client.NewSession(admin.Token)

	require.ErrorIs(t, s.ResendActivation(ctx, "M1"), accountsdk.ErrAlreadyActive)
	require.ErrorIs(t, s.ResendActivation(ctx, "ghost"), accountsdk.ErrNotFound)
	require.NoError(t, s.ResendActivation(ctx, "NEW1"))

	token := h.mail.lastToken(t, h.srv.URL, service.ActivatePath)
	_, err = h.client.Activate(ctx, token)
	require.NoError(t, err)
}

// sessionFor mints a token directly, as if issued before the account was
// deactivated.
func sessionFor(t *testing.T, h *harness, userNo, role string) *accountsdk.Session {
	t.Helper()
	signer, err := jwtx.NewHS256Signer(testKey, jwtx.SignOptions{Issuer: "accounts-test"})
	require.NoError(t, err)
	token, err := signer.GenerateToken(jwtx.Principal{Subject: userNo, Name: "User " + userNo, Role: role})
	require.NoError(t, err)
	return h.client.NewSession(token)
}

func TestDeactivatedAccountSessions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, withoutCaptcha())
	h.seed(t, "GONE", "gone@example.com", "secret1", domain.RoleAdmin, false)
	h.seed(t, "NEW1", "new@example.com", "secret1", domain.RoleMember, false)

	s := sessionFor(t, h, "GONE", domain.RoleAdmin)

	err := s.ChangePassword(ctx, "secret1", "changed1", "changed1")
	require.ErrorIs(t, err, accountsdk.ErrInvalidCredentials)

	err = s.ResendActivation(ctx, "NEW1")
	require.ErrorIs(t, err, accountsdk.ErrInsufficientRole)
}

func TestHealth(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	live, err := h.client.GetLiveness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)

	ready, err := h.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Database)
	require.Equal(t, "ok", ready.Checks.Sessions)
	require.Empty(t, ready.Checks.Mail)

	require.NoError(t, h.store.Close())
	_, err = h.client.GetReadiness(ctx)
	var apiErr *accountsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

type fakeBroker struct{ err error }

func (b *fakeBroker) Ping(context.Context) error { return b.err }

func TestReadyzMailBroker(t *testing.T) {
	ctx := context.Background()
	broker := &fakeBroker{}
	h := newHarness(t, withMailBroker(broker))

	ready, err := h.client.GetReadiness(ctx)
	require.NoError(t, err)
	require.Equal(t, "ok", ready.Status)
	require.Equal(t, "ok", ready.Checks.Mail)

	broker.err = errors.New("connection refused")
	_, err = h.client.GetReadiness(ctx)
	var apiErr *accountsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}
