package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGoogleProvider accepts the code "good" for subject g-1.
func fakeGoogleProvider(t *testing.T) *service.GoogleLoginService {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("code") != "good" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("GET /userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":            "g-1",
			"email":          "gina@example.com",
			"email_verified": true,
			"name":           "Gina",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := service.NewGoogleOAuthConfig("cid", "secret", "http://localhost/Account/GoogleCallback")
	cfg.Endpoint = oauth2.Endpoint{
		AuthURL:   srv.URL + "/auth",
		TokenURL:  srv.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	return &service.GoogleLoginService{
		OAuth:       cfg,
		UserInfoURL: srv.URL + "/userinfo",
		Logger:      slogx.Discard(),
	}
}

func (h *harness) get(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, h.srv.URL+path, nil)
	require.NoError(t, err)
	resp, err := h.client.HTTPClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// startGoogle hits GoogleLogin and returns the state sent to the provider.
func (h *harness) startGoogle(t *testing.T) string {
	t.Helper()
	resp := h.get(t, "/Account/GoogleLogin")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth", loc.Path)

	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestGoogleNotConfigured(t *testing.T) {
	h := newHarness(t)

	resp := h.get(t, "/Account/GoogleLogin")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.get(t, "/Account/GoogleCallback?state=x&code=y")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGoogleRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, withGoogle(fakeGoogleProvider(t)))

	state := h.startGoogle(t)

	resp := h.get(t, "/Account/GoogleCallback?"+url.Values{"state": {state}, "code": {"good"}}.Encode())
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	c := h.cookie(t, httpx.SessionCookieName)
	require.NotNil(t, c)

	me, err := h.client.NewSession(c.Value).Me(ctx)
	require.NoError(t, err)
	require.Equal(t, "Gina", me.Name)
	require.Equal(t, domain.RoleMember, me.Role)

	// The state was spent by the first callback
	resp = h.get(t, "/Account/GoogleCallback?"+url.Values{"state": {state}, "code": {"good"}}.Encode())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGoogleCallbackRejects(t *testing.T) {
	h := newHarness(t, withGoogle(fakeGoogleProvider(t)))

	t.Run("wrong state", func(t *testing.T) {
		state := h.startGoogle(t)
		resp := h.get(t, "/Account/GoogleCallback?state=forged&code=good")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		// The forged attempt spent the genuine state too
		resp = h.get(t, "/Account/GoogleCallback?"+url.Values{"state": {state}, "code": {"good"}}.Encode())
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Nil(t, h.cookie(t, httpx.SessionCookieName))
	})

	t.Run("provider error", func(t *testing.T) {
		state := h.startGoogle(t)
		resp := h.get(t, "/Account/GoogleCallback?"+url.Values{
			"state": {state},
			"error": {"access_denied"},
		}.Encode())
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad code", func(t *testing.T) {
		state := h.startGoogle(t)
		resp := h.get(t, "/Account/GoogleCallback?"+url.Values{"state": {state}, "code": {"bad"}}.Encode())
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.Nil(t, h.cookie(t, httpx.SessionCookieName))
	})
}
