package httpx_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func requestFrom(remote, target string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remote
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func trustProxies(t *testing.T, list string) {
	t.Helper()
	prefixes, err := httpx.ParseTrustedProxies(list)
	require.NoError(t, err)
	httpx.SetTrustedProxies(prefixes)
	t.Cleanup(func() { httpx.SetTrustedProxies(nil) })
}

func TestIPKeyExtractor(t *testing.T) {
	tests := []struct {
		name    string
		trusted string
		remote  string
		headers map[string]string
		want    string
	}{
		{"remote addr", "", "192.168.1.1:12345", nil, "192.168.1.1"},
		{"forwarded for ignored without trusted proxies", "",
			"192.168.1.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.1"}, "192.168.1.1"},
		{"real ip ignored without trusted proxies", "",
			"192.168.1.1:12345", map[string]string{"X-Real-IP": "203.0.113.2"}, "192.168.1.1"},
		{"forwarded for ignored from untrusted peer", "10.0.0.0/8",
			"192.168.1.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.1"}, "192.168.1.1"},
		{"forwarded for from trusted proxy", "10.0.0.0/8",
			"10.0.0.5:12345", map[string]string{"X-Forwarded-For": "203.0.113.1"}, "203.0.113.1"},
		{"client spoofed hop is skipped", "10.0.0.0/8",
			"10.0.0.5:12345", map[string]string{"X-Forwarded-For": "198.51.100.9, 203.0.113.1"}, "203.0.113.1"},
		{"trusted hops are walked past", "10.0.0.0/8",
			"10.0.0.5:12345", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.1.2.3"}, "203.0.113.1"},
		{"real ip from trusted proxy", "10.0.0.5",
			"10.0.0.5:12345", map[string]string{"X-Real-IP": "203.0.113.2"}, "203.0.113.2"},
		{"trusted proxy without headers", "10.0.0.0/8", "10.0.0.5:12345", nil, "10.0.0.5"},
		{"ipv6 peer", "", "[2001:db8::1]:443", nil, "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trustProxies(t, tt.trusted)

			req := requestFrom(tt.remote, "/")
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, httpx.IPKeyExtractor(req))
		})
	}
}

func TestParseTrustedProxies(t *testing.T) {
	prefixes, err := httpx.ParseTrustedProxies(" 10.0.0.0/8, 127.0.0.1 ,,::1")
	require.NoError(t, err)
	require.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("127.0.0.1/32"),
		netip.MustParsePrefix("::1/128"),
	}, prefixes)

	prefixes, err = httpx.ParseTrustedProxies("")
	require.NoError(t, err)
	require.Empty(t, prefixes)

	for _, bad := range []string{"10.0.0.0/33", "proxy.internal"} {
		_, err := httpx.ParseTrustedProxies(bad)
		require.Error(t, err, bad)
	}
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	limited := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler)

	spoofed := func(xff string) *http.Request {
		req := requestFrom("192.168.1.1:1", "/")
		req.Header.Set("X-Forwarded-For", xff)
		return req
	}

	// A fresh header per request does not buy a fresh bucket
	require.Equal(t, http.StatusOK, serve(limited, spoofed("203.0.113.1")).Code)
	require.Equal(t, http.StatusTooManyRequests, serve(limited, spoofed("203.0.113.2")).Code)
}

func TestFormFieldKeyExtractor(t *testing.T) {
	extractor := httpx.FormFieldKeyExtractor("email")

	t.Run("query string", func(t *testing.T) {
		require.Equal(t, "alice@example.com", extractor(httptest.NewRequest(http.MethodGet, "/?email=alice@example.com", nil)))
	})

	t.Run("post form is lower cased", func(t *testing.T) {
		form := url.Values{"email": {" Bob@Example.COM "}}
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		require.Equal(t, "bob@example.com", extractor(req))
	})

	t.Run("missing field", func(t *testing.T) {
		require.Empty(t, extractor(httptest.NewRequest(http.MethodGet, "/", nil)))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	extractor := httpx.CompositeKeyExtractor(":", httpx.IPKeyExtractor, httpx.FormFieldKeyExtractor("email"))

	require.Equal(t, "192.168.1.1:alice@example.com", extractor(requestFrom("192.168.1.1:12345", "/?email=alice@example.com")))
	require.Equal(t, "192.168.1.1", extractor(requestFrom("192.168.1.1:12345", "/")))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks requests over limit", func(t *testing.T) {
		limited := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}, httpx.IPKeyExtractor)(okHandler)

		for i := range 3 {
			rec := serve(limited, requestFrom("192.168.1.1:12345", "/"))
			require.Equal(t, http.StatusOK, rec.Code, "request %d should succeed", i+1)
		}

		rec := serve(limited, requestFrom("192.168.1.1:12345", "/"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	})

	t.Run("keys are tracked separately", func(t *testing.T) {
		limited := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1})(okHandler)

		require.Equal(t, http.StatusOK, serve(limited, requestFrom("192.168.1.1:1", "/")).Code)
		require.Equal(t, http.StatusTooManyRequests, serve(limited, requestFrom("192.168.1.1:1", "/")).Code)
		require.Equal(t, http.StatusOK, serve(limited, requestFrom("192.168.1.2:1", "/")).Code)
	})

	t.Run("empty key passes through", func(t *testing.T) {
		limited := httpx.RateLimitMiddleware(httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			func(*http.Request) string { return "" })(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, serve(limited, requestFrom("192.168.1.1:1", "/")).Code)
		}
	})
}

func TestRateLimitByIPAndFormField(t *testing.T) {
	limited := httpx.RateLimitByIPAndFormField(httpx.RateLimitConfig{RequestsPerWindow: 2, Window: time.Minute, Burst: 2}, "email")(okHandler)

	for range 2 {
		require.Equal(t, http.StatusOK, serve(limited, requestFrom("192.168.1.1:1", "/?email=alice@example.com")).Code)
	}
	// Case differences share the bucket
	require.Equal(t, http.StatusTooManyRequests, serve(limited, requestFrom("192.168.1.1:1", "/?email=ALICE@example.com")).Code)
	require.Equal(t, http.StatusOK, serve(limited, requestFrom("192.168.1.1:1", "/?email=bob@example.com")).Code)
}

func TestRateLimitProfiles(t *testing.T) {
	for name, config := range map[string]httpx.RateLimitConfig{
		"strict":   httpx.StrictLimit,
		"moderate": httpx.ModerateLimit,
		"lenient":  httpx.LenientLimit,
	} {
		t.Run(name, func(t *testing.T) {
			require.Positive(t, config.RequestsPerWindow)
			require.Positive(t, config.Window)
			require.Positive(t, config.Burst)
		})
	}

	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
}

func TestParseRateLimitFromEnv(t *testing.T) {
	defaults := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 10}

	t.Run("no overrides", func(t *testing.T) {
		require.Equal(t, defaults, httpx.ParseRateLimitFromEnv("UNSET", defaults))
	})

	t.Run("all overrides", func(t *testing.T) {
		t.Setenv("RATELIMIT_TEST_REQUESTS", "50")
		t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "30")
		t.Setenv("RATELIMIT_TEST_BURST", "7")

		got := httpx.ParseRateLimitFromEnv("TEST", defaults)
		require.Equal(t, httpx.RateLimitConfig{RequestsPerWindow: 50, Window: 30 * time.Second, Burst: 7}, got)
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		t.Setenv("RATELIMIT_BAD_REQUESTS", "lots")
		t.Setenv("RATELIMIT_BAD_WINDOW_SEC", "-5")
		t.Setenv("RATELIMIT_BAD_BURST", "0")

		require.Equal(t, defaults, httpx.ParseRateLimitFromEnv("BAD", defaults))
	})
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	limited := httpx.RateLimitByIP(httpx.RateLimitConfig{RequestsPerWindow: 1000000, Window: time.Minute, Burst: 1000})(okHandler)

	for i := 0; b.Loop(); i++ {
		serve(limited, requestFrom(fmt.Sprintf("192.168.%d.%d:12345", i%255, (i/255)%255), "/"))
	}
}
