package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

// SessionCookieTTL is how long the browser keeps the session token cookie.
// The token inside still carries its own, shorter expiry.
const SessionCookieTTL = 8 * time.Hour

func setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionCookieTTL / time.Second),
		Expires:  time.Now().Add(SessionCookieTTL),
		HttpOnly: true,
		Secure:   httpx.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   httpx.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
}
