package session

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/google/uuid"
)

// DefaultCookieName carries the session id.
const DefaultCookieName = "accounts_session"

// Manager binds a Store to browsers through a session id cookie.
type Manager struct {
	Store      Store
	CookieName string
}

func NewManager(store Store) *Manager {
	return &Manager{Store: store, CookieName: DefaultCookieName}
}

// Handle is a session bound to one request.
type Handle struct {
	store Store
	ID    string
}

// Load returns the caller's session, issuing a new id cookie when the
// request carries none (or a malformed one).
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) Handle {
	if c, err := r.Cookie(m.CookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			return Handle{store: m.Store, ID: c.Value}
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   httpx.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
	return Handle{store: m.Store, ID: id}
}

// Destroy drops the caller's session and expires the id cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	c, err := r.Cookie(m.CookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   httpx.RequestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
	return m.Store.Destroy(ctx, c.Value)
}

func (h Handle) Get(ctx context.Context, key string) (string, bool, error) {
	return h.store.Get(ctx, h.ID, key)
}

func (h Handle) Set(ctx context.Context, key, value string) error {
	return h.store.Set(ctx, h.ID, key, value)
}

func (h Handle) Remove(ctx context.Context, key string) error {
	return h.store.Remove(ctx, h.ID, key)
}

func (h Handle) Take(ctx context.Context, key string) (string, bool, error) {
	return h.store.Take(ctx, h.ID, key)
}
