// Package session is the server-side key/value scratch space tied to a
// browser by a session id cookie. It holds short-lived values such as the
// captcha code and the federated login state.
package session

import (
	"context"
	"errors"
	"time"
)

// Well known keys.
const (
	KeyCaptchaCode      = "CaptchaCode"
	KeyGoogleOAuthState = "GoogleOAuthState"
)

// DefaultIdleTimeout drops a session that has not been touched for this long.
const DefaultIdleTimeout = 20 * time.Minute

var ErrInvalidID = errors.New("session: invalid session id")

// Store keeps per-session string values. Every access refreshes the idle
// timer; a session idle for longer than the timeout reads as empty.
type Store interface {
	Get(ctx context.Context, id, key string) (string, bool, error)
	Set(ctx context.Context, id, key, value string) error
	Remove(ctx context.Context, id, key string) error

	// Take reads and clears key in one atomic step, so two callers can
	// never both observe the same value.
	Take(ctx context.Context, id, key string) (string, bool, error)

	// Destroy drops the whole session.
	Destroy(ctx context.Context, id string) error

	Ping(ctx context.Context) error
	Close() error
}

// Sweeper is implemented by stores that keep idle sessions until swept.
// Redis expires keys on its own and does not need it.
type Sweeper interface {
	Sweep() (int, error)
}
