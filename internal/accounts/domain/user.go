package domain

import "time"

// User is the account record the credential core reads and writes.
type User struct {
	UserNo       string
	Email        string
	Name         string
	PasswordHash string // PBKDF2 encoded, empty for federated-only accounts
	IsActive     bool
	Role         string

	// Provider and ProviderKey link a federated identity (e.g. "Google" and
	// the provider's subject). Both empty for local accounts.
	Provider    string
	ProviderKey string

	Settings           string // opaque JSON blob carried into the session token
	CalendarPreference string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can sign in with a password.
func (u User) HasPassword() bool { return u.PasswordHash != "" }
