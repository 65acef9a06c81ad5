package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are reached through methods so a Tx can
// hand out the same repos bound to the transaction.
type Store interface {
	Users() Users
	VerificationTokens() VerificationTokens

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetByUserNo(ctx context.Context, userNo string) (domain.User, error)

	// GetByEmail matches case-insensitively.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// GetByProvider finds the account linked to a federated identity.
	GetByProvider(ctx context.Context, provider, providerKey string) (domain.User, error)

	// Create inserts a new account. A duplicate user_no or email returns
	// ErrAlreadyExists.
	Create(ctx context.Context, u domain.User) error

	// UpdatePasswordHash replaces the stored hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userNo, hash string) error

	// LinkProvider attaches a federated identity to an existing account.
	LinkProvider(ctx context.Context, userNo, provider, providerKey string) error
}

type VerificationTokens interface {
	// Upsert stores the token for (user_no, purpose), replacing any pending
	// token of the same purpose. An unknown user_no returns ErrNotFound.
	Upsert(ctx context.Context, t domain.VerificationToken) error

	// FindValid returns the user_no a token belongs to when it matches the
	// hash and purpose, expires strictly after now, and the account is in
	// the state the purpose requires. Anything else is ErrNotFound.
	FindValid(ctx context.Context, tokenHash string, purpose domain.Purpose, now time.Time) (string, error)

	// Consume deletes the token under the same conditions as FindValid and
	// applies effect to the account, atomically. Zero matching rows is
	// ErrNotFound and nothing is applied.
	Consume(ctx context.Context, tokenHash string, purpose domain.Purpose, now time.Time, effect domain.Effect) (string, error)

	// DeleteExpired removes tokens that expired at or before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
