package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/jackc/pgx/v5"
)

type usersRepo struct {
	q querier
}

const userColumns = `user_no, email, name, password_hash, is_active, role, provider, provider_key,
	settings, calendar_preference, created_at, updated_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.UserNo, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.Role, &u.Provider,
		&u.ProviderKey, &u.Settings, &u.CalendarPreference, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *usersRepo) GetByUserNo(ctx context.Context, userNo string) (domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_no = $1`, userNo))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.q.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *usersRepo) GetByProvider(ctx context.Context, provider, providerKey string) (domain.User, error) {
	if provider == "" || providerKey == "" {
		return domain.User{}, store.ErrNotFound
	}
	return scanUser(r.q.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = $1 AND provider_key = $2`, provider, providerKey))
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.UserNo, u.Email, u.Name, u.PasswordHash, u.IsActive, u.Role, u.Provider,
		u.ProviderKey, u.Settings, u.CalendarPreference, u.CreatedAt, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userNo, hash string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE user_no = $2`, hash, userNo)
	if err != nil {
		return err
	}
	return expectOne(tag)
}

func (r *usersRepo) LinkProvider(ctx context.Context, userNo, provider, providerKey string) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET provider = $1, provider_key = $2, updated_at = now() WHERE user_no = $3`,
		provider, providerKey, userNo)
	if err != nil {
		return mapConstraint(err)
	}
	return expectOne(tag)
}
