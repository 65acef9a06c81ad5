package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

type usersRepo struct {
	q DBTX
}

const userColumns = `user_no, email, name, password_hash, is_active, role, provider, provider_key,
	settings, calendar_preference, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u                    domain.User
		active               int
		createdAt, updatedAt int64
	)
	err := row.Scan(&u.UserNo, &u.Email, &u.Name, &u.PasswordHash, &active, &u.Role, &u.Provider,
		&u.ProviderKey, &u.Settings, &u.CalendarPreference, &createdAt, &updatedAt)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	u.IsActive = active != 0
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

func (r *usersRepo) GetByUserNo(ctx context.Context, userNo string) (domain.User, error) {
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_no = ?`, userNo))
}

func (r *usersRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	// email carries COLLATE NOCASE
	return scanUser(r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) GetByProvider(ctx context.Context, provider, providerKey string) (domain.User, error) {
	if provider == "" || providerKey == "" {
		return domain.User{}, store.ErrNotFound
	}
	return scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE provider = ? AND provider_key = ?`, provider, providerKey))
}

func (r *usersRepo) Create(ctx context.Context, u domain.User) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UserNo, u.Email, u.Name, u.PasswordHash, boolToInt(u.IsActive), u.Role, u.Provider,
		u.ProviderKey, u.Settings, u.CalendarPreference, toMillis(u.CreatedAt), toMillis(now),
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userNo, hash string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE user_no = ?`,
		hash, toMillis(time.Now()), userNo)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *usersRepo) LinkProvider(ctx context.Context, userNo, provider, providerKey string) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET provider = ?, provider_key = ?, updated_at = ? WHERE user_no = ?`,
		provider, providerKey, toMillis(time.Now()), userNo)
	if err != nil {
		return mapConstraint(err)
	}
	return expectOne(res)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectOne(res rowsAffected) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
