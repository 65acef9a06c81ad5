package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

type verificationTokensRepo struct {
	q      DBTX
	atomic atomicFunc
}

// The state predicate keeps an activation token from working on an active
// account and a reset token from working on an inactive one.
const validTokenPredicate = `token_hash = ? AND purpose = ? AND expires_at > ?
	AND user_no IN (SELECT user_no FROM users WHERE is_active = ?)`

func (r *verificationTokensRepo) Upsert(ctx context.Context, t domain.VerificationToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO verification_tokens (user_no, purpose, token_hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_no, purpose) DO UPDATE SET
			token_hash = excluded.token_hash,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		t.UserNo, string(t.Purpose), t.TokenHash, toMillis(t.ExpiresAt), toMillis(t.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *verificationTokensRepo) FindValid(ctx context.Context, tokenHash string, purpose domain.Purpose, now time.Time) (string, error) {
	var userNo string
	err := r.q.QueryRowContext(ctx,
		`SELECT user_no FROM verification_tokens WHERE `+validTokenPredicate,
		tokenHash, string(purpose), toMillis(now), boolToInt(purpose.RequiresActive()),
	).Scan(&userNo)
	if err != nil {
		return "", mapNotFound(err)
	}
	return userNo, nil
}

func (r *verificationTokensRepo) Consume(
	ctx context.Context,
	tokenHash string,
	purpose domain.Purpose,
	now time.Time,
	effect domain.Effect,
) (string, error) {
	var userNo string
	err := r.atomic(ctx, func(q DBTX) error {
		// 1. Claim the token. Only one caller can delete the row.
		err := q.QueryRowContext(ctx,
			`DELETE FROM verification_tokens WHERE `+validTokenPredicate+` RETURNING user_no`,
			tokenHash, string(purpose), toMillis(now), boolToInt(purpose.RequiresActive()),
		).Scan(&userNo)
		if err != nil {
			return mapNotFound(err)
		}

		// 2. Apply the effect to the account that owned it
		return applyEffect(ctx, q, userNo, effect, now)
	})
	if err != nil {
		return "", err
	}
	return userNo, nil
}

func applyEffect(ctx context.Context, q DBTX, userNo string, effect domain.Effect, now time.Time) error {
	if effect.Activate {
		res, err := q.ExecContext(ctx,
			`UPDATE users SET is_active = 1, updated_at = ? WHERE user_no = ?`, toMillis(now), userNo)
		if err != nil {
			return err
		}
		if err := expectOne(res); err != nil {
			return err
		}
	}
	if effect.PasswordHash != "" {
		res, err := q.ExecContext(ctx,
			`UPDATE users SET password_hash = ?, updated_at = ? WHERE user_no = ?`,
			effect.PasswordHash, toMillis(now), userNo)
		if err != nil {
			return err
		}
		if err := expectOne(res); err != nil {
			return err
		}
	}
	return nil
}

func (r *verificationTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM verification_tokens WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ store.VerificationTokens = (*verificationTokensRepo)(nil)
