package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
)

type verificationTokensRepo struct {
	q      querier
	atomic atomicFunc
}

const validTokenPredicate = `token_hash = $1 AND purpose = $2 AND expires_at > $3
	AND user_no IN (SELECT user_no FROM users WHERE is_active = $4)`

func (r *verificationTokensRepo) Upsert(ctx context.Context, t domain.VerificationToken) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO verification_tokens (user_no, purpose, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_no, purpose) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at`,
		t.UserNo, string(t.Purpose), t.TokenHash, t.ExpiresAt, t.CreatedAt,
	)
	return mapConstraint(err)
}

func (r *verificationTokensRepo) FindValid(ctx context.Context, tokenHash string, purpose domain.Purpose, now time.Time) (string, error) {
	var userNo string
	err := r.q.QueryRow(ctx,
		`SELECT user_no FROM verification_tokens WHERE `+validTokenPredicate,
		tokenHash, string(purpose), now, purpose.RequiresActive(),
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
	err := r.atomic(ctx, func(q querier) error {
		// 1. Claim the token; a concurrent consumer blocks on the row lock
		// and then finds nothing to delete.
		err := q.QueryRow(ctx,
			`DELETE FROM verification_tokens WHERE `+validTokenPredicate+` RETURNING user_no`,
			tokenHash, string(purpose), now, purpose.RequiresActive(),
		).Scan(&userNo)
		if err != nil {
			return mapNotFound(err)
		}

		// 2. Apply the effect
		if effect.Activate {
			tag, err := q.Exec(ctx, `UPDATE users SET is_active = TRUE, updated_at = $1 WHERE user_no = $2`, now, userNo)
			if err != nil {
				return err
			}
			if err := expectOne(tag); err != nil {
				return err
			}
		}
		if effect.PasswordHash != "" {
			tag, err := q.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = $2 WHERE user_no = $3`,
				effect.PasswordHash, now, userNo)
			if err != nil {
				return err
			}
			if err := expectOne(tag); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return userNo, nil
}

func (r *verificationTokensRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM verification_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
