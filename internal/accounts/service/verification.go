package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

var (
	// ErrTokenNotFoundOrExpired covers every verification lookup failure:
	// never issued, expired, already used, wrong purpose, wrong account state.
	ErrTokenNotFoundOrExpired = errors.New("token not found or expired")

	ErrAccountNotFound = errors.New("account not found")
)

// VerificationService runs the single-use token lifecycle for account
// activation and password reset.
type VerificationService struct {
	Store  store.Store
	Hasher *cryptox.PasswordHasher
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *VerificationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *VerificationService) hasher() *cryptox.PasswordHasher {
	if s.Hasher != nil {
		return s.Hasher
	}
	return cryptox.DefaultHasher
}

// IssueToken creates a fresh token for (userNo, purpose) and returns the raw
// value for the emailed link. Any pending token of the same purpose is
// replaced; only the fingerprint is stored.
func (s *VerificationService) IssueToken(ctx context.Context, userNo string, purpose domain.Purpose) (string, error) {
	return s.issueIn(ctx, s.Store, userNo, purpose)
}

// issueIn issues through st so callers can include it in a transaction.
func (s *VerificationService) issueIn(ctx context.Context, st store.Store, userNo string, purpose domain.Purpose) (string, error) {
	log := slogx.FromContextOr(ctx, s.Logger)

	if err := purpose.Validate(); err != nil {
		return "", err
	}

	// 1. Generate the raw token
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate verification token", slog.Any("error", err))
		return "", err
	}

	// 2. Store its fingerprint, replacing any pending token of this purpose
	now := s.now()
	err = st.VerificationTokens().Upsert(ctx, domain.VerificationToken{
		UserNo:    userNo,
		Purpose:   purpose,
		TokenHash: cryptox.FingerprintToken(token),
		ExpiresAt: now.Add(purpose.TTL()),
		CreatedAt: now,
	})
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrAccountNotFound
	}
	if err != nil {
		log.Error("failed to store verification token",
			slog.String("user_no", userNo),
			slog.String("purpose", string(purpose)),
			slog.Any("error", err),
		)
		return "", err
	}

	log.Debug("verification token issued",
		slog.String("user_no", userNo),
		slog.String("purpose", string(purpose)),
		slog.Time("expires_at", now.Add(purpose.TTL())),
	)
	return token, nil
}

// ValidateToken reports which account a token belongs to without using it.
func (s *VerificationService) ValidateToken(ctx context.Context, token string, purpose domain.Purpose) (string, error) {
	if token == "" || purpose.Validate() != nil {
		return "", ErrTokenNotFoundOrExpired
	}

	userNo, err := s.Store.VerificationTokens().FindValid(ctx, cryptox.FingerprintToken(token), purpose, s.now())
	if err != nil {
		return "", s.mapLookupError(ctx, err, purpose)
	}
	return userNo, nil
}

// Activate consumes an activation token and marks the account active.
func (s *VerificationService) Activate(ctx context.Context, token string) (string, error) {
	return s.consume(ctx, token, domain.PurposeActivation, domain.Effect{Activate: true})
}

// ResetPassword consumes a reset token and stores a hash of newPassword.
// The password is checked and hashed before the token is touched, so a
// rejected password leaves the token usable.
func (s *VerificationService) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if err := validateNewPassword(newPassword, nil); err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrTokenNotFoundOrExpired
	}

	hash, err := s.hasher().CreateHash(newPassword)
	if err != nil {
		return "", err
	}
	return s.consume(ctx, token, domain.PurposePasswordReset, domain.Effect{PasswordHash: hash})
}

func (s *VerificationService) consume(ctx context.Context, token string, purpose domain.Purpose, effect domain.Effect) (string, error) {
	log := slogx.FromContextOr(ctx, s.Logger)
	if token == "" {
		return "", ErrTokenNotFoundOrExpired
	}

	userNo, err := s.Store.VerificationTokens().Consume(ctx, cryptox.FingerprintToken(token), purpose, s.now(), effect)
	if err != nil {
		return "", s.mapLookupError(ctx, err, purpose)
	}

	log.Info("verification token consumed",
		slog.String("user_no", userNo),
		slog.String("purpose", string(purpose)),
	)
	return userNo, nil
}

func (s *VerificationService) mapLookupError(ctx context.Context, err error, purpose domain.Purpose) error {
	if errors.Is(err, store.ErrNotFound) {
		slogx.FromContextOr(ctx, s.Logger).Info("verification token rejected", slog.String("purpose", string(purpose)))
		return ErrTokenNotFoundOrExpired
	}
	slogx.FromContextOr(ctx, s.Logger).Error("verification token lookup failed",
		slog.String("purpose", string(purpose)),
		slog.Any("error", err),
	)
	return err
}
