package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/mail"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is the only failure a sign-in attempt reports.
	// Unknown email, inactive account and wrong password look the same,
	// down to each costing one password verification.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrEmailTaken    = errors.New("email already registered")
	ErrMailDelivery  = errors.New("verification mail could not be sent")
	ErrAlreadyActive = errors.New("account already active")
	ErrNoPassword    = errors.New("account has no password")
	ErrForbidden     = errors.New("insufficient role")
)

const (
	ActivatePath      = "/Account/Activate"
	ResetPasswordPath = "/Account/ResetPassword"
)

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	GenerateToken(p jwtx.Principal) (string, error)
}

// LoginResult is handed back to the transport on a successful sign-in.
type LoginResult struct {
	Token    string
	User     domain.User
	Redirect string
}

// RegisterInput is what the sign-up form submits.
type RegisterInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// PasswordHasher is the part of *cryptox.PasswordHasher sign-in needs.
type PasswordHasher interface {
	CreateHash(password string) (string, error)
	VerifyHash(password, encoded string) (bool, error)
	NeedsRehash(encoded string) bool
}

type AuthService struct {
	Store        store.Store
	Hasher       PasswordHasher
	Signer       TokenIssuer
	Verification *VerificationService
	Mail         mail.Sender

	// BaseURL prefixes links sent by mail, e.g. "https://accounts.example.com".
	BaseURL string

	Logger *slog.Logger

	dummyOnce sync.Once
	dummy     string
}

func (s *AuthService) hasher() PasswordHasher {
	if s.Hasher != nil {
		return s.Hasher
	}
	return cryptox.DefaultHasher
}

// burnVerify runs one verification against a throwaway hash made with the
// current parameters, for rejections that have no stored hash to check.
func (s *AuthService) burnVerify(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		throwaway, err := cryptox.GeneratePassword()
		if err == nil {
			s.dummy, err = s.hasher().CreateHash(throwaway)
		}
		if err != nil {
			slogx.FromContextOr(ctx, s.Logger).Error("failed to build placeholder hash", slog.Any("error", err))
		}
	})
	_, _ = s.hasher().VerifyHash(password, s.dummy)
}

// Login checks an email and password and mints a session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	log := slogx.FromContextOr(ctx, s.Logger)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}

	u, err := s.Store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		s.burnVerify(ctx, password)
		log.Info("login rejected", slog.String("reason", "unknown email"))
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		log.Error("failed to load account for login", slog.Any("error", err))
		return LoginResult{}, err
	}

	if !u.IsActive || !u.HasPassword() {
		s.burnVerify(ctx, password)
		log.Info("login rejected",
			slog.String("user_no", u.UserNo),
			slog.Bool("active", u.IsActive),
			slog.Bool("has_password", u.HasPassword()),
		)
		return LoginResult{}, ErrInvalidCredentials
	}

	ok, err := s.hasher().VerifyHash(password, u.PasswordHash)
	if err != nil {
		log.Error("stored password hash unusable", slog.String("user_no", u.UserNo), slog.Any("error", err))
		return LoginResult{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	if !ok {
		log.Info("login rejected", slog.String("user_no", u.UserNo), slog.String("reason", "wrong password"))
		return LoginResult{}, ErrInvalidCredentials
	}

	if s.hasher().NeedsRehash(u.PasswordHash) {
		s.rehash(ctx, u.UserNo, password)
	}

	token, err := s.Signer.GenerateToken(principalOf(u))
	if err != nil {
		log.Error("failed to mint session token", slog.String("user_no", u.UserNo), slog.Any("error", err))
		return LoginResult{}, err
	}

	log.Info("login succeeded", slog.String("user_no", u.UserNo), slog.String("role", u.Role))
	return LoginResult{Token: token, User: u, Redirect: domain.LandingPath(u.Role)}, nil
}

// rehash upgrades a hash made with outdated parameters. Failure only costs
// the upgrade, never the sign-in.
func (s *AuthService) rehash(ctx context.Context, userNo, password string) {
	log := slogx.FromContextOr(ctx, s.Logger)

	hash, err := s.hasher().CreateHash(password)
	if err == nil {
		err = s.Store.Users().UpdatePasswordHash(ctx, userNo, hash)
	}
	if err != nil {
		log.Warn("password rehash failed", slog.String("user_no", userNo), slog.Any("error", err))
		return
	}
	log.Info("password rehashed", slog.String("user_no", userNo))
}

// Register creates an inactive Member account and mails an activation link.
// The account and its token are written together; mail goes out after
// commit.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	log := slogx.FromContextOr(ctx, s.Logger)

	name, err := validateName(in.Name)
	if err != nil {
		return "", err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return "", err
	}
	if err := validateNewPassword(in.Password, &in.ConfirmPassword); err != nil {
		return "", err
	}

	hash, err := s.hasher().CreateHash(in.Password)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	u := domain.User{
		UserNo:       newUserNo(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     false,
		Role:         domain.RoleMember,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var token string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().Create(ctx, u); err != nil {
			return err
		}
		token, err = s.Verification.issueIn(ctx, tx, u.UserNo, domain.PurposeActivation)
		return err
	})
	if errors.Is(err, store.ErrAlreadyExists) {
		log.Info("registration rejected", slog.String("reason", "email taken"))
		return "", ErrEmailTaken
	}
	if err != nil {
		log.Error("failed to register account", slog.Any("error", err))
		return "", err
	}

	log.Info("account registered", slog.String("user_no", u.UserNo))

	if err := s.sendActivation(ctx, u, token); err != nil {
		return u.UserNo, fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}
	return u.UserNo, nil
}

// ForgotPassword mails a reset link when email belongs to an active
// account. It reports success either way so callers cannot probe which
// addresses are registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	log := slogx.FromContextOr(ctx, s.Logger)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	u, err := s.Store.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		log.Error("failed to load account for password reset", slog.Any("error", err))
		return err
	}
	if !u.IsActive {
		log.Info("password reset requested for inactive account", slog.String("user_no", u.UserNo))
		return nil
	}

	token, err := s.Verification.IssueToken(ctx, u.UserNo, domain.PurposePasswordReset)
	if err != nil {
		return err
	}

	body, err := mail.PasswordResetBody(u.Name, mail.Link(s.BaseURL, ResetPasswordPath, token))
	if err != nil {
		return err
	}
	if err := s.Mail.Send(ctx, u.Email, mail.PasswordResetSubject, body); err != nil {
		log.Error("failed to send password reset mail", slog.String("user_no", u.UserNo), slog.Any("error", err))
		return nil
	}

	log.Info("password reset mail sent", slog.String("user_no", u.UserNo))
	return nil
}

// ChangePassword replaces the password of a signed-in account after
// checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userNo, current, next, confirm string) error {
	log := slogx.FromContextOr(ctx, s.Logger)

	if err := validateNewPassword(next, &confirm); err != nil {
		return err
	}

	u, err := s.Store.Users().GetByUserNo(ctx, userNo)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	// Session tokens outlive deactivation
	if !u.IsActive {
		log.Info("password change rejected", slog.String("user_no", userNo), slog.String("reason", "inactive"))
		return ErrInvalidCredentials
	}
	if !u.HasPassword() {
		return ErrNoPassword
	}

	ok, err := s.hasher().VerifyHash(current, u.PasswordHash)
	if err != nil || !ok {
		log.Info("password change rejected", slog.String("user_no", userNo))
		return ErrInvalidCredentials
	}

	hash, err := s.hasher().CreateHash(next)
	if err != nil {
		return err
	}
	if err := s.Store.Users().UpdatePasswordHash(ctx, userNo, hash); err != nil {
		log.Error("failed to store new password", slog.String("user_no", userNo), slog.Any("error", err))
		return err
	}

	log.Info("password changed", slog.String("user_no", userNo))
	return nil
}

// ResendActivation issues a fresh activation link for an inactive account.
// The caller, actorUserNo, must be an active account with a back office
// role as currently stored, not as remembered by its session token.
func (s *AuthService) ResendActivation(ctx context.Context, actorUserNo, userNo string) error {
	log := slogx.FromContextOr(ctx, s.Logger)

	actor, err := s.Store.Users().GetByUserNo(ctx, actorUserNo)
	if errors.Is(err, store.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return err
	}
	if !actor.IsActive || !slices.Contains(domain.AdminAreaRoles(), actor.Role) {
		log.Info("activation re-send refused", slog.String("actor", actorUserNo), slog.Bool("active", actor.IsActive))
		return ErrForbidden
	}

	u, err := s.Store.Users().GetByUserNo(ctx, userNo)
	if errors.Is(err, store.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return err
	}
	if u.IsActive {
		return ErrAlreadyActive
	}

	token, err := s.Verification.IssueToken(ctx, u.UserNo, domain.PurposeActivation)
	if err != nil {
		return err
	}
	if err := s.sendActivation(ctx, u, token); err != nil {
		return fmt.Errorf("%w: %w", ErrMailDelivery, err)
	}

	log.Info("activation mail re-sent", slog.String("user_no", u.UserNo), slog.String("actor", actorUserNo))
	return nil
}

func (s *AuthService) sendActivation(ctx context.Context, u domain.User, token string) error {
	body, err := mail.ActivationBody(u.Name, mail.Link(s.BaseURL, ActivatePath, token))
	if err != nil {
		return err
	}
	if err := s.Mail.Send(ctx, u.Email, mail.ActivationSubject, body); err != nil {
		slogx.FromContextOr(ctx, s.Logger).Error("failed to send activation mail",
			slog.String("user_no", u.UserNo),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// Me returns the account behind a session subject.
func (s *AuthService) Me(ctx context.Context, userNo string) (domain.User, error) {
	u, err := s.Store.Users().GetByUserNo(ctx, userNo)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, ErrAccountNotFound
	}
	return u, err
}

func principalOf(u domain.User) jwtx.Principal {
	return jwtx.Principal{
		Subject:            u.UserNo,
		Name:               u.Name,
		Role:               u.Role,
		Settings:           u.Settings,
		CalendarPreference: u.CalendarPreference,
	}
}

// newUserNo returns a 32 character hex account number.
func newUserNo() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
