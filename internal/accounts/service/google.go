package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	ProviderGoogle = "Google"

	GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

var (
	ErrFederatedExchange = errors.New("federated sign-in failed")

	// ErrFederatedConflict means the provider's address belongs to a local
	// account and the provider has not verified it.
	ErrFederatedConflict = errors.New("email registered to another account")
)

// NewGoogleOAuthConfig builds the OAuth2 client config for Google sign-in.
func NewGoogleOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
}

type googleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleLoginService signs accounts in through Google. Accounts are matched
// by Google subject, then by verified email, and created on first sight.
type GoogleLoginService struct {
	OAuth       *oauth2.Config
	UserInfoURL string
	Store       store.Store
	Signer      TokenIssuer
	Logger      *slog.Logger
}

// AuthCodeURL is where the browser goes to start the round trip.
func (s *GoogleLoginService) AuthCodeURL(state string) string {
	return s.OAuth.AuthCodeURL(state)
}

// Complete exchanges the callback code and signs the matching account in.
func (s *GoogleLoginService) Complete(ctx context.Context, code string) (LoginResult, error) {
	log := slogx.FromContextOr(ctx, s.Logger)

	if code == "" {
		return LoginResult{}, ErrFederatedExchange
	}

	tok, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		log.Warn("google code exchange failed", slog.Any("error", err))
		return LoginResult{}, fmt.Errorf("%w: %w", ErrFederatedExchange, err)
	}

	info, err := s.fetchUserInfo(ctx, tok)
	if err != nil {
		log.Warn("google userinfo fetch failed", slog.Any("error", err))
		return LoginResult{}, fmt.Errorf("%w: %w", ErrFederatedExchange, err)
	}

	u, err := s.findOrCreate(ctx, info)
	if err != nil {
		return LoginResult{}, err
	}
	if !u.IsActive {
		log.Info("google login rejected", slog.String("user_no", u.UserNo), slog.String("reason", "inactive"))
		return LoginResult{}, ErrInvalidCredentials
	}

	token, err := s.Signer.GenerateToken(principalOf(u))
	if err != nil {
		log.Error("failed to mint session token", slog.String("user_no", u.UserNo), slog.Any("error", err))
		return LoginResult{}, err
	}

	log.Info("google login succeeded", slog.String("user_no", u.UserNo))
	return LoginResult{Token: token, User: u, Redirect: domain.LandingPath(u.Role)}, nil
}

func (s *GoogleLoginService) fetchUserInfo(ctx context.Context, tok *oauth2.Token) (googleUserInfo, error) {
	url := s.UserInfoURL
	if url == "" {
		url = GoogleUserInfoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return googleUserInfo{}, err
	}

	resp, err := s.OAuth.Client(ctx, tok).Do(req)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return googleUserInfo{}, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}
	if info.Subject == "" || info.Email == "" {
		return googleUserInfo{}, errors.New("userinfo missing sub or email")
	}
	return info, nil
}

func (s *GoogleLoginService) findOrCreate(ctx context.Context, info googleUserInfo) (domain.User, error) {
	log := slogx.FromContextOr(ctx, s.Logger)
	users := s.Store.Users()

	// 1. Already linked
	u, err := users.GetByProvider(ctx, ProviderGoogle, info.Subject)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, err
	}

	email := strings.ToLower(strings.TrimSpace(info.Email))

	// 2. Local account with the same address
	u, err = users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if !info.EmailVerified {
			log.Info("google login rejected", slog.String("user_no", u.UserNo), slog.String("reason", "unverified email"))
			return domain.User{}, ErrFederatedConflict
		}
		// Never link on a sign-in that is about to be refused
		if !u.IsActive {
			log.Info("google login rejected", slog.String("user_no", u.UserNo), slog.String("reason", "inactive"))
			return domain.User{}, ErrInvalidCredentials
		}
		if err := users.LinkProvider(ctx, u.UserNo, ProviderGoogle, info.Subject); err != nil {
			return domain.User{}, err
		}
		log.Info("google identity linked", slog.String("user_no", u.UserNo))
		u.Provider, u.ProviderKey = ProviderGoogle, info.Subject
		return u, nil
	case !errors.Is(err, store.ErrNotFound):
		return domain.User{}, err
	}

	// 3. First sight: create an active member
	name := strings.TrimSpace(info.Name)
	if name == "" {
		name = email
	}
	now := time.Now().UTC()
	u = domain.User{
		UserNo:      newUserNo(),
		Email:       email,
		Name:        name,
		IsActive:    true,
		Role:        domain.RoleMember,
		Provider:    ProviderGoogle,
		ProviderKey: info.Subject,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, ErrFederatedConflict
		}
		return domain.User{}, err
	}

	log.Info("account created from google identity", slog.String("user_no", u.UserNo))
	return u, nil
}
