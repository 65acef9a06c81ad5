package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/session"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

type GoogleHandler struct {
	GoogleLoginService *service.GoogleLoginService
	Sessions           *session.Manager
}

// HandleLogin godoc
//
//	@Summary		Google Sign-in Endpoint
//	@Description	Stores a fresh state value in the session and redirects to Google
//	@Tags			Google
//	@Success		302	"Redirect to Google"
//	@Failure		404	{object}	accountsdk.ErrorResponse	"not_configured"
//	@Router			/Account/GoogleLogin [get].
func (h *GoogleHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if h.GoogleLoginService == nil {
		accountsdk.ErrNotConfigured.WriteError(w)
		return
	}

	state, err := service.GenerateState()
	if err != nil {
		log.Error("failed to generate oauth state", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	sess := h.Sessions.Load(w, r)
	if err := sess.Set(ctx, session.KeyGoogleOAuthState, state); err != nil {
		log.Error("failed to store oauth state", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	http.Redirect(w, r, h.GoogleLoginService.AuthCodeURL(state), http.StatusFound)
}

// HandleCallback godoc
//
//	@Summary		Google Callback Endpoint
//	@Description	Checks the returned state against the session, exchanges the code and signs the account in.
//	@Description	The stored state is spent whatever the outcome.
//	@Tags			Google
//	@Param			state				query	string	true	"State issued by /Account/GoogleLogin"
//	@Param			code				query	string	false	"Authorization code"
//	@Param			error				query	string	false	"Provider error"
//	@Param			error_description	query	string	false	"Provider error detail"
//	@Success		302					"Redirect to the landing page with the jwtToken cookie set"
//	@Failure		400					{object}	accountsdk.ErrorResponse	"federated_login_failed"
//	@Failure		401					{object}	accountsdk.ErrorResponse	"invalid_credentials"
//	@Failure		404					{object}	accountsdk.ErrorResponse	"not_configured"
//	@Router			/Account/GoogleCallback [get].
func (h *GoogleHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if h.GoogleLoginService == nil {
		accountsdk.ErrNotConfigured.WriteError(w)
		return
	}

	q := r.URL.Query()

	sess := h.Sessions.Load(w, r)
	stored, _, err := sess.Take(ctx, session.KeyGoogleOAuthState)
	if err != nil {
		log.Error("failed to read oauth state", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}
	if !service.ValidateState(q.Get("state"), stored) {
		log.Warn("oauth state mismatch")
		accountsdk.ErrFederatedLogin.WithDescription("The sign in request has expired. Please try again.").WriteError(w)
		return
	}

	if providerErr := q.Get("error"); providerErr != "" {
		log.Info("google returned an error", "error", providerErr, "error_description", q.Get("error_description"))
		accountsdk.ErrFederatedLogin.WriteError(w)
		return
	}

	res, err := h.GoogleLoginService.Complete(ctx, q.Get("code"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrInvalidCredentials):
		accountsdk.ErrInvalidCredentials.WithDescription("This account is not active").WriteError(w)
		return
	case errors.Is(err, service.ErrFederatedExchange), errors.Is(err, service.ErrFederatedConflict):
		accountsdk.ErrFederatedLogin.WriteError(w)
		return
	default:
		log.Error("google sign-in failed", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	setSessionCookie(w, r, res.Token)
	http.Redirect(w, r, res.Redirect, http.StatusFound)
}
