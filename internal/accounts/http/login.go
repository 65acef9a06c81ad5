package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/session"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

type LoginHandler struct {
	AuthService    *service.AuthService
	Sessions       *session.Manager
	RequireCaptcha bool
}

// ServeHTTP godoc
//
//	@Summary		Login Endpoint
//	@Description	Signs in with email and password. The captcha is checked first and is spent on every attempt.
//	@Description	On success the session token is returned and set in the jwtToken cookie.
//	@Tags			Account
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			email		formData	string						true	"Account email"
//	@Param			password	formData	string						true	"Account password"
//	@Param			captcha		formData	string						false	"Code from /Account/Captcha"
//	@Success		200			{object}	accountsdk.LoginResponse	"token, redirect, user_no, name, role"
//	@Failure		400			{object}	accountsdk.ErrorResponse	"invalid_request or invalid_captcha"
//	@Failure		401			{object}	accountsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429			{object}	accountsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/Account/Login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		accountsdk.ErrInvalidRequest.WithDescription("invalid form body").WriteError(w)
		return
	}

	if h.RequireCaptcha {
		ok, err := checkCaptcha(w, r, h.Sessions, r.PostFormValue("captcha"))
		if err != nil {
			log.Error("failed to read captcha code", "err", err)
			accountsdk.ErrServerError.WriteError(w)
			return
		}
		if !ok {
			accountsdk.ErrInvalidCaptcha.WriteError(w)
			return
		}
	}

	res, err := h.AuthService.Login(ctx, r.PostFormValue("email"), r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			accountsdk.ErrInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	setSessionCookie(w, r, res.Token)
	httpx.WriteJSON(w, http.StatusOK, accountsdk.LoginResponse{
		Token:    res.Token,
		Redirect: res.Redirect,
		UserNo:   res.User.UserNo,
		Name:     res.User.Name,
		Role:     res.User.Role,
	})
}

type LogoutHandler struct {
	Sessions *session.Manager
}

// ServeHTTP godoc
//
//	@Summary		Logout Endpoint
//	@Description	Expires the session token cookie and drops the server-side session
//	@Tags			Account
//	@Success		204	"No Content"
//	@Router			/Account/Logout [post].
func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	clearSessionCookie(w, r)
	if err := h.Sessions.Destroy(r.Context(), w, r); err != nil {
		// The cookie is already gone; a stale server-side entry expires on its own
		log.Warn("failed to destroy session", "err", err)
	}

	w.WriteHeader(http.StatusNoContent)
}
