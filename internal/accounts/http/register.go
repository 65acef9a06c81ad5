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

type RegisterHandler struct {
	AuthService    *service.AuthService
	Sessions       *session.Manager
	RequireCaptcha bool
}

// ServeHTTP godoc
//
//	@Summary		Register Endpoint
//	@Description	Creates an inactive account and mails an activation link valid for 24 hours
//	@Tags			Account
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			name				formData	string							true	"Display name (3 to 50 characters)"
//	@Param			email				formData	string							true	"Email address"
//	@Param			password			formData	string							true	"Password (6 to 50 characters)"
//	@Param			confirm_password	formData	string							true	"Must match password"
//	@Param			captcha				formData	string							false	"Code from /Account/Captcha"
//	@Success		201					{object}	accountsdk.RegisterResponse		"user_no, mail_sent"
//	@Failure		400					{object}	accountsdk.ErrorResponse		"invalid_request or invalid_captcha"
//	@Failure		409					{object}	accountsdk.ErrorResponse		"email_taken"
//	@Failure		500					{object}	accountsdk.ErrorResponse		"server_error"
//	@Router			/Account/Register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	userNo, err := h.AuthService.Register(ctx, service.RegisterInput{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	})
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusCreated, accountsdk.RegisterResponse{UserNo: userNo, MailSent: true})
	case errors.Is(err, service.ErrMailDelivery):
		httpx.WriteJSON(w, http.StatusCreated, accountsdk.RegisterResponse{UserNo: userNo, MailSent: false})
	case errors.Is(err, service.ErrEmailTaken):
		accountsdk.ErrEmailTaken.WriteError(w)
	case isValidationError(err):
		accountsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
	default:
		log.Error("registration failed", "err", err)
		accountsdk.ErrServerError.WriteError(w)
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidName) ||
		errors.Is(err, service.ErrInvalidEmail) ||
		errors.Is(err, service.ErrWeakPassword) ||
		errors.Is(err, service.ErrPasswordMismatch)
}
