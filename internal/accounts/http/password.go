package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

const forgotPasswordMessage = "If the address belongs to an active account, a reset link is on its way."

type PasswordHandler struct {
	AuthService         *service.AuthService
	VerificationService *service.VerificationService
}

// HandleForgot godoc
//
//	@Summary		Forgot Password Endpoint
//	@Description	Mails a reset link valid for 10 minutes when the address belongs to an active account.
//	@Description	The response is the same whether or not it does.
//	@Tags			Password
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			email	formData	string						true	"Account email"
//	@Success		202		{object}	accountsdk.MessageResponse	"message"
//	@Failure		429		{object}	accountsdk.ErrorResponse	"rate_limit_exceeded"
//	@Router			/Account/ForgotPassword [post].
func (h *PasswordHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		accountsdk.ErrInvalidRequest.WithDescription("invalid form body").WriteError(w)
		return
	}

	if err := h.AuthService.ForgotPassword(ctx, r.PostFormValue("email")); err != nil {
		log.Error("forgot password failed", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, accountsdk.MessageResponse{Message: forgotPasswordMessage})
}

// HandleResetGet godoc
//
//	@Summary		Check Reset Link Endpoint
//	@Description	Reports whether a reset link is still usable without using it
//	@Tags			Password
//	@Produce		json
//	@Param			token	query		string						true	"Token from the reset link"
//	@Success		200		{object}	accountsdk.MessageResponse	"message"
//	@Failure		400		{object}	accountsdk.ErrorResponse	"invalid_token"
//	@Router			/Account/ResetPassword [get].
func (h *PasswordHandler) HandleResetGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	_, err := h.VerificationService.ValidateToken(ctx, r.URL.Query().Get("token"), domain.PurposePasswordReset)
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFoundOrExpired) {
			accountsdk.ErrInvalidToken.WriteError(w)
			return
		}
		log.Error("reset token lookup failed", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{Message: "Choose a new password."})
}

// HandleResetPost godoc
//
//	@Summary		Reset Password Endpoint
//	@Description	Redeems a reset link and sets a new password. A rejected password leaves the link usable.
//	@Tags			Password
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token				formData	string						true	"Token from the reset link"
//	@Param			password			formData	string						true	"New password (6 to 50 characters)"
//	@Param			confirm_password	formData	string						true	"Must match password"
//	@Success		200					{object}	accountsdk.MessageResponse	"message"
//	@Failure		400					{object}	accountsdk.ErrorResponse	"invalid_request or invalid_token"
//	@Router			/Account/ResetPassword [post].
func (h *PasswordHandler) HandleResetPost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		accountsdk.ErrInvalidRequest.WithDescription("invalid form body").WriteError(w)
		return
	}

	password := r.PostFormValue("password")
	if password != r.PostFormValue("confirm_password") {
		accountsdk.ErrInvalidRequest.WithDescription(service.ErrPasswordMismatch.Error()).WriteError(w)
		return
	}

	_, err := h.VerificationService.ResetPassword(ctx, r.PostFormValue("token"), password)
	switch {
	case err == nil:
		httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{
			Message: "Your password has been changed. You can now sign in.",
		})
	case errors.Is(err, service.ErrTokenNotFoundOrExpired):
		accountsdk.ErrInvalidToken.WriteError(w)
	case isValidationError(err):
		accountsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
	default:
		log.Error("password reset failed", "err", err)
		accountsdk.ErrServerError.WriteError(w)
	}
}

// HandleChange godoc
//
//	@Summary		Change Password Endpoint
//	@Description	Replaces the signed-in account's password after checking the current one
//	@Tags			Password
//	@Security		BearerAuth
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			current_password	formData	string	true	"Current password"
//	@Param			new_password		formData	string	true	"New password (6 to 50 characters)"
//	@Param			confirm_password	formData	string	true	"Must match new_password"
//	@Success		204					"No Content"
//	@Failure		400					{object}	accountsdk.ErrorResponse	"invalid_request"
//	@Failure		401					{object}	accountsdk.ErrorResponse	"invalid_token or invalid_credentials"
//	@Router			/Account/ChangePassword [post].
func (h *PasswordHandler) HandleChange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		accountsdk.ErrInvalidRequest.WithDescription("invalid form body").WriteError(w)
		return
	}

	userNo := httpx.SubjectFromContext(ctx)
	err := h.AuthService.ChangePassword(ctx, userNo,
		r.PostFormValue("current_password"),
		r.PostFormValue("new_password"),
		r.PostFormValue("confirm_password"),
	)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrInvalidCredentials):
		accountsdk.ErrInvalidCredentials.WithDescription("The current password is incorrect").WriteError(w)
	case errors.Is(err, service.ErrNoPassword):
		accountsdk.ErrInvalidRequest.WithDescription("This account signs in with an external provider").WriteError(w)
	case errors.Is(err, service.ErrAccountNotFound):
		accountsdk.ErrNotFound.WriteError(w)
	case isValidationError(err):
		accountsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
	default:
		log.Error("password change failed", "user_no", userNo, "err", err)
		accountsdk.ErrServerError.WriteError(w)
	}
}
