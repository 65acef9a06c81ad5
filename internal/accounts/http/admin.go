package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

type AdminHandler struct {
	AuthService *service.AuthService
}

// HandleResendActivation godoc
//
//	@Summary		Re-send Activation Endpoint
//	@Description	Mails a fresh activation link to an inactive account, replacing any pending one.
//	@Description	The caller must be an active account with role Admin, Mis or User.
//	@Tags			Admin
//	@Security		BearerAuth
//	@Param			userNo	path	string	true	"Account number"
//	@Success		204		"No Content"
//	@Failure		401		{object}	accountsdk.ErrorResponse	"invalid_token"
//	@Failure		403		{object}	accountsdk.ErrorResponse	"insufficient_role"
//	@Failure		404		{object}	accountsdk.ErrorResponse	"not_found"
//	@Failure		409		{object}	accountsdk.ErrorResponse	"already_active"
//	@Router			/v1/admin/accounts/{userNo}/activation [post].
func (h *AdminHandler) HandleResendActivation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userNo := r.PathValue("userNo")
	err := h.AuthService.ResendActivation(ctx, httpx.SubjectFromContext(ctx), userNo)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrForbidden):
		accountsdk.ErrInsufficientRole.WriteError(w)
	case errors.Is(err, service.ErrAccountNotFound):
		accountsdk.ErrNotFound.WriteError(w)
	case errors.Is(err, service.ErrAlreadyActive):
		accountsdk.ErrAlreadyActive.WriteError(w)
	default:
		log.Error("failed to re-send activation", "user_no", userNo, "err", err)
		accountsdk.ErrServerError.WriteError(w)
	}
}
