package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

type ActivateHandler struct {
	VerificationService *service.VerificationService
}

// ServeHTTP godoc
//
//	@Summary		Activate Account Endpoint
//	@Description	Redeems the token from an activation mail. Each token works once.
//	@Tags			Account
//	@Produce		json
//	@Param			token	query		string						true	"Token from the activation link"
//	@Success		200		{object}	accountsdk.MessageResponse	"message"
//	@Failure		400		{object}	accountsdk.ErrorResponse	"invalid_token"
//	@Router			/Account/Activate [get].
func (h *ActivateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	_, err := h.VerificationService.Activate(ctx, r.URL.Query().Get("token"))
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFoundOrExpired) {
			accountsdk.ErrInvalidToken.WriteError(w)
			return
		}
		log.Error("activation failed", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountsdk.MessageResponse{
		Message: "Your account is active. You can now sign in.",
	})
}
