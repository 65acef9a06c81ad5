package http

import (
	"net/http"

	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
)

type MeHandler struct{}

// ServeHTTP godoc
//
//	@Summary		Current Principal Endpoint
//	@Description	Returns the principal carried by the session token
//	@Tags			Account
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	accountsdk.PrincipalResponse	"user_no, name, role, settings, calendar_preference, expires_at"
//	@Failure		401	{object}	accountsdk.ErrorResponse		"invalid_token"
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		accountsdk.ErrInvalidCredentials.WriteError(w)
		return
	}

	p := claims.Principal()
	resp := accountsdk.PrincipalResponse{
		UserNo:             p.Subject,
		Name:               p.Name,
		Role:               p.Role,
		Settings:           p.Settings,
		CalendarPreference: p.CalendarPreference,
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Unix()
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
