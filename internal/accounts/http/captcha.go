package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/accounts/internal/accounts/session"
	"github.com/aussiebroadwan/accounts/pkg/accountsdk"
	"github.com/aussiebroadwan/accounts/pkg/captcha"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

type CaptchaHandler struct {
	Sessions  *session.Manager
	Generator *captcha.Generator
}

// ServeHTTP godoc
//
//	@Summary		Captcha Image Endpoint
//	@Description	Renders a new challenge and stores its code in the caller's session, replacing any previous one
//	@Tags			Account
//	@Produce		png
//	@Success		200	{file}		binary					"PNG image"
//	@Failure		500	{object}	accountsdk.ErrorResponse	"error, error_description"
//	@Router			/Account/Captcha [get].
func (h *CaptchaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	ch, err := h.Generator.Generate()
	if err != nil {
		log.Error("failed to generate captcha", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	sess := h.Sessions.Load(w, r)
	if err := sess.Set(ctx, session.KeyCaptchaCode, ch.Code); err != nil {
		log.Error("failed to store captcha code", "err", err)
		accountsdk.ErrServerError.WriteError(w)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(ch.Image)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ch.Image)
}

// checkCaptcha reads and clears the stored code and compares the answer.
// The code is spent whatever the outcome.
func checkCaptcha(w http.ResponseWriter, r *http.Request, sessions *session.Manager, answer string) (bool, error) {
	sess := sessions.Load(w, r)
	stored, _, err := sess.Take(r.Context(), session.KeyCaptchaCode)
	if err != nil {
		return false, err
	}
	return captcha.Verify(answer, stored), nil
}
