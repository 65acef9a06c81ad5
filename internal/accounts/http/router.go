package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/session"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/captcha"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"

	_ "github.com/aussiebroadwan/accounts/api/accounts" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	Sessions *session.Manager
	Captcha  *captcha.Generator

	// RequireCaptcha makes login and registration check the challenge.
	RequireCaptcha bool

	AuthService         *service.AuthService
	VerificationService *service.VerificationService
	GoogleLoginService  *service.GoogleLoginService // Optional: nil when Google sign-in is off

	// MailBroker is checked by /readyz. Optional: nil when mail is only logged.
	MailBroker Pinger
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	sessions *session.Manager,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		verifier:       verifier,
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		store:          st,
		Sessions:       sessions,
		RequireCaptcha: true,
		logger:         logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccount()
	r.registerPasswords()
	r.registerGoogle()
	r.registerPrincipal()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Accounts Service API
//	@version		0.1.0
//	@description	Account credential service: password sign-in, registration with e-mail activation,
//	@description	password reset, Google sign-in and session tokens.
//	@description
//	@description				Session tokens are HS256 JWTs, returned in the body and in the jwtToken cookie.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/accounts
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}". Browsers may send the jwtToken cookie instead.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authenticated wraps h so it accepts a bearer header or the session cookie.
func (r *Router) authenticated(h http.Handler, mws ...httpx.Middleware) http.Handler {
	chain := append([]httpx.Middleware{
		httpx.CookieBearer(httpx.SessionCookieName),
		httpx.AuthnMiddleware(r.verifier),
	}, mws...)
	return httpx.Chain(h, chain...)
}

func (r *Router) registerAccount() {
	captchaHandler := &CaptchaHandler{Sessions: r.Sessions, Generator: r.Captcha}
	loginHandler := &LoginHandler{
		AuthService:    r.AuthService,
		Sessions:       r.Sessions,
		RequireCaptcha: r.RequireCaptcha,
	}
	logoutHandler := &LogoutHandler{Sessions: r.Sessions}
	registerHandler := &RegisterHandler{
		AuthService:    r.AuthService,
		Sessions:       r.Sessions,
		RequireCaptcha: r.RequireCaptcha,
	}
	activateHandler := &ActivateHandler{VerificationService: r.VerificationService}

	// GET /Account/Captcha - moderate rate limit (image rendering costs CPU)
	r.Mux.Handle("GET /Account/Captcha",
		httpx.Chain(captchaHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /Account/Login - strict rate limit by IP + email to slow brute force
	r.Mux.Handle("POST /Account/Login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("POST /Account/Logout", logoutHandler)

	// POST /Account/Register - strict rate limit by IP (public sign-up)
	r.Mux.Handle("POST /Account/Register",
		httpx.Chain(registerHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("GET /Account/Activate",
		httpx.Chain(activateHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPasswords() {
	h := &PasswordHandler{
		AuthService:         r.AuthService,
		VerificationService: r.VerificationService,
	}

	// POST /Account/ForgotPassword - strict, keyed on the address as well so
	// one client cannot flood a single inbox
	r.Mux.Handle("POST /Account/ForgotPassword",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("GET /Account/ResetPassword",
		httpx.Chain(http.HandlerFunc(h.HandleResetGet),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /Account/ResetPassword",
		httpx.Chain(http.HandlerFunc(h.HandleResetPost),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /Account/ChangePassword - strict by subject (guessing the current password)
	r.Mux.Handle("POST /Account/ChangePassword",
		r.authenticated(http.HandlerFunc(h.HandleChange),
			httpx.RateLimitBySubject(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerGoogle() {
	h := &GoogleHandler{GoogleLoginService: r.GoogleLoginService, Sessions: r.Sessions}

	r.Mux.Handle("GET /Account/GoogleLogin",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /Account/GoogleCallback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPrincipal() {
	r.Mux.Handle("GET /v1/me",
		r.authenticated(&MeHandler{},
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{AuthService: r.AuthService}

	// POST /v1/admin/accounts/{userNo}/activation - back office roles only
	r.Mux.Handle("POST /v1/admin/accounts/{userNo}/activation",
		r.authenticated(http.HandlerFunc(h.HandleResendActivation),
			httpx.RequireAnyRole(domain.AdminAreaRoles()...),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Sessions.Store, r.MailBroker),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
