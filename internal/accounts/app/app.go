package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/accounts/internal/accounts/http"
	"github.com/aussiebroadwan/accounts/internal/accounts/mail"
	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/internal/accounts/session"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/postgres"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/pkg/captcha"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application holds the accounts service and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	sessions session.Store
	mailer   mail.Sender
	signer   *jwtx.HS256Signer
	verifier *jwtx.HS256Verifier
	hasher   *cryptox.PasswordHasher

	// Services
	verificationService *service.VerificationService
	authService         *service.AuthService
	googleService       *service.GoogleLoginService // Optional: nil unless configured
	housekeepingService *service.HousekeepingService
	housekeepingRunning bool

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New builds the application. cfg is validated first.
func New(cfg Config) (*Application, error) {
	return NewWithLogger(cfg, slogx.New(slogx.Config{
		Service: "accounts",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	}))
}

// NewWithLogger is New with a caller supplied logger.
func NewWithLogger(cfg Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &Application{cfg: cfg, logger: logger}

	ctx := context.Background()
	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}
	if err := app.initSessions(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initMail(); err != nil {
		_ = app.sessions.Close()
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initTokens(); err != nil {
		app.closeDependencies()
		return nil, err
	}
	app.initServices()
	if err := app.initHTTP(); err != nil {
		app.closeDependencies()
		return nil, err
	}

	return app, nil
}

// Handler is the fully wired HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	if app.housekeepingService != nil {
		app.housekeepingService.Start()
		app.housekeepingRunning = true
	}

	app.logger.Info("accounts service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down accounts service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.housekeepingRunning {
		app.housekeepingService.Stop()
		app.housekeepingRunning = false
	}

	if err := app.closeDependencies(); err != nil {
		return err
	}

	app.logger.Info("accounts service stopped")
	return nil
}

func (app *Application) closeDependencies() error {
	var errs []error

	if err := app.sessions.Close(); err != nil {
		app.logger.Error("error closing session store", "error", err)
		errs = append(errs, err)
	}
	if c, ok := app.mailer.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			app.logger.Error("error closing mail sender", "error", err)
			errs = append(errs, err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg Database) (store.Store, error) {
	var (
		db  store.Store
		err error
	)

	switch cfg.Driver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, cfg.DSN)
	default:
		db, err = sqlite.NewStore(cfg.DSN)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

func (app *Application) initDatabase(ctx context.Context) error {
	db, err := OpenStore(ctx, app.cfg.Database)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.Database.Driver)
	return nil
}

func (app *Application) initSessions() error {
	idle := app.cfg.Session.IdleTimeout

	switch app.cfg.Session.Backend {
	case SessionBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.Redis.Addr,
			Password: app.cfg.Redis.Password,
			DB:       app.cfg.Redis.DB,
		})
		app.sessions = session.NewRedisStore(client, app.cfg.Redis.Prefix, idle)
	case SessionBackendBolt:
		st, err := session.NewBoltStoreFromFile(app.cfg.Bolt.Path, idle)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		app.sessions = st
	default:
		app.sessions = session.NewMemoryStore(idle)
	}

	app.logger.Info("session store ready", "backend", app.cfg.Session.Backend)
	return nil
}

func (app *Application) initMail() error {
	if app.cfg.AMQP.URL == "" {
		app.mailer = mail.LogSender{Logger: app.logger}
		app.logger.Warn("AMQP_URL not set, outbound mail is only logged")
		return nil
	}

	sender, err := mail.DialAMQP(app.cfg.AMQP.URL, app.cfg.AMQP.Queue)
	if err != nil {
		return fmt.Errorf("failed to connect mail broker: %w", err)
	}
	app.mailer = sender
	return nil
}

func (app *Application) initTokens() error {
	key := []byte(app.cfg.JWT.Key)

	signer, err := jwtx.NewHS256Signer(key, jwtx.SignOptions{
		Issuer:   app.cfg.JWT.Issuer,
		Audience: app.cfg.JWT.Audience,
		TTL:      app.cfg.JWT.TTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token signer: %w", err)
	}
	app.signer = signer

	app.verifier = jwtx.NewHS256Verifier(key, jwtx.VerifyOptions{
		Issuer:           app.cfg.JWT.Issuer,
		Audience:         app.cfg.JWT.Audience,
		ValidateAudience: app.cfg.JWT.ValidateAudience,
	})
	app.hasher = cryptox.NewPasswordHasher(app.cfg.HashIterations, cryptox.MinIterations)
	return nil
}

func (app *Application) initServices() {
	app.verificationService = &service.VerificationService{
		Store:  app.db,
		Hasher: app.hasher,
		Logger: app.logger,
	}

	app.authService = &service.AuthService{
		Store:        app.db,
		Hasher:       app.hasher,
		Signer:       app.signer,
		Verification: app.verificationService,
		Mail:         app.mailer,
		BaseURL:      app.cfg.BaseURL,
		Logger:       app.logger,
	}

	if g := app.cfg.Google; g.Enabled() {
		app.googleService = &service.GoogleLoginService{
			OAuth:  service.NewGoogleOAuthConfig(g.ClientID, g.ClientSecret, g.RedirectURL),
			Store:  app.db,
			Signer: app.signer,
			Logger: app.logger,
		}
		app.logger.Info("google sign-in enabled")
	}

	if app.cfg.HousekeepingEnabled {
		// Redis expires idle sessions itself
		sweeper, _ := app.sessions.(session.Sweeper)
		app.housekeepingService = service.NewHousekeepingService(
			app.db,
			sweeper,
			app.logger,
			app.cfg.HousekeepingInterval,
		)
	}
}

func (app *Application) initHTTP() error {
	gen, err := captcha.NewGenerator()
	if err != nil {
		return fmt.Errorf("failed to initialize captcha: %w", err)
	}

	proxies, err := httpx.ParseTrustedProxies(app.cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("failed to parse trusted proxies: %w", err)
	}
	httpx.SetTrustedProxies(proxies)

	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		session.NewManager(app.sessions),
		app.logger,
	)

	router.Captcha = gen
	router.RequireCaptcha = app.cfg.Captcha.Enabled
	router.AuthService = app.authService
	router.VerificationService = app.verificationService
	router.GoogleLoginService = app.googleService // nil when not configured
	if p, ok := app.mailer.(httpapi.Pinger); ok {
		router.MailBroker = p
	}
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
