package app

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Session backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
	SessionBackendBolt   = "bolt"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is read from the environment, after any .env file is loaded.
type Config struct {
	JWT      JWT      `envPrefix:"JWT_"`
	Session  Session  `envPrefix:"SESSION_"`
	Database Database `envPrefix:"DATABASE_"`
	Redis    Redis    `envPrefix:"REDIS_"`
	Bolt     Bolt     `envPrefix:"BOLT_"`
	AMQP     AMQP     `envPrefix:"AMQP_"`
	Google   Google   `envPrefix:"GOOGLE_"`
	Captcha  Captcha  `envPrefix:"CAPTCHA_"`

	HashIterations int    `env:"HASH_ITERATIONS" envDefault:"210000"`
	BaseURL        string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// TrustedProxies lists the CIDRs whose X-Forwarded-For rate limiting
	// believes. Empty means the peer address is always used.
	TrustedProxies string `env:"TRUSTED_PROXIES"`

	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	HousekeepingEnabled  bool          `env:"HOUSEKEEPING_ENABLED" envDefault:"false"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// JWT configures session token signing. Key is the shared HS256 secret.
type JWT struct {
	Key              string        `env:"KEY"`
	Issuer           string        `env:"ISSUER" envDefault:"accounts"`
	Audience         []string      `env:"AUDIENCE" envSeparator:","`
	ValidateAudience bool          `env:"VALIDATE_AUDIENCE" envDefault:"false"`
	TTL              time.Duration `env:"TTL" envDefault:"120m"`
}

type Session struct {
	Backend     string        `env:"BACKEND" envDefault:"memory"`
	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"20m"`
}

type Database struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:accounts.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`
}

type Redis struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"accounts:session:"`
}

type Bolt struct {
	Path string `env:"PATH" envDefault:"sessions.db"`
}

// AMQP publishes outbound mail. An empty URL logs mail instead.
type AMQP struct {
	URL   string `env:"URL"`
	Queue string `env:"QUEUE" envDefault:"mail.outbound"`
}

// Google sign-in is on when a client id and secret are both set.
type Google struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

func (g Google) Enabled() bool { return g.ClientID != "" && g.ClientSecret != "" }

type Captcha struct {
	Enabled bool `env:"ENABLED" envDefault:"true"`
}

// LoadConfig reads the given .env files (".env" when none are named) and
// then parses the environment. Missing files are skipped.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings New cannot recover from.
func (c Config) Validate() error {
	if len(c.JWT.Key) < jwtx.MinKeyLength {
		return fmt.Errorf("JWT_KEY must be at least %d bytes", jwtx.MinKeyLength)
	}

	switch c.Session.Backend {
	case SessionBackendMemory, SessionBackendRedis, SessionBackendBolt:
	default:
		return fmt.Errorf("unknown SESSION_BACKEND %q", c.Session.Backend)
	}

	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("DATABASE_DSN is required")
	}

	if c.HashIterations < cryptox.MinIterations {
		return fmt.Errorf("HASH_ITERATIONS must be at least %d", cryptox.MinIterations)
	}
	if _, err := httpx.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	if c.Google.Enabled() && c.Google.RedirectURL == "" {
		return errors.New("GOOGLE_REDIRECT_URL is required when Google sign-in is enabled")
	}
	return nil
}
