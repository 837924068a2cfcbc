package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

const minSecretLength = 32

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	StoreDriver string `env:"STORE_DRIVER, default=mongo"`

	API       APIConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig

	JWT    JWTConfig
	Bcrypt BcryptConfig
	Login  LoginConfig

	Mongo    MongoConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Audit    AuditConfig
}

type APIConfig struct {
	Prefix  string `env:"API_PREFIX,  default=/api"`
	Version string `env:"API_VERSION, default=v1"`
}

type CORSConfig struct {
	Origins []string `env:"CORS_ORIGIN, default=http://localhost:3000"`
}

type RateLimitConfig struct {
	Enabled     bool          `env:"RATE_LIMIT_ENABLED,      default=true"`
	Window      time.Duration `env:"RATE_LIMIT_WINDOW,       default=15m"`
	MaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS, default=100"`
}

type JWTConfig struct {
	AccessSecret     string        `env:"JWT_ACCESS_SECRET"`
	AccessExpiresIn  time.Duration `env:"JWT_ACCESS_EXPIRES_IN,  default=15m"`
	RefreshSecret    string        `env:"JWT_REFRESH_SECRET"`
	RefreshExpiresIn time.Duration `env:"JWT_REFRESH_EXPIRES_IN, default=168h"`
	Issuer           string        `env:"JWT_ISSUER,             default=auth-service"`
	Audience         string        `env:"JWT_AUDIENCE,           default=auth-service-clients"`
}

type BcryptConfig struct {
	Cost           int `env:"BCRYPT_COST,            default=12"`
	MaxConcurrency int `env:"BCRYPT_MAX_CONCURRENCY, default=0"`
}

type LoginConfig struct {
	MaxAttempts   int           `env:"LOGIN_MAX_ATTEMPTS,   default=5"`
	LockoutWindow time.Duration `env:"LOGIN_LOCKOUT_WINDOW, default=15m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type PostgresConfig struct {
	DSN string `env:"POSTGRES_DSN"`
}

type RedisConfig struct {
	Enabled  bool   `env:"REDIS_ENABLED, default=true"`
	Addr     string `env:"REDIS_ADDR,    default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,      default=0"`
}

type AuditConfig struct {
	AMQPURL string `env:"AUDIT_AMQP_URL"`
	Queue   string `env:"AUDIT_AMQP_QUEUE, default=auth.audit"`
	Workers int    `env:"AUDIT_WORKERS,    default=4"`
}

// IsProduction reports whether internal error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// BasePath is the mount point of the versioned API, e.g. "/api/v1".
func (c *Config) BasePath() string {
	return strings.TrimRight(c.API.Prefix, "/") + "/" + strings.Trim(c.API.Version, "/")
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from the given lookuper and validates it.
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the rules env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if len(c.JWT.AccessSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET must be at least %d characters", minSecretLength))
	}
	if len(c.JWT.RefreshSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_SECRET must be at least %d characters", minSecretLength))
	}
	if c.JWT.AccessSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must differ from JWT_ACCESS_SECRET"))
	}
	if c.JWT.AccessExpiresIn <= 0 || c.JWT.RefreshExpiresIn <= 0 {
		errs = append(errs, errors.New("token expiry durations must be positive"))
	}

	if c.RateLimit.Enabled && (c.RateLimit.Window <= 0 || c.RateLimit.MaxRequests <= 0) {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW and RATE_LIMIT_MAX_REQUESTS must be positive"))
	}
	for i, origin := range c.CORS.Origins {
		c.CORS.Origins[i] = strings.TrimSpace(origin)
	}

	switch c.StoreDriver {
	case StoreMongo, StoreMemory:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			errs = append(errs, errors.New("POSTGRES_DSN is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
