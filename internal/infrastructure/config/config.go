package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=5000"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`
	BasePath string `env:"API_BASE_PATH, default=/api"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=*"`

	Auth      AuthConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
}

type AuthConfig struct {
	JWTSecret        string        `env:"JWT_SECRET, required"`
	TokenTTL         time.Duration `env:"JWT_TTL, default=1h"`
	AllowAdminSignup bool          `env:"AUTH_ALLOW_ADMIN_SIGNUP, default=false"`
	AdminUsername    string        `env:"ADMIN_USERNAME"`
	AdminPassword    string        `env:"ADMIN_PASSWORD"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,  default=book_catalog"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=30s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type RateLimitConfig struct {
	MaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS, default=20"`
	Window      time.Duration `env:"RATE_LIMIT_WINDOW, default=1m"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

// IsDevelopment reports whether the service runs with developer-friendly defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// HTTPAddress returns the address the HTTP server binds to.
func (c *Config) HTTPAddress() string {
	return ":" + c.Port
}

// Load reads configuration from environment variables using go-envconfig.
// Values from a local .env file are applied first without overriding the
// real environment.
func Load(ctx context.Context) (*Config, error) {
	_ = godotenv.Load()
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if (c.Auth.AdminUsername == "") != (c.Auth.AdminPassword == "") {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}
	if c.RateLimit.MaxRequests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate limit must allow at least one request per positive window")
	}
	return nil
}
