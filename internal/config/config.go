package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Transition policies accepted by INCIDENT_TRANSITION_POLICY.
const (
	PolicyPermissive = "permissive"
	PolicySequential = "sequential"
)

type Config struct {
	Port                       string        `mapstructure:"PORT"`
	Env                        string        `mapstructure:"ENV"`
	DatabaseURL                string        `mapstructure:"DATABASE_URL"`
	DBMaxConns                 int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns                 int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL                   string        `mapstructure:"REDIS_URL"`
	SessionTTL                 time.Duration `mapstructure:"SESSION_TTL"`
	BackendURL                 string        `mapstructure:"BACKEND_URL"`
	BackendTimeout             time.Duration `mapstructure:"BACKEND_TIMEOUT"`
	AuthIssuer                 string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL                string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience               string        `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey             string        `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins                []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS               float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst             int           `mapstructure:"RATE_LIMIT_BURST"`
	IncidentTransitionPolicy   string        `mapstructure:"INCIDENT_TRANSITION_POLICY"`
	CashMismatchToleranceCents int64         `mapstructure:"CASH_MISMATCH_TOLERANCE_CENTS"`
}

var envKeys = []string{
	"PORT",
	"ENV",
	"DATABASE_URL",
	"DB_MAX_CONNS",
	"DB_MIN_CONNS",
	"REDIS_URL",
	"SESSION_TTL",
	"BACKEND_URL",
	"BACKEND_TIMEOUT",
	"AUTH_ISSUER",
	"AUTH_JWKS_URL",
	"AUTH_AUDIENCE",
	"AUTH_SIGNING_KEY",
	"CORS_ORIGINS",
	"RATE_LIMIT_RPS",
	"RATE_LIMIT_BURST",
	"INCIDENT_TRANSITION_POLICY",
	"CASH_MISMATCH_TOLERANCE_CENTS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("BACKEND_TIMEOUT", "15s")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("INCIDENT_TRANSITION_POLICY", PolicyPermissive)
	v.SetDefault("CASH_MISMATCH_TOLERANCE_CENTS", 0)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" && cfg.BackendURL == "" {
		return nil, fmt.Errorf("one of DATABASE_URL or BACKEND_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: ENV=development, DevAuthMiddleware is active and every request acts as admin.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UsesBackend reports whether records are read from the upstream REST backend
// instead of Postgres.
func (c *Config) UsesBackend() bool {
	return c.BackendURL != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.IncidentTransitionPolicy {
	case PolicyPermissive, PolicySequential:
	default:
		return fmt.Errorf("INCIDENT_TRANSITION_POLICY must be %q or %q, got %q",
			PolicyPermissive, PolicySequential, c.IncidentTransitionPolicy)
	}

	if c.CashMismatchToleranceCents < 0 {
		return fmt.Errorf("CASH_MISMATCH_TOLERANCE_CENTS must not be negative, got %d", c.CashMismatchToleranceCents)
	}

	if !c.IsDev() && c.AuthIssuer == "" && c.AuthSigningKey == "" {
		return fmt.Errorf(
			"AUTH_ISSUER or AUTH_SIGNING_KEY must be set outside development (current ENV=%q)", c.Env)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	return nil
}
