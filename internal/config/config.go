package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port                   string        `mapstructure:"PORT"`
	Env                    string        `mapstructure:"ENV"`
	LogLevel               string        `mapstructure:"LOG_LEVEL"`
	DatabaseURL            string        `mapstructure:"DATABASE_URL"`
	DBMaxConns             int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns             int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL               string        `mapstructure:"REDIS_URL"`
	AvailabilityCacheTTL   time.Duration `mapstructure:"AVAILABILITY_CACHE_TTL"`
	AuthSigningKey         string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer             string        `mapstructure:"AUTH_ISSUER"`
	AuthAudience           string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins            []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS           float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst         int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout         time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	TrialDays              int           `mapstructure:"TRIAL_DAYS"`
	DefaultDurationMinutes int           `mapstructure:"DEFAULT_DURATION_MINUTES"`
	ExpirySweepSchedule    string        `mapstructure:"EXPIRY_SWEEP_SCHEDULE"`
	MetricsEnabled         bool          `mapstructure:"METRICS_ENABLED"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "AVAILABILITY_CACHE_TTL", "AUTH_SIGNING_KEY", "AUTH_ISSUER",
	"AUTH_AUDIENCE", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT", "TRIAL_DAYS", "DEFAULT_DURATION_MINUTES",
	"EXPIRY_SWEEP_SCHEDULE", "METRICS_ENABLED",
}

func Load() (*Config, error) {
	// A missing .env is fine; real deployments use the process environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("AVAILABILITY_CACHE_TTL", "5m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("TRIAL_DAYS", 7)
	v.SetDefault("DEFAULT_DURATION_MINUTES", 60)
	v.SetDefault("EXPIRY_SWEEP_SCHEDULE", "@every 15m")
	v.SetDefault("METRICS_ENABLED", true)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// TrialPeriod is the length of a free trial.
func (c *Config) TrialPeriod() time.Duration {
	return time.Duration(c.TrialDays) * 24 * time.Hour
}

// Validate checks that the configuration is safe to run. Outside development
// a signing key is required so bearer tokens are actually verified.
func (c *Config) Validate() error {
	if !c.IsDev() && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes when ENV=%q", c.Env)
	}
	if c.TrialDays <= 0 {
		return fmt.Errorf("TRIAL_DAYS must be positive, got %d", c.TrialDays)
	}
	if c.DefaultDurationMinutes <= 0 || c.DefaultDurationMinutes > 24*60 {
		return fmt.Errorf("DEFAULT_DURATION_MINUTES must be between 1 and 1440, got %d", c.DefaultDurationMinutes)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
