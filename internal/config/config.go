package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Policy   PolicyConfig
	Limit    RateLimitConfig
	OTEL     OTELConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type DatabaseConfig struct {
	URL            string
	MigrationsPath string
}

// RedisConfig is optional; an empty URL keeps sessions in postgres.
type RedisConfig struct {
	URL string
}

type SessionConfig struct {
	TTL time.Duration
}

type PolicyConfig struct {
	LockSetup       bool
	RejectPastStart bool
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type OTELConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Load reads the environment. Call godotenv.Load first to pick up .env.
func Load() (*Config, error) {
	var errs []error

	c := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:            os.Getenv("DATABASE_URL"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations/001_init.sql"),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Session: SessionConfig{
			TTL: getEnvAsDuration("SESSION_TTL", 24*time.Hour, &errs),
		},
		Policy: PolicyConfig{
			LockSetup:       getEnvAsBool("LOCK_SETUP", false, &errs),
			RejectPastStart: getEnvAsBool("REJECT_PAST_START", true, &errs),
		},
		Limit: RateLimitConfig{
			RPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5, &errs),
			Burst: getEnvAsInt("RATE_LIMIT_BURST", 10, &errs),
		},
		OTEL: OTELConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false, &errs),
			Endpoint:    getEnv("OTEL_ENDPOINT", "localhost:4317"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "telehealth-scheduler"),
		},
	}

	if c.Database.URL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, fmt.Errorf("SESSION_TTL must be positive, got %s", c.Session.TTL))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Development() bool { return c.Env == "development" }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsInt(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvAsFloat(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func getEnvAsBool(key string, fallback bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func getEnvAsDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
