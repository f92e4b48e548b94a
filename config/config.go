// Package config loads runtime settings from the environment, an optional
// .env file and an optional config file.
//
// Precedence, highest first: process environment, .env, config file,
// defaults.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/ulule/limiter/v3"
)

// Config holds application configuration.
type Config struct {
	Port            string
	DBPath          string
	LogLevel        string
	LogFormat       string
	CORSOrigins     []string
	RateLimit       string // limiter format, e.g. "100-M"
	AuditInterval   time.Duration
	DefaultCurrency string
	MaxRetries      int
}

// Defaults.
const (
	DefaultPort          = "8080"
	DefaultDBPath        = "./data/budgets.db"
	DefaultRateLimit     = "300-M"
	DefaultAuditInterval = 5 * time.Minute
	DefaultMaxRetries    = 3
)

// Load reads configuration. configFile may be empty. A missing .env file is
// not an error; a missing configFile that was asked for is.
func Load(configFile string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", DefaultPort)
	v.SetDefault("DB_PATH", DefaultDBPath)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT", DefaultRateLimit)
	v.SetDefault("AUDIT_INTERVAL", DefaultAuditInterval.String())
	v.SetDefault("DEFAULT_CURRENCY", "USD")
	v.SetDefault("MAX_RETRIES", DefaultMaxRetries)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:            v.GetString("PORT"),
		DBPath:          v.GetString("DB_PATH"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		RateLimit:       v.GetString("RATE_LIMIT"),
		DefaultCurrency: strings.ToUpper(strings.TrimSpace(v.GetString("DEFAULT_CURRENCY"))),
	}

	var errs []error
	interval, err := time.ParseDuration(v.GetString("AUDIT_INTERVAL"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid AUDIT_INTERVAL %q: %w", v.GetString("AUDIT_INTERVAL"), err))
	}
	cfg.AuditInterval = interval

	retries, err := strconv.Atoi(v.GetString("MAX_RETRIES"))
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid MAX_RETRIES %q: must be a number", v.GetString("MAX_RETRIES")))
	}
	cfg.MaxRetries = retries

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate reports every problem with c at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DBPath) == "" {
		problems = append(problems, "DB_PATH is required")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid LOG_LEVEL '%s': must be debug, info, warn or error", c.LogLevel))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid LOG_FORMAT '%s': must be text or json", c.LogFormat))
	}

	if c.RateLimit != "" {
		if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
			problems = append(problems, fmt.Sprintf("invalid RATE_LIMIT '%s': %v", c.RateLimit, err))
		}
	}

	if c.AuditInterval < 0 {
		problems = append(problems, "AUDIT_INTERVAL must not be negative")
	}

	if err := validator.New().Var(c.DefaultCurrency, "required,iso4217"); err != nil {
		problems = append(problems, fmt.Sprintf("invalid DEFAULT_CURRENCY '%s': must be an ISO 4217 code", c.DefaultCurrency))
	}

	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		problems = append(problems, fmt.Sprintf("invalid MAX_RETRIES %d: must be between 0 and 10", c.MaxRetries))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// Addr returns the listen address for Port.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
