package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"PORT", "DB_PATH", "LOG_LEVEL", "LOG_FORMAT", "CORS_ORIGINS",
	"RATE_LIMIT", "AUDIT_INTERVAL", "DEFAULT_CURRENCY", "MAX_RETRIES",
}

// clearEnv blanks every key; viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func validConfig() *Config {
	return &Config{
		Port:            "8080",
		DBPath:          "budgets.db",
		LogLevel:        "info",
		LogFormat:       "text",
		RateLimit:       "100-M",
		AuditInterval:   time.Minute,
		DefaultCurrency: "USD",
		MaxRetries:      3,
	}
}

// =============================================================================
// LOAD
// =============================================================================

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, DefaultRateLimit, cfg.RateLimit)
	assert.Equal(t, DefaultAuditInterval, cfg.AuditInterval)
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test ,")
	t.Setenv("AUDIT_INTERVAL", "30s")
	t.Setenv("DEFAULT_CURRENCY", " eur ")
	t.Setenv("MAX_RETRIES", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, ":9000", cfg.Addr())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.AuditInterval)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "budget.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"7070\"\nlog_format: json\n"), 0o600))

	// GIVEN: env beats the file
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadValuesReportedTogether(t *testing.T) {
	clearEnv(t)
	t.Setenv("AUDIT_INTERVAL", "soon")
	t.Setenv("MAX_RETRIES", "many")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUDIT_INTERVAL")
	assert.Contains(t, err.Error(), "MAX_RETRIES")
}

// =============================================================================
// VALIDATE
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"port not a number", func(c *Config) { c.Port = "http" }, "invalid port"},
		{"port out of range", func(c *Config) { c.Port = "70000" }, "between 1 and 65535"},
		{"empty db path", func(c *Config) { c.DBPath = " " }, "DB_PATH"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
		{"bad rate limit", func(c *Config) { c.RateLimit = "lots" }, "RATE_LIMIT"},
		{"empty rate limit disables", func(c *Config) { c.RateLimit = "" }, ""},
		{"negative interval", func(c *Config) { c.AuditInterval = -time.Second }, "AUDIT_INTERVAL"},
		{"zero interval disables", func(c *Config) { c.AuditInterval = 0 }, ""},
		{"bad currency", func(c *Config) { c.DefaultCurrency = "EURO" }, "DEFAULT_CURRENCY"},
		{"unknown currency code", func(c *Config) { c.DefaultCurrency = "XYZ" }, "DEFAULT_CURRENCY"},
		{"lower-case currency", func(c *Config) { c.DefaultCurrency = "usd" }, "DEFAULT_CURRENCY"},
		{"empty currency", func(c *Config) { c.DefaultCurrency = "" }, "DEFAULT_CURRENCY"},
		{"other valid currency", func(c *Config) { c.DefaultCurrency = "JPY" }, ""},
		{"too many retries", func(c *Config) { c.MaxRetries = 50 }, "MAX_RETRIES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "abc"
	cfg.LogFormat = "xml"
	cfg.MaxRetries = -1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
	assert.Contains(t, err.Error(), "LOG_FORMAT")
	assert.Contains(t, err.Error(), "MAX_RETRIES")
}
