package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/URMC/urHL7/internal/platform/hl7v2"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSigningKey     string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer         string        `mapstructure:"JWT_ISSUER"`
	JWTAudience       string        `mapstructure:"JWT_AUDIENCE"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	SpoolDir          string        `mapstructure:"SPOOL_DIR"`
	SpoolOutDir       string        `mapstructure:"SPOOL_OUT_DIR"`
	MessageTerminator string        `mapstructure:"MESSAGE_TERMINATOR"`
	RulesFile         string        `mapstructure:"RULES_FILE"`
	DefaultDelimiters string        `mapstructure:"DEFAULT_DELIMITERS"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SIGNING_KEY", "JWT_ISSUER", "JWT_AUDIENCE", "BODY_LIMIT",
	"REQUEST_TIMEOUT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"SPOOL_DIR", "SPOOL_OUT_DIR", "MESSAGE_TERMINATOR", "RULES_FILE",
	"DEFAULT_DELIMITERS",
}

// Load reads configuration from the environment and an optional .env file.
// Environment variables win over the file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("MESSAGE_TERMINATOR", `\r\n`)
	v.SetDefault("DEFAULT_DELIMITERS", hl7v2.DefaultDelimiters.String())

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
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

// ArchiveEnabled reports whether a database is configured.
func (c *Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

// Terminator returns MESSAGE_TERMINATOR with escapes interpreted.
func (c *Config) Terminator() string {
	return UnescapeTerminator(c.MessageTerminator)
}

// UnescapeTerminator turns the literal sequences \r, \n and \t into the
// control characters they name.
func UnescapeTerminator(s string) string {
	return strings.NewReplacer(`\r`, "\r", `\n`, "\n", `\t`, "\t").Replace(s)
}

// Delimiters parses DEFAULT_DELIMITERS.
func (c *Config) Delimiters() (hl7v2.Delimiters, error) {
	return hl7v2.ParseDelimiters(c.DefaultDelimiters)
}

// Validate checks that the configuration is safe to run. Outside
// development a JWT signing key of at least 32 bytes is required so the
// API is never served unauthenticated.
func (c *Config) Validate() error {
	if c.Env != "development" && c.Env != "test" && c.Env != "production" {
		return fmt.Errorf("ENV must be \"development\", \"test\", or \"production\", got %q", c.Env)
	}
	if !c.IsDev() {
		if c.JWTSigningKey == "" {
			return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
		}
		if len(c.JWTSigningKey) < 32 {
			return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes, got %d", len(c.JWTSigningKey))
		}
	}
	if _, err := c.Delimiters(); err != nil {
		return fmt.Errorf("DEFAULT_DELIMITERS: %w", err)
	}
	if c.Terminator() == "" {
		return fmt.Errorf("MESSAGE_TERMINATOR must not be empty")
	}
	if c.DBMinConns < 0 || c.DBMaxConns < 1 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) and DB_MAX_CONNS (%d) must satisfy 0 <= min <= max, max >= 1", c.DBMinConns, c.DBMaxConns)
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must not be negative")
	}
	return nil
}
