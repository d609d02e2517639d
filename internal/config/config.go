package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Upstream modes.
const (
	UpstreamHTTP     = "http"
	UpstreamPostgres = "postgres"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	FHIRBaseURL    string   `mapstructure:"FHIR_BASE_URL"`
	FHIRAPITimeout string   `mapstructure:"FHIR_API_TIMEOUT"`
	UpstreamMode   string   `mapstructure:"UPSTREAM_MODE"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	MockCRUD       bool     `mapstructure:"MOCK_CRUD"`
	SearchPageSize int      `mapstructure:"SEARCH_PAGE_SIZE"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("FHIR_BASE_URL", "https://hapi.fhir.org/baseR4")
	v.SetDefault("FHIR_API_TIMEOUT", "30000")
	v.SetDefault("UPSTREAM_MODE", UpstreamHTTP)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("MOCK_CRUD", true)
	v.SetDefault("SEARCH_PAGE_SIZE", 20)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("FHIR_BASE_URL")
	v.BindEnv("FHIR_API_TIMEOUT")
	v.BindEnv("UPSTREAM_MODE")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MOCK_CRUD")
	v.BindEnv("SEARCH_PAGE_SIZE")
	v.BindEnv("CORS_ORIGINS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.UpstreamMode = strings.ToLower(strings.TrimSpace(cfg.UpstreamMode))

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// FHIRTimeout parses FHIR_API_TIMEOUT. A bare number is milliseconds;
// anything else must be a Go duration such as "30s".
func (c *Config) FHIRTimeout() (time.Duration, error) {
	raw := strings.TrimSpace(c.FHIRAPITimeout)
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("FHIR_API_TIMEOUT %q is neither milliseconds nor a duration", c.FHIRAPITimeout)
	}
	return d, nil
}

// Validate checks that the configuration is usable before anything is wired.
func (c *Config) Validate() error {
	switch c.UpstreamMode {
	case UpstreamHTTP:
		if c.FHIRBaseURL == "" {
			return fmt.Errorf("FHIR_BASE_URL is required when UPSTREAM_MODE is %q", UpstreamHTTP)
		}
	case UpstreamPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when UPSTREAM_MODE is %q", UpstreamPostgres)
		}
	default:
		return fmt.Errorf("UPSTREAM_MODE must be %q or %q, got %q", UpstreamHTTP, UpstreamPostgres, c.UpstreamMode)
	}

	timeout, err := c.FHIRTimeout()
	if err != nil {
		return err
	}
	if timeout <= 0 {
		return fmt.Errorf("FHIR_API_TIMEOUT must be positive, got %s", timeout)
	}

	if c.SearchPageSize <= 0 {
		return fmt.Errorf("SEARCH_PAGE_SIZE must be positive, got %d", c.SearchPageSize)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
