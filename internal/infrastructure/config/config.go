// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml), with ${VAR} expansion
//  2. Environment variables (fallback)
//
// A .env file in the working directory is loaded into the environment
// first, when present.
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	tolerance := cfg.Reconciliation.ValueTolerance
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Storage        StorageConfig        `yaml:"storage"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int64    `yaml:"max_upload_mb"`
	UploadRPS      float64  `yaml:"upload_rps"` // imports per second per client
	UploadBurst    int      `yaml:"upload_burst"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ReconciliationConfig holds matching defaults applied to owners without
// saved rules
type ReconciliationConfig struct {
	ValueTolerance    decimal.Decimal `yaml:"value_tolerance"`
	DateToleranceDays int             `yaml:"date_tolerance_days"`
	RulesCacheTTL     time.Duration   `yaml:"rules_cache_ttl"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" (default) or "json"
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			MaxUploadMB:    20,
			UploadRPS:      1,
			UploadBurst:    5,
		},
		Storage: StorageConfig{
			DatabasePath: "reconcile.db",
		},
		Reconciliation: ReconciliationConfig{
			ValueTolerance:    decimal.RequireFromString("0.05"),
			DateToleranceDays: 1,
			RulesCacheTTL:     5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{Level: "info", Format: "text"},
		},
	}
}

// Load reads and parses the config file. Unset fields keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECON_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	d := Defaults()
	return &Config{
		Server: ServerConfig{
			Port:           getEnvInt("RECON_PORT", d.Server.Port),
			AllowedOrigins: getEnvList("RECON_ALLOWED_ORIGINS", d.Server.AllowedOrigins),
			MaxUploadMB:    int64(getEnvInt("RECON_MAX_UPLOAD_MB", int(d.Server.MaxUploadMB))),
			UploadRPS:      getEnvFloat("RECON_UPLOAD_RPS", d.Server.UploadRPS),
			UploadBurst:    d.Server.UploadBurst,
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("RECON_DB_PATH", d.Storage.DatabasePath),
		},
		Reconciliation: ReconciliationConfig{
			ValueTolerance:    getEnvDecimal("RECON_VALUE_TOLERANCE", d.Reconciliation.ValueTolerance),
			DateToleranceDays: getEnvInt("RECON_DATE_TOLERANCE_DAYS", d.Reconciliation.DateToleranceDays),
			RulesCacheTTL:     getEnvDuration("RECON_RULES_CACHE_TTL", d.Reconciliation.RulesCacheTTL),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", d.Observability.Logging.Level),
				Format: getEnv("LOG_FORMAT", d.Observability.Logging.Format),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	// Missing .env is normal outside development
	_ = godotenv.Load()

	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// Validate checks values that would make the server misbehave
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive")
	}
	if c.Reconciliation.ValueTolerance.IsNegative() {
		return fmt.Errorf("value_tolerance must not be negative")
	}
	if c.Reconciliation.DateToleranceDays < 0 {
		return fmt.Errorf("date_tolerance_days must not be negative")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	return nil
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// MaxUploadBytes returns the upload limit in bytes
func (s ServerConfig) MaxUploadBytes() int64 {
	return s.MaxUploadMB << 20
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if val := os.Getenv(key); val != "" {
		if result, err := decimal.NewFromString(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if result, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping empty items
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
