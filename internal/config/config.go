// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir                 string // Base directory for catalog.db and client_data.db (always absolute)
	Port                    int
	LogLevel                string
	DevMode                 bool
	AlphaVantageAPIKey      string        // Empty disables the ETF profile source
	ResolveTimeout          time.Duration // Per-fund holdings resolution timeout
	MatchMode               string        // "name" or "ticker"
	HoldingsRefreshSchedule string        // cron expression with seconds
	CacheCleanupSchedule    string        // cron expression with seconds
	MaintenanceSchedule     string        // cron expression with seconds
	MinFreeDiskMB           int           // maintenance fails below this
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("FUNDOVERLAP_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                 dataDir,
		Port:                    getEnvAsInt("GO_PORT", 8080),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		DevMode:                 getEnvAsBool("DEV_MODE", false),
		AlphaVantageAPIKey:      getEnv("ALPHAVANTAGE_API_KEY", ""),
		ResolveTimeout:          getEnvAsDuration("RESOLVE_TIMEOUT", 5*time.Second),
		MatchMode:               strings.ToLower(getEnv("MATCH_MODE", "name")),
		HoldingsRefreshSchedule: getEnv("HOLDINGS_REFRESH_SCHEDULE", "0 0 6 * * *"),
		CacheCleanupSchedule:    getEnv("CACHE_CLEANUP_SCHEDULE", "0 30 3 * * *"),
		MaintenanceSchedule:     getEnv("MAINTENANCE_SCHEDULE", "0 0 2 * * *"),
		MinFreeDiskMB:           getEnvAsInt("MIN_FREE_DISK_MB", 500),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the loaded values
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.ResolveTimeout <= 0 {
		return fmt.Errorf("resolve timeout must be positive, got %s", c.ResolveTimeout)
	}
	if c.MatchMode != "name" && c.MatchMode != "ticker" {
		return fmt.Errorf("invalid match mode %q (expected name or ticker)", c.MatchMode)
	}
	return nil
}

// CatalogDBPath returns the path of the fund catalog database
func (c *Config) CatalogDBPath() string {
	return filepath.Join(c.DataDir, "catalog.db")
}

// ClientDataDBPath returns the path of the external API cache database
func (c *Config) ClientDataDBPath() string {
	return filepath.Join(c.DataDir, "client_data.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
