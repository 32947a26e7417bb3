package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pnlmonitor/internal/adapters/logger"
	"pnlmonitor/internal/pricing"
)

// Config holds all application configuration.
type Config struct {
	// Log tailing
	LogFolder    string
	ScanInterval time.Duration

	// Pricing normalization
	UseAveragePricing bool
	MinuteBasedAvg    bool
	TimeframeMinutes  int
	PricingStrategy   string // Explicit override; empty means derive from the flags

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel

	// Behavior
	AutoStart bool
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string

	cfg.LogFolder = getEnv("LOG_FOLDER", "")
	if cfg.LogFolder == "" {
		errs = append(errs, "LOG_FOLDER must be set")
	}

	scanSeconds, err := getEnvAsIntRequired("SCAN_INTERVAL_SECONDS", 10)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SCAN_INTERVAL_SECONDS: %v", err))
	} else if scanSeconds < 1 {
		errs = append(errs, "SCAN_INTERVAL_SECONDS must be at least 1")
	}
	cfg.ScanInterval = time.Duration(scanSeconds) * time.Second

	cfg.UseAveragePricing = getEnvAsBool("USE_AVERAGE_PRICING", true)
	cfg.MinuteBasedAvg = getEnvAsBool("MINUTE_BASED_AVG", true)

	cfg.TimeframeMinutes, err = getEnvAsIntRequired("TIMEFRAME_MINUTES", 5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TIMEFRAME_MINUTES: %v", err))
	} else if cfg.TimeframeMinutes < 1 || cfg.TimeframeMinutes > 60 {
		errs = append(errs, "TIMEFRAME_MINUTES must be between 1 and 60")
	}

	cfg.PricingStrategy = getEnv("PRICING_STRATEGY", "")
	if cfg.PricingStrategy != "" {
		if _, serr := pricing.ForMode(cfg.PricingStrategy, cfg.TimeframeMinutes); serr != nil {
			errs = append(errs, fmt.Sprintf("invalid PRICING_STRATEGY: %v", serr))
		}
	}

	cfg.DBPath = getEnv("DB_PATH", "./data/pnl_monitor.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr)

	cfg.AutoStart = getEnvAsBool("AUTO_START", true)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// PricingMode resolves the effective pricing strategy. An explicit
// PRICING_STRATEGY wins; otherwise the legacy boolean flags decide between
// off, minute and timeframe averaging.
func (c *Config) PricingMode() string {
	if c.PricingStrategy != "" {
		return c.PricingStrategy
	}
	if !c.UseAveragePricing {
		return pricing.ModeOff
	}
	if c.MinuteBasedAvg {
		return pricing.ModeMinute
	}
	return pricing.ModeTimeframe
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}
