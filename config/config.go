// Package config has the configuration for the installer
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names accepted in ENV
const (
	EnvDevelopment = "dev"
	EnvStaging     = "staging"
	EnvProduction  = "prod"
	EnvTest        = "test"
)

// DefaultHarmonizomeBaseURL is the public Harmonizome host
const DefaultHarmonizomeBaseURL = "https://maayanlab.cloud/Harmonizome"

// Config holds all installer configuration
type Config struct {
	DataDir             string
	Env                 string
	LogLevel            string
	LogDir              string
	LogRetentionWeeks   int           // Number of weeks to keep log files
	MaxLogFileSize      int64         // Maximum log file size in bytes
	HTTPTimeout         time.Duration // 0 means no client timeout
	UserAgent           string
	HarmonizomeBaseURL  string
	APIRateLimit        float64 // Harmonizome requests per second, 0 disables throttling
	KeepPartialSynonyms bool
	FailOnError         bool
	MetricsFile         string // Prometheus textfile output, empty disables it
	Schedule            string // "06:00;18:00" style times, empty runs once
	Address             string
	Port                string
}

// LoadDotEnv reads .env files into the process environment.
// Variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DataDir:             getEnvWithDefault("DATA_DIR", "data"),
		Env:                 strings.ToLower(getEnvWithDefault("ENV", EnvDevelopment)),
		LogLevel:            strings.ToLower(os.Getenv("LOG_LEVEL")),
		LogDir:              getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks:   getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),
		MaxLogFileSize:      getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		HTTPTimeout:         getDurationEnvWithDefault("HTTP_TIMEOUT", 0),
		UserAgent:           getEnvWithDefault("USER_AGENT", "geometax-refdata/1.0"),
		HarmonizomeBaseURL:  strings.TrimRight(getEnvWithDefault("HARMONIZOME_BASE_URL", DefaultHarmonizomeBaseURL), "/"),
		APIRateLimit:        getFloatEnvWithDefault("API_RATE_LIMIT", 0),
		KeepPartialSynonyms: getBoolEnvWithDefault("KEEP_PARTIAL_SYNONYMS", false),
		FailOnError:         getBoolEnvWithDefault("FAIL_ON_ERROR", false),
		MetricsFile:         os.Getenv("METRICS_FILE"),
		Schedule:            strings.TrimSpace(os.Getenv("SCHEDULE")),
		Address:             getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Port:                getEnvWithDefault("PORT", "8030"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Scheduled reports whether the installer should keep running on SCHEDULE
func (c *Config) Scheduled() bool {
	return c.Schedule != ""
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("invalid DATA_DIR: DATA_DIR cannot be empty")
	}

	if err := validateEnv(cfg.Env); err != nil {
		return fmt.Errorf("invalid ENV: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if cfg.HTTPTimeout < 0 {
		return fmt.Errorf("invalid HTTP_TIMEOUT: must not be negative, got: %s", cfg.HTTPTimeout)
	}

	if err := validateBaseURL(cfg.HarmonizomeBaseURL); err != nil {
		return fmt.Errorf("invalid HARMONIZOME_BASE_URL: %w", err)
	}

	if cfg.APIRateLimit < 0 {
		return fmt.Errorf("invalid API_RATE_LIMIT: must not be negative, got: %g", cfg.APIRateLimit)
	}

	if cfg.Scheduled() {
		if err := validateSchedule(cfg.Schedule); err != nil {
			return fmt.Errorf("invalid SCHEDULE: %w", err)
		}
		if err := validatePort(cfg.Port); err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
	}

	return nil
}

// validateEnv validates the ENV environment variable
func validateEnv(env string) error {
	if env == "" {
		return fmt.Errorf("ENV cannot be empty")
	}

	validEnvs := []string{EnvDevelopment, EnvStaging, EnvProduction, EnvTest}
	for _, validEnv := range validEnvs {
		if env == validEnv {
			return nil
		}
	}

	return fmt.Errorf("ENV must be one of: %v, got: %s", validEnvs, env)
}

// validateLogLevel validates the LOG_LEVEL environment variable.
// Empty is allowed and means the default level for ENV.
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return nil
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 {
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize keeps the size between 1MB and 1GB
func validateMaxLogFileSize(size int64) error {
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got: %q", u.Scheme)
	}

	if u.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}

	return nil
}

// validateSchedule checks every ';' separated entry is a HH:MM time
func validateSchedule(schedule string) error {
	for _, part := range strings.Split(schedule, ";") {
		part = strings.TrimSpace(part)
		if _, err := time.Parse("15:04", part); err != nil {
			return fmt.Errorf("%q is not a HH:MM time", part)
		}
	}
	return nil
}

// validatePort validates the status server port
func validatePort(port string) error {
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1024 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1024 and 65535, got: %d", portNum)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnvWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnvWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go durations ("90s") or plain seconds ("90")
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"DATA_DIR",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"HTTP_TIMEOUT",
		"USER_AGENT",
		"HARMONIZOME_BASE_URL",
		"API_RATE_LIMIT",
		"KEEP_PARTIAL_SYNONYMS",
		"FAIL_ON_ERROR",
		"METRICS_FILE",
		"SCHEDULE",
		"ADDRESS",
		"PORT",
	}
}
