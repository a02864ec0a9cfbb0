// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Sheet     SheetConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           string        // Server port (default: 8080)
	ReadTimeout    time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout   time.Duration // HTTP write timeout (default: 30s)
	IdleTimeout    time.Duration // HTTP idle timeout (default: 60s)
	AllowedOrigins []string      // CORS origins (default: *)
}

// SheetConfig holds limits for sheet sessions.
type SheetConfig struct {
	PageSize       int    // Rows per page (default: 50)
	SampleCount    int    // Records generated for a new sheet (default: 10000)
	MaxSessions    int    // Concurrent sheets kept in memory (default: 64)
	MaxUploadSize  int64  // Import body limit in bytes (default: 10MB)
	ExportFilename string // Download name when none is given (default: books_edited.csv)

	// IdleTTL drops sheets untouched for this long; 0 keeps them until deleted (default: 2h).
	IdleTTL time.Duration
}

// RateLimitConfig bounds how often one client may import or generate.
type RateLimitConfig struct {
	LoadsPerMinute int // default: 30
	Burst          int // default: 10
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	allowedOrigins := flag.String("allowed-origins", "", "Comma separated CORS origins (default: *)")

	// Sheet flags
	pageSize := flag.String("page-size", "", "Rows per page (default: 50)")
	sampleCount := flag.String("sample-count", "", "Records generated for new sheets (default: 10000)")
	maxSessions := flag.String("max-sessions", "", "Maximum open sheets (default: 64)")
	maxUpload := flag.String("max-upload-size", "", "Maximum CSV upload in bytes (default: 10485760)")
	exportFilename := flag.String("export-filename", "", "Default export file name (default: books_edited.csv)")
	idleTTL := flag.String("sheet-idle-ttl", "", "Drop sheets idle this long, 0 to disable (default: 2h)")

	// Rate limit flags
	loadsPerMinute := flag.String("loads-per-minute", "", "Imports and generations per client per minute (default: 30)")
	loadBurst := flag.String("load-burst", "", "Burst allowance for loads (default: 10)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:           getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			AllowedOrigins: splitList(getConfigValue(*allowedOrigins, "ALLOWED_ORIGINS", "*")),
		},
		Sheet: SheetConfig{
			PageSize:       getIntConfigValue(*pageSize, "SHEET_PAGE_SIZE", 50),
			SampleCount:    getIntConfigValue(*sampleCount, "SHEET_SAMPLE_COUNT", 10000),
			MaxSessions:    getIntConfigValue(*maxSessions, "SHEET_MAX_SESSIONS", 64),
			MaxUploadSize:  int64(getIntConfigValue(*maxUpload, "SHEET_MAX_UPLOAD_SIZE", 10<<20)),
			ExportFilename: getConfigValue(*exportFilename, "SHEET_EXPORT_FILENAME", "books_edited.csv"),
		},
		RateLimit: RateLimitConfig{
			LoadsPerMinute: getIntConfigValue(*loadsPerMinute, "RATE_LIMIT_LOADS_PER_MINUTE", 30),
			Burst:          getIntConfigValue(*loadBurst, "RATE_LIMIT_BURST", 10),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, fmt.Errorf("invalid read timeout: %w", err)
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "30s"); err != nil {
		return nil, fmt.Errorf("invalid write timeout: %w", err)
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, fmt.Errorf("invalid idle timeout: %w", err)
	}
	if cfg.Sheet.IdleTTL, err = getDurationConfigValue(*idleTTL, "SHEET_IDLE_TTL", "2h"); err != nil {
		return nil, fmt.Errorf("invalid sheet idle ttl: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Sheet.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.Sheet.PageSize)
	}
	if c.Sheet.SampleCount < 0 {
		return fmt.Errorf("sample count cannot be negative, got %d", c.Sheet.SampleCount)
	}
	if c.Sheet.MaxSessions <= 0 {
		return fmt.Errorf("max sessions must be positive, got %d", c.Sheet.MaxSessions)
	}
	if c.Sheet.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.Sheet.MaxUploadSize)
	}
	if c.Sheet.ExportFilename == "" {
		return errors.New("export filename cannot be empty")
	}
	if c.Sheet.IdleTTL < 0 {
		return fmt.Errorf("sheet idle ttl cannot be negative, got %s", c.Sheet.IdleTTL)
	}

	if c.RateLimit.LoadsPerMinute <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit values must be positive")
	}

	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("%s=%q: %w", envKey, strValue, err)
	}
	return d, nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
