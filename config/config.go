package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adrg/xdg"
	"golang.org/x/text/language"
)

// AppName is used for XDG directories and config file names.
const AppName = "pii-sanitizer"

// Detector names accepted in Config.Detectors
const (
	DetectorRegex     = "regex_detector"
	DetectorGazetteer = "gazetteer_detector"
	DetectorModel     = "model_detector"
	DetectorONNX      = "onnx_model_detector"
)

// Audit log drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level         string `json:"level" yaml:"level"`                     // debug, info, warn, error
	Format        string `json:"format" yaml:"format"`                   // text or json
	LogRequests   bool   `json:"log_requests" yaml:"log_requests"`       // Log one line per request
	LogPIIChanges bool   `json:"log_pii_changes" yaml:"log_pii_changes"` // Log entity counts per call
	LogVerbose    bool   `json:"log_verbose" yaml:"log_verbose"`         // Log entity types and offsets
	DebugMode     bool   `json:"debug_mode" yaml:"debug_mode"`           // Enable debug logging for database operations
}

// DatabaseConfig holds audit log storage configuration
type DatabaseConfig struct {
	Enabled      bool   `json:"enabled" yaml:"enabled"`               // Whether to record audit entries
	Driver       string `json:"driver" yaml:"driver"`                 // sqlite, postgres or memory
	Path         string `json:"path" yaml:"path"`                     // SQLite database file
	Host         string `json:"host" yaml:"host"`                     // Database host
	Port         int    `json:"port" yaml:"port"`                     // Database port
	Database     string `json:"database" yaml:"database"`             // Database name
	Username     string `json:"username" yaml:"username"`             // Database username
	Password     string `json:"password" yaml:"password"`             // Database password
	SSLMode      string `json:"ssl_mode" yaml:"ssl_mode"`             // SSL mode (disable, require, etc.)
	MaxOpenConns int    `json:"max_open_conns" yaml:"max_open_conns"` // Maximum open connections
	MaxIdleConns int    `json:"max_idle_conns" yaml:"max_idle_conns"` // Maximum idle connections
	MaxLifetime  int    `json:"max_lifetime" yaml:"max_lifetime"`     // Connection max lifetime in seconds
	MaxEntries   int    `json:"max_entries" yaml:"max_entries"`       // Retention limit
}

// RateLimitConfig holds the per-client token bucket settings. A zero rate
// disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// SentryConfig holds error reporting settings
type SentryConfig struct {
	DSN         string `json:"dsn" yaml:"dsn"`
	Environment string `json:"environment" yaml:"environment"`
}

// Config holds all configuration for the PII sanitization service
type Config struct {
	ServerPort         string            `json:"server_port" yaml:"server_port"`
	APIToken           string            `json:"api_token" yaml:"api_token"`
	DefaultLanguage    string            `json:"default_language" yaml:"default_language"`
	SupportedLanguages []string          `json:"supported_languages" yaml:"supported_languages"`
	Detectors          []string          `json:"detectors" yaml:"detectors"`
	ModelBaseURL       string            `json:"model_base_url" yaml:"model_base_url"`
	ModelTimeoutMS     int               `json:"model_timeout_ms" yaml:"model_timeout_ms"`
	ModelDirectory     string            `json:"model_directory" yaml:"model_directory"`
	ScoreThreshold     float64           `json:"score_threshold" yaml:"score_threshold"`
	DetectionTimeoutMS int               `json:"detection_timeout_ms" yaml:"detection_timeout_ms"`
	MaxBodyBytes       int64             `json:"max_body_bytes" yaml:"max_body_bytes"`
	Placeholders       map[string]string `json:"placeholders" yaml:"placeholders"`
	RateLimit          RateLimitConfig   `json:"rate_limit" yaml:"rate_limit"`
	Database           DatabaseConfig    `json:"audit" yaml:"audit"`
	Sentry             SentryConfig      `json:"sentry" yaml:"sentry"`
	Logging            LoggingConfig     `json:"logging" yaml:"logging"`
}

// DataDir returns the XDG data directory for the service.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// ConfigDir returns the XDG config directory for the service.
func ConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ServerPort:         ":8000",
		DefaultLanguage:    "en",
		SupportedLanguages: []string{"en"},
		Detectors:          []string{DetectorRegex, DetectorGazetteer},
		ModelBaseURL:       "http://localhost:8001",
		ModelTimeoutMS:     5000,
		ModelDirectory:     "model/quantized",
		ScoreThreshold:     0.35,
		DetectionTimeoutMS: 10000,
		MaxBodyBytes:       1 << 20,
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             20,
		},
		Database: DatabaseConfig{
			Enabled:      true,
			Driver:       DriverSQLite,
			Path:         filepath.Join(DataDir(), "audit.db"),
			Host:         "localhost",
			Port:         5432,
			Database:     "pii_sanitizer",
			Username:     "postgres",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 25,
			MaxLifetime:  300,
			MaxEntries:   5000,
		},
		Sentry: SentryConfig{
			Environment: "production",
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "text",
			LogRequests:   true,
			LogPIIChanges: true,
			LogVerbose:    false,
		},
	}
}

// HasDetector reports whether the named detector is enabled
func (c *Config) HasDetector(name string) bool {
	for _, d := range c.Detectors {
		if d == name {
			return true
		}
	}
	return false
}

// ValidateConfig checks the whole configuration and reports every problem
// at once.
func (c *Config) ValidateConfig() error {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	add(validatePort(c.ServerPort, "ServerPort"))
	add(validateLanguage(c.DefaultLanguage, "DefaultLanguage"))
	if len(c.SupportedLanguages) == 0 {
		errs = append(errs, "SupportedLanguages: at least one language is required")
	}
	for i, l := range c.SupportedLanguages {
		add(validateLanguage(l, fmt.Sprintf("SupportedLanguages[%d]", i)))
	}
	if c.DefaultLanguage != "" && len(c.SupportedLanguages) > 0 && !containsFold(c.SupportedLanguages, c.DefaultLanguage) {
		errs = append(errs, fmt.Sprintf("DefaultLanguage: %s is not in SupportedLanguages", c.DefaultLanguage))
	}
	add(validateDetectors(c.Detectors, "Detectors"))
	if c.HasDetector(DetectorModel) {
		add(validateURL(c.ModelBaseURL, "ModelBaseURL"))
	}
	if c.HasDetector(DetectorONNX) && c.ModelDirectory == "" {
		errs = append(errs, "ModelDirectory: model directory cannot be empty when onnx_model_detector is enabled")
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		errs = append(errs, fmt.Sprintf("ScoreThreshold: must be between 0 and 1 (current value: %g)", c.ScoreThreshold))
	}
	add(validateNonNegative(c.DetectionTimeoutMS, "DetectionTimeoutMS"))
	add(validateNonNegative(c.ModelTimeoutMS, "ModelTimeoutMS"))
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Sprintf("MaxBodyBytes: must be positive (current value: %d)", c.MaxBodyBytes))
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Sprintf("RateLimit.RequestsPerSecond: must not be negative (current value: %g)", c.RateLimit.RequestsPerSecond))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Sprintf("RateLimit.Burst: must be at least 1 when rate limiting is enabled (current value: %d)", c.RateLimit.Burst))
	}
	if c.Database.Enabled {
		add(validateDriver(c.Database.Driver, "Database.Driver"))
	}
	add(validateNonNegative(c.Database.MaxEntries, "Database.MaxEntries"))
	add(validateLogLevel(c.Logging.Level, "Logging.Level"))
	if f := strings.ToLower(c.Logging.Format); f != "" && f != "text" && f != "json" {
		errs = append(errs, fmt.Sprintf("Logging.Format: must be 'text' or 'json' (current value: %s)", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// validatePort checks a listen address of the form ":PORT"
func validatePort(port, fieldName string) error {
	if port == "" {
		return fmt.Errorf("%s: port cannot be empty", fieldName)
	}
	if !strings.HasPrefix(port, ":") {
		return fmt.Errorf("%s: port must be in format ':PORT' where PORT is numeric (current value: %s)", fieldName, port)
	}
	n, err := strconv.Atoi(port[1:])
	if err != nil {
		return fmt.Errorf("%s: port must be in format ':PORT' where PORT is numeric (current value: %s)", fieldName, port)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("%s: port must be between 1 and 65535 (current value: %d)", fieldName, n)
	}
	return nil
}

// validateLanguage checks a BCP 47 language tag
func validateLanguage(tag, fieldName string) error {
	if tag == "" {
		return fmt.Errorf("%s: language cannot be empty", fieldName)
	}
	if _, err := language.Parse(tag); err != nil {
		return fmt.Errorf("%s: invalid language tag (current value: %s)", fieldName, tag)
	}
	return nil
}

func validateDetectors(names []string, fieldName string) error {
	if len(names) == 0 {
		return fmt.Errorf("%s: at least one detector is required", fieldName)
	}
	for _, n := range names {
		switch n {
		case DetectorRegex, DetectorGazetteer, DetectorModel, DetectorONNX:
		default:
			return fmt.Errorf("%s: unknown detector (current value: %s)", fieldName, n)
		}
	}
	return nil
}

// validateURL checks an absolute http(s) URL
func validateURL(raw, fieldName string) error {
	if raw == "" {
		return fmt.Errorf("%s: URL cannot be empty", fieldName)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s: URL must be an absolute http or https URL (current value: %s)", fieldName, raw)
	}
	return nil
}

func validateDriver(driver, fieldName string) error {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMemory:
		return nil
	}
	return fmt.Errorf("%s: must be one of sqlite, postgres, memory (current value: %s)", fieldName, driver)
}

func validateNonNegative(v int, fieldName string) error {
	if v < 0 {
		return fmt.Errorf("%s: must not be negative (current value: %d)", fieldName, v)
	}
	return nil
}

func validateLogLevel(level, fieldName string) error {
	switch strings.ToLower(level) {
	case "", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("%s: must be one of debug, info, warn, error (current value: %s)", fieldName, level)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
