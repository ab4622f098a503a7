package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/hannes/pii-sanitizer/config"
)

const TRUE = "true"

// loadConfigFromEnv loads configuration from environment variables
func loadConfigFromEnv(cfg *config.Config) {
	loadDatabaseConfig(cfg)
	loadApplicationConfig(cfg)
	loadPIIDetectorConfig(cfg)
	loadLoggingConfig(cfg)
}

// loadDatabaseConfig loads audit log configuration from environment variables
func loadDatabaseConfig(cfg *config.Config) {
	if enabled := os.Getenv("AUDIT_ENABLED"); enabled != "" {
		cfg.Database.Enabled = enabled == TRUE
	}

	if driver := os.Getenv("AUDIT_DRIVER"); driver != "" {
		cfg.Database.Driver = strings.ToLower(driver)
	}

	if path := os.Getenv("AUDIT_PATH"); path != "" {
		cfg.Database.Path = path
	}

	if maxEntries := os.Getenv("AUDIT_MAX_ENTRIES"); maxEntries != "" {
		if n, err := strconv.Atoi(maxEntries); err == nil {
			cfg.Database.MaxEntries = n
		}
	}

	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}

	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Database.Port = p
		}
	}

	if dbName := os.Getenv("DB_NAME"); dbName != "" {
		cfg.Database.Database = dbName
	}

	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Database.Username = user
	}

	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}

	if sslMode := os.Getenv("DB_SSL_MODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}
}

// loadApplicationConfig loads server configuration from environment variables
func loadApplicationConfig(cfg *config.Config) {
	if port := os.Getenv("PORT"); port != "" {
		if !strings.Contains(port, ":") {
			port = ":" + port
		}
		cfg.ServerPort = port
	}

	if token := os.Getenv("API_TOKEN"); token != "" {
		cfg.APIToken = token
		log.Printf("Loaded API_TOKEN from environment (length: %d)", len(token))
	}

	if lang := os.Getenv("DEFAULT_LANGUAGE"); lang != "" {
		cfg.DefaultLanguage = lang
	}

	if langs := os.Getenv("SUPPORTED_LANGUAGES"); langs != "" {
		cfg.SupportedLanguages = splitList(langs)
	}

	if maxBody := os.Getenv("MAX_BODY_BYTES"); maxBody != "" {
		if n, err := strconv.ParseInt(maxBody, 10, 64); err == nil {
			cfg.MaxBodyBytes = n
		}
	}

	if rps := os.Getenv("RATE_LIMIT_RPS"); rps != "" {
		if f, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = f
		}
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if n, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = n
		}
	}

	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		cfg.Sentry.DSN = dsn
	}

	if env := os.Getenv("SENTRY_ENVIRONMENT"); env != "" {
		cfg.Sentry.Environment = env
	}
}

// loadPIIDetectorConfig loads PII detector configuration from environment variables
func loadPIIDetectorConfig(cfg *config.Config) {
	if names := os.Getenv("DETECTORS"); names != "" {
		cfg.Detectors = splitList(names)
	}

	if modelBaseURL := os.Getenv("MODEL_BASE_URL"); modelBaseURL != "" {
		cfg.ModelBaseURL = modelBaseURL
	}

	if modelDir := os.Getenv("MODEL_DIRECTORY"); modelDir != "" {
		cfg.ModelDirectory = modelDir
	}

	if threshold := os.Getenv("SCORE_THRESHOLD"); threshold != "" {
		if f, err := strconv.ParseFloat(threshold, 64); err == nil {
			cfg.ScoreThreshold = f
		}
	}

	if timeout := os.Getenv("DETECTION_TIMEOUT_MS"); timeout != "" {
		if n, err := strconv.Atoi(timeout); err == nil {
			cfg.DetectionTimeoutMS = n
		}
	}
}

// loadLoggingConfig loads logging configuration from environment variables
func loadLoggingConfig(cfg *config.Config) {
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	if logPIIChanges := os.Getenv("LOG_PII_CHANGES"); logPIIChanges != "" {
		cfg.Logging.LogPIIChanges = logPIIChanges == TRUE
	}

	if logVerbose := os.Getenv("LOG_VERBOSE"); logVerbose != "" {
		cfg.Logging.LogVerbose = logVerbose == TRUE
	}

	if logRequests := os.Getenv("LOG_REQUESTS"); logRequests != "" {
		cfg.Logging.LogRequests = logRequests == TRUE
	}

	if debug := os.Getenv("DB_DEBUG"); debug != "" {
		cfg.Logging.DebugMode = debug == TRUE
	}
}

// splitList parses a comma separated list, dropping empty items
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
