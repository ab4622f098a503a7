package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/hannes/pii-sanitizer/config"
	"github.com/hannes/pii-sanitizer/metrics"
	"github.com/hannes/pii-sanitizer/pii"
	detectors "github.com/hannes/pii-sanitizer/pii/detectors"
)

// ShutdownTimeout bounds the graceful drain on shutdown
const ShutdownTimeout = 10 * time.Second

// Server represents the HTTP server
type Server struct {
	config         *config.Config
	detector       detectors.Detector
	maskingService *pii.MaskingService
	modelManager   *pii.ModelManager // nil unless the ONNX detector is enabled
	loggingDB      pii.LoggingDB     // nil when auditing is disabled
	metrics        *metrics.Collector
	limiter        *clientLimiter
}

// NewServer creates a new server instance with the detectors and audit log
// named in the configuration
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	members, modelManager, err := BuildDetectors(cfg)
	if err != nil {
		return nil, err
	}

	ensemble := detectors.NewEnsembleDetector(
		time.Duration(cfg.DetectionTimeoutMS)*time.Millisecond, members...)

	var loggingDB pii.LoggingDB
	if cfg.Database.Enabled {
		// a failed open falls back to memory, so the error is only reported
		loggingDB, _ = pii.OpenLoggingDB(ctx, cfg.Database.Driver, DatabaseConfig(cfg))
		loggingDB.SetDebugMode(cfg.Logging.DebugMode)
	} else {
		log.Println("[AuditLog] Audit log disabled")
	}

	s := NewServerWithDetector(cfg, ensemble, loggingDB)
	s.modelManager = modelManager
	ensemble.SetObserver(s.metrics)
	if modelManager != nil {
		s.metrics.SetModelHealthy(modelManager.IsHealthy())
	}
	return s, nil
}

// NewServerWithDetector creates a server around an existing detector and
// audit log. loggingDB may be nil.
func NewServerWithDetector(cfg *config.Config, detector detectors.Detector, loggingDB pii.LoggingDB) *Server {
	analyzer := pii.NewAnalyzer(detector, pii.AnalyzerConfig{
		DefaultLanguage:    cfg.DefaultLanguage,
		SupportedLanguages: cfg.SupportedLanguages,
		ScoreThreshold:     cfg.ScoreThreshold,
		LogPIIChanges:      cfg.Logging.LogPIIChanges,
		LogVerbose:         cfg.Logging.LogVerbose,
	})
	anonymizer := pii.NewAnonymizer(cfg.Placeholders)

	var limiter *clientLimiter
	if cfg.RateLimit.RequestsPerSecond > 0 {
		limiter = newClientLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	return &Server{
		config:         cfg,
		detector:       detector,
		maskingService: pii.NewMaskingService(analyzer, anonymizer),
		loggingDB:      loggingDB,
		metrics:        metrics.NewCollector(),
		limiter:        limiter,
	}
}

// DatabaseConfig converts the audit settings into the storage configuration
func DatabaseConfig(cfg *config.Config) pii.DatabaseConfig {
	return pii.DatabaseConfig{
		Path:         cfg.Database.Path,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		Database:     cfg.Database.Database,
		Username:     cfg.Database.Username,
		Password:     cfg.Database.Password,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxLifetime:  time.Duration(cfg.Database.MaxLifetime) * time.Second,
		MaxEntries:   cfg.Database.MaxEntries,
	}
}

// MaskingService returns the service used by the handlers
func (s *Server) MaskingService() *pii.MaskingService {
	return s.maskingService
}

// Handler builds the routed handler wrapped in middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /sanitize", s.handleSanitize)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("GET /entities", s.handleEntities)
	mux.HandleFunc("GET /logs", s.handleLogs)
	mux.HandleFunc("DELETE /logs", s.handleClearLogs)
	mux.HandleFunc("GET /model", s.handleModelInfo)
	mux.HandleFunc("POST /model/reload", s.handleModelReload)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// outermost first: recover, request ID, logging, CORS, rate limit, auth
	var h http.Handler = mux
	h = s.authMiddleware(h)
	h = s.rateLimitMiddleware(h)
	h = corsMiddleware(h)
	h = s.loggingMiddleware(h)
	h = requestIDMiddleware(h)
	h = recoverMiddleware(h)
	return h
}

// Start serves HTTP until ctx is cancelled, then drains in-flight requests
func (s *Server) Start(ctx context.Context) error {
	names := make([]string, 0)
	if ensemble, ok := s.detector.(*detectors.EnsembleDetector); ok {
		for _, d := range ensemble.Detectors() {
			names = append(names, d.GetName())
		}
	} else {
		names = append(names, s.detector.GetName())
	}

	log.Printf("Starting PII sanitization service on port %s", s.config.ServerPort)
	log.Printf("PII detection enabled with detectors: %s", strings.Join(names, ", "))
	if s.config.APIToken == "" {
		log.Println("⚠️  API_TOKEN is not set; all requests are allowed")
	}

	server := &http.Server{
		Addr:         s.config.ServerPort,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Close closes the detectors and the audit log
func (s *Server) Close() error {
	var errs []error
	if s.detector != nil {
		if err := s.detector.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close detector: %w", err))
		}
	}
	if s.loggingDB != nil {
		if err := s.loggingDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close audit log: %w", err))
		}
	}
	return errors.Join(errs...)
}
