package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/hannes/pii-sanitizer/pii"
	"github.com/hannes/pii-sanitizer/version"
)

// ServiceName is reported by the root endpoint
const ServiceName = "PII Sanitization Service"

// textRequest is the body of /sanitize and /analyze
type textRequest struct {
	Text     *string  `json:"text"`
	Language string   `json:"language"`
	Entities []string `json:"entities"`
}

type analyzeResponse struct {
	Text     string       `json:"text"`
	Entities []pii.Result `json:"entities"`
}

type reloadRequest struct {
	Directory string `json:"directory"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": ServiceName,
		"version": version.Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Version,
	})
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{
		"entities": s.maskingService.Analyzer().SupportedEntities(),
	})
}

func (s *Server) handleSanitize(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTextRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	result, err := s.maskingService.Sanitize(r.Context(), req)
	if err != nil {
		s.writeAnalysisError(w, r, "/sanitize", err)
		return
	}

	s.recordAnalysis(r, "sanitize", req, result.EntitiesFound, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTextRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	results, err := s.maskingService.Analyze(r.Context(), req)
	if err != nil {
		s.writeAnalysisError(w, r, "/analyze", err)
		return
	}

	s.recordAnalysis(r, "analyze", req, results, time.Since(start))
	writeJSON(w, http.StatusOK, analyzeResponse{
		Text:     req.Text,
		Entities: results,
	})
}

// decodeTextRequest reads and validates a /sanitize or /analyze body. It
// writes the error response itself and reports false on failure.
func (s *Server) decodeTextRequest(w http.ResponseWriter, r *http.Request) (pii.AnalyzeRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)

	var body textRequest
	if err := decodeJSONObject(r.Body, &body); err != nil {
		var (
			maxErr  *http.MaxBytesError
			typeErr *json.UnmarshalTypeError
		)
		switch {
		case errors.As(err, &maxErr):
			writeDetail(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit))
		case errors.Is(err, io.EOF):
			writeDetail(w, http.StatusBadRequest, "Request body is empty")
		case errors.As(err, &typeErr):
			writeDetail(w, http.StatusUnprocessableEntity,
				fmt.Sprintf("Invalid type for field %s: expected %s", typeErr.Field, typeErr.Type))
		default:
			writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		}
		return pii.AnalyzeRequest{}, false
	}

	if body.Text == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Field required: text")
		return pii.AnalyzeRequest{}, false
	}
	if *body.Text == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "text must not be empty")
		return pii.AnalyzeRequest{}, false
	}

	return pii.AnalyzeRequest{
		Text:     *body.Text,
		Language: body.Language,
		Entities: body.Entities,
	}, true
}

// decodeJSONObject decodes exactly one JSON value from r. Anything but
// whitespace after it is an error.
func decodeJSONObject(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	if err := dec.Decode(v); err != nil {
		return err
	}
	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil:
		return fmt.Errorf("unexpected data after JSON body: %w", err)
	default:
		return errors.New("unexpected data after JSON body")
	}
}

// writeAnalysisError maps analyzer errors to status codes. Server-side
// failures are reported to Sentry.
func (s *Server) writeAnalysisError(w http.ResponseWriter, r *http.Request, route string, err error) {
	switch {
	case errors.Is(err, pii.ErrEmptyText):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, pii.ErrUnsupportedLanguage), errors.Is(err, pii.ErrUnknownEntity):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		// client went away
		log.Printf("[Server] Request to %s cancelled", route)
	default:
		log.Printf("[Server] ❌ Error in %s: %v", route, err)
		captureError(r, err)
		writeDetail(w, http.StatusInternalServerError, err.Error())
	}
}

// recordAnalysis updates metrics and writes the audit entry
func (s *Server) recordAnalysis(r *http.Request, operation string, req pii.AnalyzeRequest, results []pii.Result, duration time.Duration) {
	types := make([]string, len(results))
	for i, res := range results {
		types[i] = res.Type
	}
	s.metrics.ObserveEntities(operation, types)

	if s.loggingDB == nil {
		return
	}

	language := s.maskingService.Analyzer().ResolveLanguage(req.Language)
	entry := pii.NewAuditEntry(RequestIDFromContext(r.Context()), operation, language,
		utf8.RuneCountInString(req.Text), results, duration)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
	defer cancel()
	if err := s.loggingDB.InsertLog(ctx, entry); err != nil {
		log.Printf("[AuditLog] ⚠️  Failed to insert audit entry: %v", err)
	}
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if s.loggingDB == nil {
		writeDetail(w, http.StatusServiceUnavailable, "Audit log not available")
		return
	}

	limit := 100
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsedOffset, err := strconv.Atoi(offsetStr); err == nil && parsedOffset >= 0 {
			offset = parsedOffset
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	logs, err := s.loggingDB.GetLogs(ctx, limit, offset)
	if err != nil {
		log.Printf("[Logs] ❌ Failed to retrieve logs: %v", err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve logs: %v", err))
		return
	}

	totalCount, err := s.loggingDB.GetLogsCount(ctx)
	if err != nil {
		log.Printf("[Logs] ⚠️  Failed to get logs count: %v", err)
		totalCount = -1
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   logs,
		"total":  totalCount,
		"limit":  limit,
		"offset": offset,
	})
}

func (s *Server) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	if s.loggingDB == nil {
		writeDetail(w, http.StatusServiceUnavailable, "Audit log not available")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := s.loggingDB.ClearLogs(ctx); err != nil {
		log.Printf("[Logs] ❌ Failed to clear logs: %v", err)
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to clear logs: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if s.modelManager == nil {
		writeDetail(w, http.StatusNotFound, "ONNX model detector is not enabled")
		return
	}
	writeJSON(w, http.StatusOK, s.modelManager.GetInfo())
}

func (s *Server) handleModelReload(w http.ResponseWriter, r *http.Request) {
	if s.modelManager == nil {
		writeDetail(w, http.StatusNotFound, "ONNX model detector is not enabled")
		return
	}

	var body reloadRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return
	}

	directory := body.Directory
	if directory == "" {
		if current, ok := s.modelManager.GetInfo()["directory"].(string); ok {
			directory = current
		}
	}

	err := s.modelManager.ReloadModel(directory)
	s.metrics.SetModelHealthy(s.modelManager.IsHealthy())
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to reload model: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, s.modelManager.GetInfo())
}

// captureError reports err to Sentry through the request hub when present
func captureError(r *http.Request, err error) {
	if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
