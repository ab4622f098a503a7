package pii

import (
	"context"
	"log"
)

// SanitizeResult represents the result of sanitizing PII in text
type SanitizeResult struct {
	OriginalText  string   `json:"original_text"`
	SanitizedText string   `json:"sanitized_text"`
	EntitiesFound []Result `json:"entities_found"`
}

// MaskingService handles PII analysis and placeholder masking
type MaskingService struct {
	analyzer   *Analyzer
	anonymizer *Anonymizer
}

// NewMaskingService creates a new masking service
func NewMaskingService(analyzer *Analyzer, anonymizer *Anonymizer) *MaskingService {
	return &MaskingService{
		analyzer:   analyzer,
		anonymizer: anonymizer,
	}
}

// Analyzer returns the underlying analyzer
func (s *MaskingService) Analyzer() *Analyzer {
	return s.analyzer
}

// Analyze detects PII without modifying the text
func (s *MaskingService) Analyze(ctx context.Context, req AnalyzeRequest) ([]Result, error) {
	return s.analyzer.Analyze(ctx, req)
}

// Sanitize detects PII and replaces each entity with its placeholder
func (s *MaskingService) Sanitize(ctx context.Context, req AnalyzeRequest) (SanitizeResult, error) {
	results, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		return SanitizeResult{}, err
	}

	if len(results) == 0 {
		if s.analyzer.config.LogPIIChanges {
			log.Printf("[Masking] No PII detected")
		}
		return SanitizeResult{
			OriginalText:  req.Text,
			SanitizedText: req.Text,
			EntitiesFound: []Result{},
		}, nil
	}

	if s.analyzer.config.LogPIIChanges {
		log.Printf("[Masking] ⚠️  PII detected: %d entities replaced", len(results))
	}
	return SanitizeResult{
		OriginalText:  req.Text,
		SanitizedText: s.anonymizer.Anonymize(req.Text, results),
		EntitiesFound: results,
	}, nil
}
