package pii

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	detectors "github.com/hannes/pii-sanitizer/pii/detectors"
)

// AnalyzerConfig holds the analysis settings
type AnalyzerConfig struct {
	DefaultLanguage    string
	SupportedLanguages []string
	ScoreThreshold     float64
	DefaultEntities    []string // used when a request names no entities
	LogPIIChanges      bool
	LogVerbose         bool
}

// AnalyzeRequest is one text to analyze.
type AnalyzeRequest struct {
	Text     string
	Language string
	Entities []string
}

// Result is one detected entity. Start and End are code point offsets into
// the analyzed text so that clients in any language can slice it.
type Result struct {
	Type  string  `json:"type"`
	Text  string  `json:"text"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`

	byteStart int
	byteEnd   int
}

// Analyzer detects PII through a Detector and turns the raw entities into
// clean, non-overlapping results.
type Analyzer struct {
	detector  detectors.Detector
	config    AnalyzerConfig
	languages map[string]bool
	supported map[string]bool
}

// NewAnalyzer creates an analyzer on top of the given detector
func NewAnalyzer(detector detectors.Detector, cfg AnalyzerConfig) *Analyzer {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	if len(cfg.SupportedLanguages) == 0 {
		cfg.SupportedLanguages = []string{cfg.DefaultLanguage}
	}
	if len(cfg.DefaultEntities) == 0 {
		cfg.DefaultEntities = detectors.HealthcareEntities
	}

	languages := make(map[string]bool, len(cfg.SupportedLanguages))
	for _, l := range cfg.SupportedLanguages {
		languages[strings.ToLower(l)] = true
	}

	a := &Analyzer{
		detector:  detector,
		config:    cfg,
		languages: languages,
	}
	a.supported = make(map[string]bool)
	for _, e := range a.SupportedEntities() {
		a.supported[e] = true
	}
	return a
}

// SupportedEntities returns the sorted entity types the analyzer can report
func (a *Analyzer) SupportedEntities() []string {
	if lister, ok := a.detector.(detectors.EntityLister); ok {
		return lister.SupportedEntities()
	}
	entities := append([]string(nil), detectors.HealthcareEntities...)
	sort.Strings(entities)
	return entities
}

// SupportedLanguages returns the configured language codes
func (a *Analyzer) SupportedLanguages() []string {
	return a.config.SupportedLanguages
}

// ResolveLanguage normalizes a requested language code, falling back to the
// default language when none is given.
func (a *Analyzer) ResolveLanguage(language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		return a.config.DefaultLanguage
	}
	return language
}

// Analyze detects PII in the request text
func (a *Analyzer) Analyze(ctx context.Context, req AnalyzeRequest) ([]Result, error) {
	if req.Text == "" {
		return nil, ErrEmptyText
	}

	language := a.ResolveLanguage(req.Language)
	if !a.languages[language] {
		return nil, fmt.Errorf("%w (language: %s)", ErrUnsupportedLanguage, language)
	}

	wanted := req.Entities
	explicit := len(wanted) > 0
	if !explicit {
		wanted = a.config.DefaultEntities
	}
	wantedSet := make(map[string]bool, len(wanted))
	var unknown []string
	for _, e := range wanted {
		if !a.supported[e] {
			// defaults the configured detectors cannot produce are skipped
			if !explicit {
				continue
			}
			unknown = append(unknown, e)
			continue
		}
		wantedSet[e] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, strings.Join(unknown, ", "))
	}

	entityList := make([]string, 0, len(wantedSet))
	for e := range wantedSet {
		entityList = append(entityList, e)
	}
	sort.Strings(entityList)

	output, err := a.detector.Detect(ctx, detectors.DetectorInput{
		Text:     req.Text,
		Language: language,
		Entities: entityList,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect PII: %w", err)
	}

	filtered := make([]detectors.Entity, 0, len(output.Entities))
	for _, e := range output.Entities {
		if wantedSet[e.Label] && e.Confidence >= a.config.ScoreThreshold {
			filtered = append(filtered, e)
		}
	}

	entities := resolveOverlaps(validSpans(req.Text, filtered))
	results := toResults(req.Text, entities)

	if a.config.LogPIIChanges {
		log.Printf("[Analyzer] Found %d entities in %d characters", len(results), utf8.RuneCountInString(req.Text))
		if a.config.LogVerbose {
			for _, r := range results {
				log.Printf("[Analyzer]   %s [%d:%d] score=%.2f", r.Type, r.Start, r.End, r.Score)
			}
		}
	}

	return results, nil
}

// toResults converts byte-offset entities, sorted by start, into results
// with code point offsets and scores rounded to two decimals.
func toResults(text string, entities []detectors.Entity) []Result {
	results := make([]Result, 0, len(entities))
	bytePos, runePos := 0, 0
	advance := func(to int) int {
		runePos += utf8.RuneCountInString(text[bytePos:to])
		bytePos = to
		return runePos
	}

	for _, e := range entities {
		start := advance(e.StartPos)
		end := advance(e.EndPos)
		results = append(results, Result{
			Type:      e.Label,
			Text:      text[e.StartPos:e.EndPos],
			Start:     start,
			End:       end,
			Score:     math.Round(e.Confidence*100) / 100,
			byteStart: e.StartPos,
			byteEnd:   e.EndPos,
		})
	}
	return results
}
