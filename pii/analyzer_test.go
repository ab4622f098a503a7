package pii

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	detectors "github.com/hannes/pii-sanitizer/pii/detectors"
)

// mockDetector implements detectors.Detector for testing
type mockDetector struct {
	output    detectors.DetectorOutput
	err       error
	lastInput detectors.DetectorInput
	closed    atomic.Bool
}

func (m *mockDetector) Detect(ctx context.Context, input detectors.DetectorInput) (detectors.DetectorOutput, error) {
	m.lastInput = input
	return m.output, m.err
}

func (m *mockDetector) GetName() string {
	return "mock_detector"
}

func (m *mockDetector) Close() error {
	m.closed.Store(true)
	return nil
}

// listingDetector also reports the labels it can emit
type listingDetector struct {
	mockDetector
	labels []string
}

func (l *listingDetector) SupportedEntities() []string {
	return l.labels
}

func entitiesDetector(entities ...detectors.Entity) *mockDetector {
	return &mockDetector{output: detectors.DetectorOutput{Entities: entities}}
}

func newTestAnalyzer(d detectors.Detector) *Analyzer {
	return NewAnalyzer(d, AnalyzerConfig{
		DefaultLanguage:    "en",
		SupportedLanguages: []string{"en", "de"},
		ScoreThreshold:     0.35,
	})
}

func TestAnalyze_FiltersAndSorts(t *testing.T) {
	text := "Contact john@example.com or Jane today"
	detector := entitiesDetector(
		detectors.Entity{Label: detectors.EntityPerson, StartPos: 28, EndPos: 32, Confidence: 0.6},
		detectors.Entity{Label: detectors.EntityEmail, StartPos: 8, EndPos: 24, Confidence: 1.0},
		detectors.Entity{Label: detectors.EntityLocation, StartPos: 33, EndPos: 38, Confidence: 0.2},
	)

	results, err := newTestAnalyzer(detector).Analyze(context.Background(), AnalyzeRequest{Text: text})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("Expected 2 results above the threshold, got %+v", results)
	}
	if results[0].Type != detectors.EntityEmail || results[0].Text != "john@example.com" {
		t.Errorf("Unexpected first result: %+v", results[0])
	}
	if results[1].Type != detectors.EntityPerson || results[1].Text != "Jane" {
		t.Errorf("Unexpected second result: %+v", results[1])
	}
}

func TestAnalyze_ResolvesOverlaps(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		entities []detectors.Entity
		want     string
	}{
		{
			name: "higher score wins",
			text: "John Smith",
			entities: []detectors.Entity{
				{Label: detectors.EntityPerson, StartPos: 0, EndPos: 10, Confidence: 0.85},
				{Label: detectors.EntityLocation, StartPos: 5, EndPos: 10, Confidence: 0.9},
			},
			want: detectors.EntityLocation,
		},
		{
			name: "longer span wins on a tie",
			text: "John Smith",
			entities: []detectors.Entity{
				{Label: detectors.EntityLocation, StartPos: 5, EndPos: 10, Confidence: 0.85},
				{Label: detectors.EntityPerson, StartPos: 0, EndPos: 10, Confidence: 0.85},
			},
			want: detectors.EntityPerson,
		},
		{
			name: "earlier start wins on equal length",
			text: "ab cd ef",
			entities: []detectors.Entity{
				{Label: detectors.EntityLocation, StartPos: 3, EndPos: 8, Confidence: 0.85},
				{Label: detectors.EntityPerson, StartPos: 0, EndPos: 5, Confidence: 0.85},
			},
			want: detectors.EntityPerson,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			results, err := newTestAnalyzer(entitiesDetector(tc.entities...)).Analyze(context.Background(),
				AnalyzeRequest{Text: tc.text})
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if len(results) != 1 || results[0].Type != tc.want {
				t.Errorf("Expected a single %s, got %+v", tc.want, results)
			}
		})
	}
}

func TestAnalyze_CodePointOffsets(t *testing.T) {
	text := "Café José a@b.io"
	// é is two bytes, so the email starts at byte 12 but code point 10
	detector := entitiesDetector(detectors.Entity{Label: detectors.EntityEmail, StartPos: 12, EndPos: 18, Confidence: 0.876})

	results, err := newTestAnalyzer(detector).Analyze(context.Background(), AnalyzeRequest{Text: text})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %+v", results)
	}
	r := results[0]
	if r.Start != 10 || r.End != 16 || r.Text != "a@b.io" {
		t.Errorf("Expected [10:16] 'a@b.io', got [%d:%d] '%s'", r.Start, r.End, r.Text)
	}
	if r.Score != 0.88 {
		t.Errorf("Expected score rounded to 0.88, got %v", r.Score)
	}
}

func TestAnalyze_DropsInvalidSpans(t *testing.T) {
	text := "John née Smith"
	detector := entitiesDetector(
		detectors.Entity{Label: detectors.EntityPerson, StartPos: 1, EndPos: 4, Confidence: 0.9},   // partial word
		detectors.Entity{Label: detectors.EntityPerson, StartPos: 6, EndPos: 7, Confidence: 0.9},   // splits é
		detectors.Entity{Label: detectors.EntityPerson, StartPos: 10, EndPos: 99, Confidence: 0.9}, // past the end
		detectors.Entity{Label: detectors.EntityPerson, StartPos: 4, EndPos: 4, Confidence: 0.9},   // empty
		detectors.Entity{Label: detectors.EntityPerson, StartPos: 10, EndPos: 15, Confidence: 0.9}, // valid
	)

	results, err := newTestAnalyzer(detector).Analyze(context.Background(), AnalyzeRequest{Text: text})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(results) != 1 || results[0].Text != "Smith" {
		t.Errorf("Expected only 'Smith', got %+v", results)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	detectErr := errors.New("backend offline")

	testCases := []struct {
		name     string
		detector detectors.Detector
		req      AnalyzeRequest
		wantErr  error
	}{
		{name: "empty text", detector: entitiesDetector(), req: AnalyzeRequest{}, wantErr: ErrEmptyText},
		{name: "unsupported language", detector: entitiesDetector(), req: AnalyzeRequest{Text: "x", Language: "fr"}, wantErr: ErrUnsupportedLanguage},
		{name: "unknown entity", detector: entitiesDetector(), req: AnalyzeRequest{Text: "x", Entities: []string{"IBAN_CODE"}}, wantErr: ErrUnknownEntity},
		{name: "detector failure", detector: &mockDetector{err: detectErr}, req: AnalyzeRequest{Text: "x"}, wantErr: detectErr},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestAnalyzer(tc.detector).Analyze(context.Background(), tc.req)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestAnalyze_LanguageIsNormalized(t *testing.T) {
	detector := entitiesDetector()
	if _, err := newTestAnalyzer(detector).Analyze(context.Background(), AnalyzeRequest{Text: "x", Language: " DE "}); err != nil {
		t.Fatalf("Expected DE to be accepted, got %v", err)
	}
	if detector.lastInput.Language != "de" {
		t.Errorf("Expected language 'de' to reach the detector, got '%s'", detector.lastInput.Language)
	}
}

func TestAnalyze_EntityFilter(t *testing.T) {
	detector := entitiesDetector(
		detectors.Entity{Label: detectors.EntityPerson, StartPos: 0, EndPos: 4, Confidence: 0.9},
		detectors.Entity{Label: detectors.EntityEmail, StartPos: 5, EndPos: 11, Confidence: 0.9},
	)

	results, err := newTestAnalyzer(detector).Analyze(context.Background(), AnalyzeRequest{
		Text:     "Jane a@b.io",
		Entities: []string{detectors.EntityEmail},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(results) != 1 || results[0].Type != detectors.EntityEmail {
		t.Errorf("Expected only the email, got %+v", results)
	}
	if !reflect.DeepEqual(detector.lastInput.Entities, []string{detectors.EntityEmail}) {
		t.Errorf("Expected the filter to reach the detector, got %v", detector.lastInput.Entities)
	}
}

func TestAnalyze_DefaultsSkipUnsupportedEntities(t *testing.T) {
	detector := &listingDetector{labels: []string{detectors.EntityEmail}}
	analyzer := newTestAnalyzer(detector)

	if _, err := analyzer.Analyze(context.Background(), AnalyzeRequest{Text: "x"}); err != nil {
		t.Fatalf("Expected defaults to be narrowed silently, got %v", err)
	}
	if !reflect.DeepEqual(detector.lastInput.Entities, []string{detectors.EntityEmail}) {
		t.Errorf("Expected only EMAIL_ADDRESS to be requested, got %v", detector.lastInput.Entities)
	}

	_, err := analyzer.Analyze(context.Background(), AnalyzeRequest{Text: "x", Entities: []string{detectors.EntityPerson}})
	if !errors.Is(err, ErrUnknownEntity) {
		t.Errorf("Expected ErrUnknownEntity for an explicit request, got %v", err)
	}
}

func TestAnalyzer_SupportedEntities(t *testing.T) {
	plain := newTestAnalyzer(entitiesDetector()).SupportedEntities()
	if len(plain) != len(detectors.HealthcareEntities) {
		t.Errorf("Expected the healthcare defaults, got %v", plain)
	}
	for i := 1; i < len(plain); i++ {
		if plain[i-1] > plain[i] {
			t.Fatalf("Expected sorted entities, got %v", plain)
		}
	}

	lister := newTestAnalyzer(&listingDetector{labels: []string{detectors.EntityIBAN}}).SupportedEntities()
	if !reflect.DeepEqual(lister, []string{detectors.EntityIBAN}) {
		t.Errorf("Expected the detector's labels, got %v", lister)
	}
}
