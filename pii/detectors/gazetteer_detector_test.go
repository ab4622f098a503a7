package pii

import (
	"context"
	"testing"
)

func findEntity(entities []Entity, label, text string) (Entity, bool) {
	for _, e := range entities {
		if e.Label == label && e.Text == text {
			return e, true
		}
	}
	return Entity{}, false
}

func TestGazetteerDetector_Detect(t *testing.T) {
	testCases := []struct {
		name  string
		text  string
		label string
		want  string
	}{
		{name: "title context", text: "Seen by Dr. Whitfield today", label: EntityPerson, want: "Whitfield"},
		{name: "patient context", text: "Patient John Doe, email", label: EntityPerson, want: "John Doe"},
		{name: "given name alone", text: "I met Sarah yesterday", label: EntityPerson, want: "Sarah"},
		{name: "given name and surname", text: "Call Michael Brown back", label: EntityPerson, want: "Michael Brown"},
		{name: "city", text: "She flew to Boston last week", label: EntityLocation, want: "Boston"},
		{name: "multi word city", text: "moved to New York City in May", label: EntityLocation, want: "New York City"},
		{name: "state", text: "Our clinic in Texas is open", label: EntityLocation, want: "Texas"},
		{name: "street", text: "Send it to 42 Maple Street please", label: EntityLocation, want: "42 Maple Street"},
		{name: "location context", text: "He lives in Springfield now", label: EntityLocation, want: "Springfield"},
		{name: "accented title context", text: "Contact Dr. Ana Pérez today", label: EntityPerson, want: "Ana Pérez"},
		{name: "accented given name", text: "Contact müller@example.com or José García, thanks", label: EntityPerson, want: "José García"},
		{name: "accented surname after given name", text: "Call Zoë Müller-Lüdenscheidt back", label: EntityPerson, want: "Zoë Müller-Lüdenscheidt"},
		{name: "accented city", text: "She flew to Zürich last week", label: EntityLocation, want: "Zürich"},
		{name: "accented multi word city", text: "moved to São Paulo in May", label: EntityLocation, want: "São Paulo"},
		{name: "accented location context", text: "He lives in Málaga now", label: EntityLocation, want: "Málaga"},
		{name: "accented street", text: "Send it to 12 Côte Avenue please", label: EntityLocation, want: "12 Côte Avenue"},
	}

	detector := NewGazetteerDetector()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output, err := detector.Detect(context.Background(), DetectorInput{Text: tc.text})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			e, ok := findEntity(output.Entities, tc.label, tc.want)
			if !ok {
				t.Fatalf("Expected %s '%s', got %+v", tc.label, tc.want, output.Entities)
			}
			if tc.text[e.StartPos:e.EndPos] != tc.want {
				t.Errorf("Offsets [%d:%d] do not match '%s'", e.StartPos, e.EndPos, tc.want)
			}
		})
	}
}

func TestGazetteerDetector_IgnoresLowercase(t *testing.T) {
	output, err := NewGazetteerDetector().Detect(context.Background(), DetectorInput{
		Text: "the mark of a good boston cream pie",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(output.Entities) != 0 {
		t.Errorf("Expected no entities, got %+v", output.Entities)
	}
}

func TestGazetteerDetector_RejectsGluedWords(t *testing.T) {
	output, err := NewGazetteerDetector().Detect(context.Background(), DetectorInput{
		Text: "wärmeBoston and outpatient Sarahé",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(output.Entities) != 0 {
		t.Errorf("Expected no entities inside longer words, got %+v", output.Entities)
	}
}

func TestGazetteerDetector_EntityFilter(t *testing.T) {
	output, err := NewGazetteerDetector().Detect(context.Background(), DetectorInput{
		Text:     "Patient Maria Lopez lives in Chicago",
		Entities: []string{EntityLocation},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range output.Entities {
		if e.Label != EntityLocation {
			t.Errorf("Expected only locations, got %+v", e)
		}
	}
	if _, ok := findEntity(output.Entities, EntityLocation, "Chicago"); !ok {
		t.Errorf("Expected Chicago, got %+v", output.Entities)
	}
}

func TestGazetteerDetector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewGazetteerDetector().Detect(ctx, DetectorInput{Text: "Boston"}); err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}
