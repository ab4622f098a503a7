package pii

import (
	"context"
	"testing"
)

func TestRegexDetector_GetName(t *testing.T) {
	detector := NewRegexDetector(PIIPatterns)
	if detector.GetName() != "regex_detector" {
		t.Errorf("Expected name 'regex_detector', got '%s'", detector.GetName())
	}
}

func TestRegexDetector_Detect_NoMatches(t *testing.T) {
	detector := NewRegexDetector(PIIPatterns)
	input := DetectorInput{Text: "This text has nothing sensitive in it."}

	output, err := detector.Detect(context.Background(), input)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	if len(output.Entities) != 0 {
		t.Errorf("Expected 0 entities, got %d: %+v", len(output.Entities), output.Entities)
	}

	if output.Text != input.Text {
		t.Errorf("Expected text to remain unchanged, got '%s'", output.Text)
	}
}

func TestRegexDetector_Patterns(t *testing.T) {
	testCases := []struct {
		name  string
		label string
		text  string
		want  []string
	}{
		{name: "email", label: EntityEmail, text: "write to jane.doe@example.org today", want: []string{"jane.doe@example.org"}},
		{name: "email with accented local part", label: EntityEmail, text: "Contact müller@example.com or", want: []string{"müller@example.com"}},
		{name: "email starting with accent", label: EntityEmail, text: "an élodie@exemple.fr.", want: []string{"élodie@exemple.fr"}},
		{name: "email with unicode domain", label: EntityEmail, text: "mail josé@correo-españa.es", want: []string{"josé@correo-españa.es"}},
		{name: "us phone", label: EntityPhone, text: "call (555) 123-4567 now", want: []string{"(555) 123-4567"}},
		{name: "ssn", label: EntitySSN, text: "SSN 123-45-6789 on file", want: []string{"123-45-6789"}},
		{name: "ssn unissued area", label: EntitySSN, text: "id 000-45-6789", want: nil},
		{name: "ssn with context", label: EntitySSN, text: "ssn: 123456789", want: []string{"123456789"}},
		{name: "credit card", label: EntityCreditCard, text: "card 4111 1111 1111 1111 exp", want: []string{"4111 1111 1111 1111"}},
		{name: "credit card bad checksum", label: EntityCreditCard, text: "card 4111 1111 1111 1112", want: nil},
		{name: "ipv4", label: EntityIPAddress, text: "from 192.168.1.20 today", want: []string{"192.168.1.20"}},
		{name: "ipv4 out of range", label: EntityIPAddress, text: "from 999.1.1.1", want: nil},
		{name: "url trailing dot", label: EntityURL, text: "see https://example.com/path.", want: []string{"https://example.com/path"}},
		{name: "iso date", label: EntityDateTime, text: "admitted 2024-01-15", want: []string{"2024-01-15"}},
		{name: "iban", label: EntityIBAN, text: "IBAN GB82 WEST 1234 5698 7654 32", want: []string{"GB82 WEST 1234 5698 7654 32"}},
		{name: "dea number", label: EntityMedicalLicense, text: "DEA AB1234563", want: []string{"AB1234563"}},
		{name: "itin", label: EntityITIN, text: "ITIN 912-70-1234", want: []string{"912-70-1234"}},
	}

	detector := NewRegexDetector(PIIPatterns)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			output, err := detector.Detect(context.Background(), DetectorInput{
				Text:     tc.text,
				Entities: []string{tc.label},
			})
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if len(output.Entities) != len(tc.want) {
				t.Fatalf("Expected %d entities, got %d: %+v", len(tc.want), len(output.Entities), output.Entities)
			}
			for i, e := range output.Entities {
				if e.Text != tc.want[i] {
					t.Errorf("Expected entity text '%s', got '%s'", tc.want[i], e.Text)
				}
				if e.Label != tc.label {
					t.Errorf("Expected label '%s', got '%s'", tc.label, e.Label)
				}
				if tc.text[e.StartPos:e.EndPos] != e.Text {
					t.Errorf("Offsets [%d:%d] do not match entity text '%s'", e.StartPos, e.EndPos, e.Text)
				}
			}
		})
	}
}

func TestRegexDetector_RespectsEntityFilter(t *testing.T) {
	detector := NewRegexDetector(PIIPatterns)
	output, err := detector.Detect(context.Background(), DetectorInput{
		Text:     "mail a@b.io or call 555-123-4567",
		Entities: []string{EntityPhone},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range output.Entities {
		if e.Label != EntityPhone {
			t.Errorf("Expected only phone numbers, got %+v", e)
		}
	}
	if len(output.Entities) == 0 {
		t.Error("Expected the phone number to be found")
	}
}

func TestRegexDetector_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRegexDetector(PIIPatterns).Detect(ctx, DetectorInput{Text: "a@b.io"})
	if err == nil {
		t.Error("Expected an error for a cancelled context")
	}
}

func TestRegexDetector_SupportedEntities(t *testing.T) {
	got := NewRegexDetector(PIIPatterns).SupportedEntities()
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("Expected sorted unique labels, got %v", got)
		}
	}
	for _, want := range []string{EntityEmail, EntitySSN, EntityIBAN} {
		found := false
		for _, l := range got {
			found = found || l == want
		}
		if !found {
			t.Errorf("Expected %s in %v", want, got)
		}
	}
}
