package pii

import (
	"testing"
	"time"
)

func TestRegisteredDetectors(t *testing.T) {
	names := RegisteredDetectors()
	for _, want := range []string{DetectorNameGazetteer, DetectorNameModel, DetectorNameONNXModel, DetectorNameRegex} {
		found := false
		for _, n := range names {
			found = found || n == want
		}
		if !found {
			t.Errorf("Expected %s to be registered, got %v", want, names)
		}
	}
}

func TestNewDetector(t *testing.T) {
	testCases := []struct {
		name     string
		detector string
		config   map[string]interface{}
		wantErr  bool
	}{
		{name: "regex", detector: DetectorNameRegex, config: map[string]interface{}{}},
		{name: "gazetteer", detector: DetectorNameGazetteer, config: map[string]interface{}{}},
		{name: "model", detector: DetectorNameModel, config: map[string]interface{}{"base_url": "http://localhost:8001", "timeout": time.Second}},
		{name: "model without url", detector: DetectorNameModel, config: map[string]interface{}{}, wantErr: true},
		{name: "onnx without paths", detector: DetectorNameONNXModel, config: map[string]interface{}{}, wantErr: true},
		{name: "unknown", detector: "spacy", config: nil, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := NewDetector(tc.detector, tc.config)
			if tc.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			defer func() { _ = CloseDetector(d) }()
			if d.GetName() != tc.detector {
				t.Errorf("Expected name '%s', got '%s'", tc.detector, d.GetName())
			}
		})
	}
}

func TestCanonicalLabel(t *testing.T) {
	testCases := []struct {
		label string
		want  string
		ok    bool
	}{
		{"B-PER", EntityPerson, true},
		{"i-loc", EntityLocation, true},
		{"SOCIALNUM", EntitySSN, true},
		{" EMAIL ", EntityEmail, true},
		{"MISC", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			got, ok := CanonicalLabel(tc.label)
			if got != tc.want || ok != tc.ok {
				t.Errorf("Expected (%s, %v), got (%s, %v)", tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestDetectorInputWants(t *testing.T) {
	all := DetectorInput{}
	if !all.Wants(EntityPerson) {
		t.Error("Expected an empty filter to want everything")
	}
	some := DetectorInput{Entities: []string{EntityEmail}}
	if some.Wants(EntityPerson) || !some.Wants(EntityEmail) {
		t.Error("Expected the filter to be honoured")
	}
}
