package pii

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestModelDetector_Detect(t *testing.T) {
	text := "John lives at home"
	var received modelRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/detect" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"entities":[
			{"text":"John","label":"B-PER","start_pos":0,"end_pos":4,"confidence":0.93},
			{"text":"home","label":"MISC","start_pos":14,"end_pos":18,"confidence":0.9},
			{"text":"x","label":"EMAIL","start_pos":40,"end_pos":45,"confidence":0.9}
		]}`))
	}))
	defer srv.Close()

	detector := NewModelDetector(srv.URL+"/", time.Second)
	defer func() { _ = detector.Close() }()

	output, err := detector.Detect(context.Background(), DetectorInput{Text: text, Language: "en"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if received.Text != text || received.Language != "en" {
		t.Errorf("Unexpected request body: %+v", received)
	}
	if len(output.Entities) != 1 {
		t.Fatalf("Expected 1 entity, got %+v", output.Entities)
	}
	e := output.Entities[0]
	if e.Label != EntityPerson || e.Text != "John" || e.Confidence != 0.93 {
		t.Errorf("Unexpected entity: %+v", e)
	}
}

func TestModelDetector_EntityFilter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"entities":[{"label":"PER","start_pos":0,"end_pos":4,"confidence":0.9}]}`))
	}))
	defer srv.Close()

	output, err := NewModelDetector(srv.URL, time.Second).Detect(context.Background(), DetectorInput{
		Text:     "John",
		Entities: []string{EntityEmail},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(output.Entities) != 0 {
		t.Errorf("Expected filtered entities, got %+v", output.Entities)
	}
}

func TestModelDetector_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "boom", wantErr: "returned 500: boom"},
		{name: "bad json", status: http.StatusOK, body: "{", wantErr: "failed to decode model response"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewModelDetector(srv.URL, time.Second).Detect(context.Background(), DetectorInput{Text: "hi"})
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Expected error containing '%s', got %v", tc.wantErr, err)
			}
		})
	}
}

func TestModelDetector_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewModelDetector(url, time.Second).Detect(context.Background(), DetectorInput{Text: "hi"})
	if err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Errorf("Expected an unreachable error, got %v", err)
	}
}
