package pii

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ModelDetector implements Detector by calling an external NER sidecar
type ModelDetector struct {
	baseURL string
	client  *http.Client
}

func NewModelDetector(baseURL string, timeout time.Duration) *ModelDetector {
	return &ModelDetector{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// GetName returns the name of this detector
func (m *ModelDetector) GetName() string {
	return DetectorNameModel
}

type modelRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type modelEntity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	StartPos   int     `json:"start_pos"`
	EndPos     int     `json:"end_pos"`
	Confidence float64 `json:"confidence"`
}

type modelResponse struct {
	Entities []modelEntity `json:"entities"`
}

// SupportedEntities returns the tags sidecar labels are mapped onto.
func (m *ModelDetector) SupportedEntities() []string {
	return ModelEntities()
}

// Detect processes the input and returns detected entities
func (m *ModelDetector) Detect(ctx context.Context, input DetectorInput) (DetectorOutput, error) {
	// send input to model server using POST request -> baseURL / detect
	jsonData, err := json.Marshal(modelRequest{Text: input.Text, Language: input.Language})
	if err != nil {
		return DetectorOutput{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/detect", bytes.NewBuffer(jsonData))
	if err != nil {
		return DetectorOutput{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	response, err := m.client.Do(req)
	if err != nil {
		return DetectorOutput{}, fmt.Errorf("model server unreachable: %w", err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return DetectorOutput{}, fmt.Errorf("model server returned %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
	}

	entities, err := convertResponseToEntities(response.Body, input)
	if err != nil {
		return DetectorOutput{}, err
	}

	return DetectorOutput{
		Text:     input.Text,
		Entities: entities,
	}, nil
}

func convertResponseToEntities(body io.Reader, input DetectorInput) ([]Entity, error) {
	var decoded modelResponse
	if err := json.NewDecoder(body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode model response: %w", err)
	}

	entities := make([]Entity, 0, len(decoded.Entities))
	for _, e := range decoded.Entities {
		label, ok := CanonicalLabel(e.Label)
		if !ok || !input.Wants(label) {
			continue
		}
		if e.StartPos < 0 || e.EndPos > len(input.Text) || e.StartPos >= e.EndPos {
			continue
		}
		entities = append(entities, Entity{
			Text:       input.Text[e.StartPos:e.EndPos],
			Label:      label,
			StartPos:   e.StartPos,
			EndPos:     e.EndPos,
			Confidence: e.Confidence,
			Source:     DetectorNameModel,
		})
	}
	return entities, nil
}

// Close implements the Detector interface
func (m *ModelDetector) Close() error {
	m.client.CloseIdleConnections()
	return nil
}
