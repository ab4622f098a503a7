package pii

// DetectorInput represents the input for PII detection
type DetectorInput struct {
	Text     string   `json:"text"`
	Language string   `json:"language,omitempty"`
	Entities []string `json:"entities,omitempty"` // empty means every entity the detector knows
}

// DetectorOutput represents the output of PII detection
type DetectorOutput struct {
	Text     string   `json:"text"`
	Entities []Entity `json:"entities"`
}

// Entity represents a detected PII entity. StartPos and EndPos are byte
// offsets into the input text.
type Entity struct {
	Text       string  `json:"text"`
	Label      string  `json:"label"`
	StartPos   int     `json:"start_pos"`
	EndPos     int     `json:"end_pos"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source,omitempty"`
}

// Wants reports whether the input asks for the given entity label.
func (in DetectorInput) Wants(label string) bool {
	if len(in.Entities) == 0 {
		return true
	}
	for _, e := range in.Entities {
		if e == label {
			return true
		}
	}
	return false
}
