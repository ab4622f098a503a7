package pii

import (
	"sort"
	"strings"

	detectors "github.com/hannes/pii-sanitizer/pii/detectors"
)

// DefaultOperatorKey names the placeholder used for entity types without
// their own entry.
const DefaultOperatorKey = "DEFAULT"

// DefaultPlaceholders maps entity types to their replacement tokens
var DefaultPlaceholders = map[string]string{
	DefaultOperatorKey:             "<REDACTED>",
	detectors.EntityPerson:         "<PERSON>",
	detectors.EntityEmail:          "<EMAIL>",
	detectors.EntityPhone:          "<PHONE>",
	detectors.EntityDateTime:       "<DATE>",
	detectors.EntityLocation:       "<LOCATION>",
	detectors.EntitySSN:            "<SSN>",
	detectors.EntityCreditCard:     "<CREDIT_CARD>",
	detectors.EntityIPAddress:      "<IP_ADDRESS>",
	detectors.EntityURL:            "<URL>",
	detectors.EntityDriverLicense:  "<DRIVER_LICENSE>",
	detectors.EntityMedicalLicense: "<MEDICAL_LICENSE>",
}

// Anonymizer replaces detected entities with entity-type placeholders
type Anonymizer struct {
	placeholders map[string]string
}

// NewAnonymizer creates an anonymizer. Overrides replace or extend the
// default placeholders; empty values are ignored.
func NewAnonymizer(overrides map[string]string) *Anonymizer {
	placeholders := make(map[string]string, len(DefaultPlaceholders)+len(overrides))
	for k, v := range DefaultPlaceholders {
		placeholders[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			placeholders[strings.ToUpper(k)] = v
		}
	}
	return &Anonymizer{placeholders: placeholders}
}

// Placeholder returns the replacement token for an entity type
func (a *Anonymizer) Placeholder(entityType string) string {
	if p, ok := a.placeholders[entityType]; ok {
		return p
	}
	return a.placeholders[DefaultOperatorKey]
}

// Anonymize replaces every result span in text with its placeholder.
// Results must come from analyzing the same text and must not overlap.
func (a *Anonymizer) Anonymize(text string, results []Result) string {
	if len(results) == 0 {
		return text
	}

	ordered := make([]Result, len(results))
	copy(ordered, results)
	// Replace from the end so earlier offsets stay valid
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].byteStart > ordered[j].byteStart })

	for _, r := range ordered {
		if r.byteStart < 0 || r.byteEnd > len(text) || r.byteStart >= r.byteEnd {
			continue
		}
		text = text[:r.byteStart] + a.Placeholder(r.Type) + text[r.byteEnd:]
	}
	return text
}
