package pii

import (
	"sort"
	"strings"
)

// Canonical entity type tags returned to API clients.
const (
	EntityPerson         = "PERSON"
	EntityEmail          = "EMAIL_ADDRESS"
	EntityPhone          = "PHONE_NUMBER"
	EntityDateTime       = "DATE_TIME"
	EntityLocation       = "LOCATION"
	EntitySSN            = "US_SSN"
	EntityCreditCard     = "CREDIT_CARD"
	EntityIPAddress      = "IP_ADDRESS"
	EntityURL            = "URL"
	EntityDriverLicense  = "US_DRIVER_LICENSE"
	EntityMedicalLicense = "MEDICAL_LICENSE"
	EntityIBAN           = "IBAN_CODE"
	EntityITIN           = "US_ITIN"
)

// HealthcareEntities is the set analyzed when a request names no entities.
var HealthcareEntities = []string{
	EntityPerson,
	EntityEmail,
	EntityPhone,
	EntityDateTime,
	EntityLocation,
	EntitySSN,
	EntityCreditCard,
	EntityIPAddress,
	EntityURL,
	EntityDriverLicense,
	EntityMedicalLicense,
}

// modelLabels maps labels emitted by NER models and sidecars onto the
// canonical tags. Unlisted labels are dropped.
var modelLabels = map[string]string{
	"PER":               EntityPerson,
	"PERSON":            EntityPerson,
	"FIRSTNAME":         EntityPerson,
	"SURNAME":           EntityPerson,
	"LASTNAME":          EntityPerson,
	"NAME":              EntityPerson,
	"LOC":               EntityLocation,
	"GPE":               EntityLocation,
	"LOCATION":          EntityLocation,
	"CITY":              EntityLocation,
	"STATE":             EntityLocation,
	"STREET":            EntityLocation,
	"BUILDINGNUM":       EntityLocation,
	"ZIPCODE":           EntityLocation,
	"EMAIL":             EntityEmail,
	"EMAIL_ADDRESS":     EntityEmail,
	"TELEPHONENUM":      EntityPhone,
	"PHONE":             EntityPhone,
	"PHONE_NUMBER":      EntityPhone,
	"DATE":              EntityDateTime,
	"TIME":              EntityDateTime,
	"DATE_TIME":         EntityDateTime,
	"DATEOFBIRTH":       EntityDateTime,
	"SOCIALNUM":         EntitySSN,
	"SSN":               EntitySSN,
	"US_SSN":            EntitySSN,
	"CREDITCARDNUMBER":  EntityCreditCard,
	"CREDIT_CARD":       EntityCreditCard,
	"IP":                EntityIPAddress,
	"IP_ADDRESS":        EntityIPAddress,
	"URL":               EntityURL,
	"DRIVERLICENSENUM":  EntityDriverLicense,
	"US_DRIVER_LICENSE": EntityDriverLicense,
	"MEDICAL_LICENSE":   EntityMedicalLicense,
	"IBAN":              EntityIBAN,
	"IBAN_CODE":         EntityIBAN,
	"TAXNUM":            EntityITIN,
	"US_ITIN":           EntityITIN,
}

// CanonicalLabel maps a model label (with or without a BIO prefix) onto a
// canonical entity tag. The second result is false for unknown labels.
func CanonicalLabel(label string) (string, bool) {
	label = strings.ToUpper(strings.TrimSpace(label))
	label = strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")
	canonical, ok := modelLabels[label]
	return canonical, ok
}

// ModelEntities returns the sorted canonical tags a NER model can map onto.
func ModelEntities() []string {
	seen := make(map[string]bool)
	var tags []string
	for _, tag := range modelLabels {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}
