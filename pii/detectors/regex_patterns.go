package pii

// Pattern describes one regular-expression recognizer. Group selects the
// capture group holding the PII when the expression also matches leading
// context such as "license #". Validate, when set, rejects false positives.
type Pattern struct {
	Label    string
	Name     string
	Expr     string
	Score    float64
	Group    int
	Trim     string
	Validate func(string) bool
}

const monthNames = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

// PIIPatterns defines regex patterns for the supported PII types
var PIIPatterns = []Pattern{
	{Label: EntityEmail, Name: "email", Score: 1.0,
		Expr: `[\p{L}\p{M}\p{N}._%+-]+@[\p{L}\p{M}\p{N}.-]+\.\p{L}{2,}`},

	{Label: EntityPhone, Name: "us_phone", Score: 0.75,
		Expr: `(?:\+?1[-.\s]?)?(?:\(\d{3}\)\s?|\b\d{3}[-.\s]?)\d{3}[-.\s]?\d{4}\b`},
	{Label: EntityPhone, Name: "intl_phone", Score: 0.6,
		Expr: `\+(?:[2-9]\d{0,2})[-.\s]?\d{2,4}(?:[-.\s]?\d{2,4}){2,3}\b`},

	{Label: EntitySSN, Name: "ssn", Score: 0.85, Validate: validSSN,
		Expr: `\b\d{3}[- ]\d{2}[- ]\d{4}\b`},
	{Label: EntitySSN, Name: "ssn_context", Score: 0.5, Group: 1, Validate: validSSN,
		Expr: `(?i:\b(?:ssn|social security(?: number| no\.?)?)\s*[:#]?\s*)(\d{9})\b`},

	{Label: EntityCreditCard, Name: "credit_card", Score: 1.0, Validate: validLuhn,
		Expr: `\b(?:\d{4}[- ]?){3}\d{4}\b|\b3[47]\d{2}[- ]?\d{6}[- ]?\d{5}\b`},

	{Label: EntityIPAddress, Name: "ipv4", Score: 0.95, Validate: validIP,
		Expr: `\b(?:\d{1,3}\.){3}\d{1,3}\b`},
	{Label: EntityIPAddress, Name: "ipv6", Score: 0.95, Validate: validIP,
		Expr: `(?:[0-9A-Fa-f]{0,4}:){2,7}[0-9A-Fa-f]{1,4}\b`},

	{Label: EntityURL, Name: "url", Score: 0.85, Trim: ".,;:!?",
		Expr: `\b(?:https?|ftp)://[^\s<>"'()]+|\bwww\.[A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)+[^\s<>"'()]*`},

	{Label: EntityDateTime, Name: "date_us", Score: 0.85,
		Expr: `\b(?:0?[1-9]|1[0-2])[/-](?:0?[1-9]|[12]\d|3[01])[/-](?:(?:19|20)\d{2}|\d{2})\b`},
	{Label: EntityDateTime, Name: "date_iso", Score: 0.85,
		Expr: `\b(?:19|20)\d{2}-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12]\d|3[01])(?:[T ](?:[01]\d|2[0-3]):[0-5]\d(?::[0-5]\d)?)?\b`},
	{Label: EntityDateTime, Name: "date_month_first", Score: 0.85,
		Expr: `\b` + monthNames + `\.?\s+\d{1,2}(?:st|nd|rd|th)?,?\s+(?:19|20)\d{2}\b`},
	{Label: EntityDateTime, Name: "date_day_first", Score: 0.85,
		Expr: `\b\d{1,2}(?:st|nd|rd|th)?\s+` + monthNames + `\.?,?\s+(?:19|20)\d{2}\b`},
	{Label: EntityDateTime, Name: "time", Score: 0.6,
		Expr: `\b(?:[01]?\d|2[0-3]):[0-5]\d(?::[0-5]\d)?(?:\s?[AaPp][Mm])?\b`},

	{Label: EntityDriverLicense, Name: "driver_license", Score: 0.65, Group: 1,
		Expr: `(?i:\b(?:driver'?s?\s+licen[cs]e|DL)(?:\s+(?:number|num|no\.?))?\s*[:#]?\s*)([A-Z]{0,2}\d{5,13})\b`},

	{Label: EntityMedicalLicense, Name: "dea_number", Score: 0.8, Validate: validDEA,
		Expr: `\b[ABCDEFGHJKLMPRSTUX][A-Z9]\d{7}\b`},
	{Label: EntityMedicalLicense, Name: "medical_license_context", Score: 0.6, Group: 1,
		Expr: `(?i:\b(?:medical|physician|npi)\s+(?:licen[cs]e|number|no\.?)\s*[:#]?\s*)([A-Z]{0,2}\d{6,10})\b`},

	{Label: EntityIBAN, Name: "iban", Score: 1.0, Validate: validIBAN,
		Expr: `\b[A-Z]{2}\d{2}(?: ?[A-Z0-9]{4}){2,7}(?: ?[A-Z0-9]{1,4})?\b`},

	{Label: EntityITIN, Name: "itin", Score: 0.85,
		Expr: `\b9\d{2}[- ]?(?:5\d|6[0-5]|7\d|8[0-8]|9[0-2]|9[4-9])[- ]?\d{4}\b`},
}
