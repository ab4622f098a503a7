package pii

import "testing"

func TestValidators(t *testing.T) {
	testCases := []struct {
		name     string
		validate func(string) bool
		input    string
		want     bool
	}{
		{"luhn visa", validLuhn, "4111-1111-1111-1111", true},
		{"luhn amex", validLuhn, "378282246310005", true},
		{"luhn bad checksum", validLuhn, "4111111111111112", false},
		{"luhn too short", validLuhn, "4111", false},
		{"ssn valid", validSSN, "123-45-6789", true},
		{"ssn area 000", validSSN, "000-45-6789", false},
		{"ssn area 666", validSSN, "666-45-6789", false},
		{"ssn area 9xx", validSSN, "912-45-6789", false},
		{"ssn group 00", validSSN, "123-00-6789", false},
		{"ssn serial 0000", validSSN, "123-45-0000", false},
		{"ssn repeated digit", validSSN, "111-11-1111", false},
		{"ip v4", validIP, "10.0.0.1", true},
		{"ip v6", validIP, "2001:db8::1", true},
		{"ip invalid octet", validIP, "256.0.0.1", false},
		{"dea valid", validDEA, "AB1234563", true},
		{"dea bad checksum", validDEA, "AB1234564", false},
		{"dea wrong length", validDEA, "AB123456", false},
		{"iban valid", validIBAN, "GB82 WEST 1234 5698 7654 32", true},
		{"iban valid compact", validIBAN, "DE89370400440532013000", true},
		{"iban bad checksum", validIBAN, "GB82 WEST 1234 5698 7654 33", false},
		{"iban too short", validIBAN, "GB82 WEST", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.validate(tc.input); got != tc.want {
				t.Errorf("Expected %v for '%s', got %v", tc.want, tc.input, got)
			}
		})
	}
}
