package models

import "strings"

// MobileKeyLength is how many trailing digits identify a mobile number.
const MobileKeyLength = 10

// NormalizeMobile strips every non-digit and keeps the last ten digits, so
// "+91 96454-99929" and "9645499929" share a key. It returns "" when the
// input has no digits.
func NormalizeMobile(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > MobileKeyLength {
		digits = digits[len(digits)-MobileKeyLength:]
	}
	return digits
}

// SameMobile compares two numbers by their normalised keys. An empty key
// never matches.
func SameMobile(a, b string) bool {
	ka := NormalizeMobile(a)
	return ka != "" && ka == NormalizeMobile(b)
}
