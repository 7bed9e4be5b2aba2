package utils

import (
	"fmt"
	"strings"
	"unicode"
)

const (
	// IndividualSuffix marks a one-to-one WhatsApp contact address
	IndividualSuffix = "@c.us"
	// GroupSuffix marks a WhatsApp group address
	GroupSuffix = "@g.us"
)

// CountryCode replaces a leading trunk "0" when normalising numbers.
// Set once from config at startup.
var CountryCode = "62"

// DigitsOnly strips every non-digit rune
func DigitsOnly(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone turns any user-facing rendering of a number ("+62 812-3456",
// "0812 3456", "62812...@c.us") into the canonical identifier used for lookups.
func NormalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "@"); i >= 0 {
		raw = raw[:i]
	}
	phone := DigitsOnly(raw)
	if strings.HasPrefix(phone, "0") {
		phone = CountryCode + phone[1:]
	}
	return phone
}

// IsGroupAddress reports whether the address is a WhatsApp group id
func IsGroupAddress(addr string) bool {
	return strings.HasSuffix(addr, GroupSuffix)
}

// FormatAddress builds a destination address for the transport.
// Groups pass through unchanged but must carry the group suffix.
// Individuals are normalised and must have 10-15 digits.
func FormatAddress(raw string, isGroup bool) (string, error) {
	if isGroup {
		if !IsGroupAddress(raw) {
			return "", fmt.Errorf("invalid group id: %s", raw)
		}
		return raw, nil
	}

	phone := DigitsOnly(raw)
	if strings.HasPrefix(phone, "0") {
		phone = CountryCode + phone[1:]
	}
	if len(phone) < 10 || len(phone) > 15 {
		return "", fmt.Errorf("invalid phone number: %s", phone)
	}
	return phone + IndividualSuffix, nil
}
