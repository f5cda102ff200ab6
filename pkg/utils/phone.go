package utils

import "strings"

// NormalizeWhatsAppNumber converts a user-entered phone number to the
// "whatsapp:+<digits>" form Twilio uses. A leading local "0" is replaced
// with the 972 country code so numbers can be entered the way people
// dial them.
func NormalizeWhatsAppNumber(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	num := digits.String()
	if num == "" {
		return ""
	}
	if strings.HasPrefix(num, "0") {
		num = "972" + num[1:]
	}
	return "whatsapp:+" + num
}
