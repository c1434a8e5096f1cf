package reminder

import "strings"

// RecipientSuffix is the transport-level messaging domain appended to every
// normalized phone number.
const RecipientSuffix = "@c.us"

// NormalizePhone converts a raw phone value into a transport recipient
// identifier: strip every non-digit, replace a leading "0" trunk prefix with
// the "62" country code, append the messaging-domain suffix.
//
// ok is false for empty or all-non-digit input; such records must be
// skipped, not delivered.
func NormalizePhone(raw string) (recipient string, ok bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", false
	}
	if strings.HasPrefix(digits, "0") {
		digits = "62" + digits[1:]
	}
	return digits + RecipientSuffix, true
}
