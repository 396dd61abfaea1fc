package linker

import (
	"strings"
)

// phoneDigits is the length of a North American number without country code.
const phoneDigits = 10

// NormalizePhone strips everything but ASCII digits and keeps the last ten. It
// returns "" when fewer than ten digits remain, so short numbers never match.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < phoneDigits {
		return ""
	}
	return digits[len(digits)-phoneDigits:]
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeContactID(id *string) string {
	if id == nil {
		return ""
	}
	return strings.TrimSpace(*id)
}
