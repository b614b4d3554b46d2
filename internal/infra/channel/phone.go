package channel

import (
	"fmt"
	"strings"
	"unicode"

	"school_admin/internal/domain/errs"
)

// normalizePhone turns a stored phone into "+<digits>". Numbers without a
// leading + or 00 get countryCode prepended (its own + is optional).
func normalizePhone(phone, countryCode string) (string, error) {
	p := strings.TrimSpace(phone)
	international := strings.HasPrefix(p, "+") || strings.HasPrefix(p, "00")
	if strings.HasPrefix(p, "00") {
		p = p[2:]
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, p)
	if digits == "" {
		return "", fmt.Errorf("%w: phone %q has no digits", errs.ErrDeliveryFailure, phone)
	}
	if !international {
		cc := strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
		if cc != "" {
			digits = cc + strings.TrimPrefix(digits, "0")
		}
	}
	return "+" + digits, nil
}
