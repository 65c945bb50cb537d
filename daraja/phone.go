package daraja

import "strings"

// NormalizePhone converts a phone number into the international MSISDN format
// Daraja requires (254XXXXXXXXX, no leading +). Accepts "07XXXXXXXX",
// "2547XXXXXXXX" and "+2547XXXXXXXX" shapes.
func NormalizePhone(raw string) (string, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	msisdn := digits.String()
	switch {
	case strings.HasPrefix(msisdn, "254"):
		return msisdn, nil
	case strings.HasPrefix(msisdn, "0"):
		return "254" + msisdn[1:], nil
	default:
		return "", ErrInvalidPhoneFormat
	}
}
