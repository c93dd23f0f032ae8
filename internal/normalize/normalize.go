// Package normalize cleans extracted patient fields before validation.
package normalize

import (
	"regexp"
	"strings"

	"github.com/WailSalutem-Health-Care/voice-intake-service/internal/extraction"
)

// MinPhoneDigits is the shortest phone number accepted.
const MinPhoneDigits = 10

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Fields trims every value, turns blanks into nil and reduces the phone number to
// digits. A phone shorter than MinPhoneDigits is dropped. Applying it twice gives
// the same result as applying it once.
func Fields(in extraction.Fields) extraction.Fields {
	out := extraction.Fields{
		FirstName:   text(in.FirstName),
		LastName:    text(in.LastName),
		PhoneNumber: text(in.PhoneNumber),
		Address:     text(in.Address),
	}
	if out.PhoneNumber != nil {
		if digits, ok := Phone(*out.PhoneNumber); ok {
			out.PhoneNumber = &digits
		} else {
			out.PhoneNumber = nil
		}
	}
	return out
}

// Phone strips every non-digit character and reports whether enough digits remain.
func Phone(s string) (string, bool) {
	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) < MinPhoneDigits {
		return "", false
	}
	return digits, true
}

// Missing returns the names of required fields that are nil.
func Missing(f extraction.Fields) []string {
	var missing []string
	for _, name := range extraction.RequiredFields {
		if f.Get(name) == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

func text(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
