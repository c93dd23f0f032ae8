package extraction

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Field names in the order they are reported when missing.
const (
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldPhoneNumber = "phone_number"
	FieldAddress     = "address"
)

// RequiredFields lists every field a patient record needs.
var RequiredFields = []string{FieldFirstName, FieldLastName, FieldPhoneNumber, FieldAddress}

// Fields is the structured data pulled out of a transcript.
// A nil value means the field was absent or the model was not confident.
type Fields struct {
	FirstName   *string `json:"first_name"`
	LastName    *string `json:"last_name"`
	PhoneNumber *string `json:"phone_number"`
	Address     *string `json:"address"`
}

// Get returns the value stored under a field name.
func (f Fields) Get(name string) *string {
	switch name {
	case FieldFirstName:
		return f.FirstName
	case FieldLastName:
		return f.LastName
	case FieldPhoneNumber:
		return f.PhoneNumber
	case FieldAddress:
		return f.Address
	}
	return nil
}

// DecodeFields parses a model response into Fields.
//
// Unknown keys are ignored and absent keys stay nil. Strings are kept as-is, numbers
// keep their literal text, anything else becomes nil. A surrounding markdown code
// fence is removed first. Anything after the object other than whitespace is an error.
func DecodeFields(text string) (Fields, error) {
	dec := json.NewDecoder(strings.NewReader(stripCodeFence(text)))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return Fields{}, err
	}
	if raw == nil {
		return Fields{}, fmt.Errorf("expected a JSON object, got null")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return Fields{}, fmt.Errorf("unexpected data after JSON object")
	}

	return Fields{
		FirstName:   scalar(raw[FieldFirstName]),
		LastName:    scalar(raw[FieldLastName]),
		PhoneNumber: scalar(raw[FieldPhoneNumber]),
		Address:     scalar(raw[FieldAddress]),
	}, nil
}

func scalar(v interface{}) *string {
	switch val := v.(type) {
	case string:
		return &val
	case json.Number:
		s := val.String()
		return &s
	default:
		return nil
	}
}

func stripCodeFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	// drop an optional language tag such as ```json
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:]
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}
