package extraction

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func assertField(t *testing.T, name string, got, want *string) {
	t.Helper()
	switch {
	case got == nil && want == nil:
	case got == nil || want == nil:
		t.Errorf("%s: expected %v, got %v", name, deref(want), deref(got))
	case *got != *want:
		t.Errorf("%s: expected %q, got %q", name, *want, *got)
	}
}

func deref(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func TestDecodeFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Fields
	}{
		{
			name:  "all strings",
			input: `{"first_name":"Alice","last_name":"Nguyen","phone_number":"5145550100","address":"123 Maple Avenue"}`,
			want:  Fields{strPtr("Alice"), strPtr("Nguyen"), strPtr("5145550100"), strPtr("123 Maple Avenue")},
		},
		{
			name:  "missing keys become nil",
			input: `{"first_name":"Alice"}`,
			want:  Fields{FirstName: strPtr("Alice")},
		},
		{
			name:  "explicit nulls",
			input: `{"first_name":null,"last_name":"Clark","phone_number":null,"address":null}`,
			want:  Fields{LastName: strPtr("Clark")},
		},
		{
			name:  "numeric phone keeps its digits",
			input: `{"phone_number":4385550101}`,
			want:  Fields{PhoneNumber: strPtr("4385550101")},
		},
		{
			name:  "non scalar values become nil",
			input: `{"first_name":["Sofia"],"last_name":{"x":1},"address":true}`,
			want:  Fields{},
		},
		{
			name:  "extra keys ignored",
			input: `{"first_name":"Sofia","email":"sofia@example.com"}`,
			want:  Fields{FirstName: strPtr("Sofia")},
		},
		{
			name:  "code fence stripped",
			input: "```json\n{\"first_name\":\"Benjamin\"}\n```",
			want:  Fields{FirstName: strPtr("Benjamin")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFields(tt.input)
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			assertField(t, FieldFirstName, got.FirstName, tt.want.FirstName)
			assertField(t, FieldLastName, got.LastName, tt.want.LastName)
			assertField(t, FieldPhoneNumber, got.PhoneNumber, tt.want.PhoneNumber)
			assertField(t, FieldAddress, got.Address, tt.want.Address)
		})
	}
}

func TestDecodeFields_Invalid(t *testing.T) {
	for _, input := range []string{
		"not json",
		`["a","b"]`,
		"null",
		`{"first_name":`,
		`{"first_name":"Alice"} and then some prose`,
		`{"first_name":"Alice"}{"first_name":"Bob"}`,
	} {
		if _, err := DecodeFields(input); err == nil {
			t.Errorf("Expected error for %q", input)
		}
	}
}

func TestDecodeFields_TrailingWhitespaceAllowed(t *testing.T) {
	fields, err := DecodeFields("{\"first_name\":\"Alice\"}\n\n")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	assertField(t, FieldFirstName, fields.FirstName, strPtr("Alice"))
}

func TestFieldsGet(t *testing.T) {
	f := Fields{FirstName: strPtr("Alice"), Address: strPtr("123 Maple Avenue")}

	if got := f.Get(FieldFirstName); got == nil || *got != "Alice" {
		t.Errorf("Expected Alice, got %v", deref(got))
	}
	if got := f.Get(FieldPhoneNumber); got != nil {
		t.Errorf("Expected nil phone, got %v", *got)
	}
	if got := f.Get("email"); got != nil {
		t.Error("Expected nil for unknown field")
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("Hi, I'm Alice Nguyen.")

	if !strings.Contains(prompt, `"""Hi, I'm Alice Nguyen."""`) {
		t.Error("Expected transcript to be quoted inside the prompt")
	}
	for _, field := range RequiredFields {
		if !strings.Contains(prompt, `"`+field+`": "string or null"`) {
			t.Errorf("Expected prompt to describe %s", field)
		}
	}
	if strings.Contains(prompt, "{transcript}") {
		t.Error("Expected placeholder to be replaced")
	}
}
