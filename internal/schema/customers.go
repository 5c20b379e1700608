package schema

import (
	"regexp"
	"strings"
	"unicode"
)

// phoneRegex accepts digits, '+', '-', spaces and parentheses, 8-15 characters.
var phoneRegex = regexp.MustCompile(`^[0-9+\-\s()]{8,15}$`)

// customerSchema is the contact-list schema shared by every import.
var customerSchema = MustSchema(
	FieldSpec{
		Key:      KeyFullName,
		Label:    "Full name",
		Required: true,
		Synonyms: []string{"TÊN KHÁCH HÀNG", "FULL NAME", "NAME"},
	},
	FieldSpec{
		Key:      KeyPhoneNumber,
		Label:    "Phone number",
		Required: true,
		Synonyms: []string{"SỐ ĐIỆN THOẠI", "PHONE", "PHONE NUMBER"},
		Clean:    StripSpaces,
		Validate: ValidPhone,
	},
	FieldSpec{
		Key:      KeySalutation,
		Label:    "Salutation",
		Synonyms: []string{"NGƯỜI LIÊN HỆ", "SALUTATION"},
	},
)

// CustomerSchema returns the customer-contact schema: full_name and
// phone_number required, salutation optional.
func CustomerSchema() *Schema {
	return customerSchema
}

// ValidPhone reports whether s has the shape of a phone number once all
// whitespace has been removed.
func ValidPhone(s string) bool {
	return phoneRegex.MatchString(StripSpaces(s))
}

// StripSpaces removes every whitespace rune from s.
func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
