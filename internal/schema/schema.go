// Package schema defines the canonical customer-contact fields an import must
// resolve, and the header labels accepted for each of them.
//
// The reference template spreadsheet handed to users carries exactly the
// labels listed first in each synonym set below. Keep the two in sync.
package schema

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonical field keys.
const (
	KeyFullName    = "full_name"
	KeyPhoneNumber = "phone_number"
	KeySalutation  = "salutation"
)

// FieldSpec defines one canonical field and the header labels that map to it.
type FieldSpec struct {
	Key      string              // Stable identifier, e.g. "full_name"
	Label    string              // Display name used in messages and templates
	Required bool                // Column must be present and non-empty in every row
	Synonyms []string            // Accepted header labels (matched after NormalizeLabel)
	Validate func(string) bool   // Optional predicate applied to non-empty values
	Clean    func(string) string // Optional normalization applied before Validate
}

// Matches reports whether a raw header label is one of the field's synonyms.
func (f FieldSpec) Matches(label string) bool {
	n := NormalizeLabel(label)
	if n == "" {
		return false
	}
	for _, s := range f.Synonyms {
		if NormalizeLabel(s) == n {
			return true
		}
	}
	return false
}

// Schema is an ordered set of FieldSpecs. Declaration order is the tie-break
// order used by header resolution.
type Schema struct {
	fields []FieldSpec
}

// NewSchema builds a Schema and rejects duplicate keys and any header label
// claimed by more than one field.
func NewSchema(fields ...FieldSpec) (*Schema, error) {
	keys := make(map[string]bool, len(fields))
	owners := make(map[string]string)

	for _, f := range fields {
		if f.Key == "" {
			return nil, fmt.Errorf("schema: field with empty key")
		}
		if keys[f.Key] {
			return nil, fmt.Errorf("schema: duplicate field key %q", f.Key)
		}
		keys[f.Key] = true

		for _, s := range f.Synonyms {
			n := NormalizeLabel(s)
			if n == "" {
				continue
			}
			if owner, ok := owners[n]; ok && owner != f.Key {
				return nil, fmt.Errorf("schema: header label %q is ambiguous between %q and %q", s, owner, f.Key)
			}
			owners[n] = f.Key
		}
	}

	out := make([]FieldSpec, len(fields))
	copy(out, fields)
	return &Schema{fields: out}, nil
}

// MustSchema is like NewSchema but panics on error.
// Use it only for package-level schema declarations.
func MustSchema(fields ...FieldSpec) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns a copy of the field specs in declaration order.
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field returns the spec with the given key.
func (s *Schema) Field(key string) (FieldSpec, bool) {
	for _, f := range s.fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Required returns the keys of all required fields in declaration order.
func (s *Schema) Required() []string {
	var keys []string
	for _, f := range s.fields {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// NormalizeLabel canonicalizes a header label for comparison: Unicode NFC,
// surrounding whitespace trimmed, inner whitespace runs collapsed to a single
// space, uppercased.
//
// NFC matters for Vietnamese labels: workbooks saved on macOS frequently carry
// decomposed diacritics that would otherwise never match.
func NormalizeLabel(label string) string {
	label = norm.NFC.String(label)
	label = strings.TrimPrefix(label, "\ufeff")
	return strings.ToUpper(strings.Join(strings.Fields(label), " "))
}
