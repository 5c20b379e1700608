package core

import (
	"github.com/JonMunkholm/contactimport/internal/schema"
)

// HeaderMapping maps a field key to its column index in the parsed rows.
// Fields with no matching column are absent from the map.
type HeaderMapping map[string]int

// Index returns the column index for a field key.
func (m HeaderMapping) Index(key string) (int, bool) {
	i, ok := m[key]
	return i, ok
}

// ResolveHeaders maps header labels to schema fields regardless of column
// order, letter case, whitespace or extra columns. For each field, in schema
// order, the first column whose normalized label is one of the field's
// synonyms wins; a column already claimed by an earlier field is not reused.
//
// A *HeaderError listing every unmatched required field is returned when the
// header cannot support row validation.
func ResolveHeaders(header RawRow, s *schema.Schema) (HeaderMapping, error) {
	labels := make([]string, len(header.Cells))
	for i, c := range header.Cells {
		labels[i] = schema.NormalizeLabel(CleanCell(c))
	}

	mapping := make(HeaderMapping, s.Len())
	claimed := make(map[int]bool, len(labels))
	var missing []string

	for _, field := range s.Fields() {
		for i, label := range labels {
			if label == "" || claimed[i] {
				continue
			}
			if field.Matches(label) {
				mapping[field.Key] = i
				claimed[i] = true
				break
			}
		}

		if _, ok := mapping[field.Key]; !ok && field.Required {
			missing = append(missing, field.Key)
		}
	}

	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing}
	}
	return mapping, nil
}
