package core

// validation.go provides row-level validation of parsed contact rows.
//
// Validation happens at two levels:
//  1. Header validation: ResolveHeaders ensures required columns are present
//  2. Row validation: each cell is checked against its FieldSpec
//
// Every field of a row is checked even after the first failure, so a
// RowError lists all problems at once. A row with any failure never yields
// a partial record.

import (
	"fmt"

	"github.com/JonMunkholm/contactimport/internal/schema"
)

// RowValidator validates rows against a schema and a resolved header mapping.
type RowValidator struct {
	schema  *schema.Schema
	mapping HeaderMapping
}

// NewRowValidator creates a validator for the given schema and header mapping.
func NewRowValidator(s *schema.Schema, mapping HeaderMapping) *RowValidator {
	return &RowValidator{
		schema:  s,
		mapping: mapping,
	}
}

// ValidateRow checks one data row. rowNumber is the 1-based data-row ordinal
// reported in the RowError.
func (v *RowValidator) ValidateRow(row RawRow, rowNumber int) (ValidatedRecord, *RowError) {
	values := make(map[string]string, v.schema.Len())
	var reasons []string

	for _, field := range v.schema.Fields() {
		value := ""
		if pos, ok := v.mapping.Index(field.Key); ok {
			value = CleanCell(row.Cell(pos))
		}

		if value == "" {
			if field.Required {
				reasons = append(reasons, "missing "+field.Key)
			}
			continue
		}

		if field.Clean != nil {
			value = field.Clean(value)
		}

		if field.Validate != nil && !field.Validate(value) {
			reasons = append(reasons, "invalid "+field.Key)
			continue
		}

		values[field.Key] = value
	}

	if len(reasons) > 0 {
		return ValidatedRecord{}, &RowError{
			Row:     rowNumber,
			Line:    row.Line,
			Reasons: reasons,
		}
	}

	return buildRecord(values), nil
}

// buildRecord assembles a record from validated field values.
func buildRecord(values map[string]string) ValidatedRecord {
	rec := ValidatedRecord{
		PhoneNumber: values[schema.KeyPhoneNumber],
		FullName:    values[schema.KeyFullName],
	}
	if s, ok := values[schema.KeySalutation]; ok {
		rec.Salutation = &s
	}
	return rec
}

// columnCountWarnings flags text rows wider than the header.
// The text format has no quoting, so a comma inside a value splits it.
// Shorter rows are only missing trailing values and pass silently.
func columnCountWarnings(header RawRow, rows []RawRow) []string {
	var warnings []string
	for _, row := range rows {
		if row.IsBlank() || len(row.Cells) <= len(header.Cells) {
			continue
		}
		warnings = append(warnings, fmt.Sprintf(
			"line %d: %d columns but header has %d; values containing commas are not supported in text files",
			row.Line, len(row.Cells), len(header.Cells),
		))
	}
	return warnings
}
