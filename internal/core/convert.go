package core

// convert.go provides cell cleanup and the type conversions used when
// records are handed to PostgreSQL.
//
// Spreadsheet exports carry a few recurring artifacts:
//   - Excel formula prefixes (="0901234567") used to keep leading zeros
//   - Surrounding quotes left by naive CSV writers
//   - Large integers rendered in scientific notation (9.01234567E+08)
//
// The ToPg* helpers return pgtype values with Valid=false for empty input,
// letting the database store NULL.

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// scientificRegex matches numbers written in exponent form.
var scientificRegex = regexp.MustCompile(`^[+-]?\d+(\.\d+)?[eE][+-]?\d+$`)

// maxExactInteger is the largest magnitude a float64 holds without losing digits.
const maxExactInteger = 1 << 53

// CleanCell removes common export artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)

	return strings.TrimSpace(s)
}

// NormalizeNumericCell rewrites integral numbers shown in exponent form as
// plain digits ("9.01234567E+08" -> "901234567"). Anything else is returned
// unchanged.
func NormalizeNumericCell(s string) string {
	t := strings.TrimSpace(s)
	if !scientificRegex.MatchString(t) {
		return s
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil {
		return s
	}
	if f != float64(int64(f)) || f > maxExactInteger || f < -maxExactInteger {
		return s
	}
	return strconv.FormatInt(int64(f), 10)
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToPgTextPtr converts an optional string to pgtype.Text.
func ToPgTextPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return ToPgText(*s)
}

// ToPgUUID converts a string to pgtype.UUID.
// Returns invalid if the string is empty or not a valid UUID.
func ToPgUUID(s string) pgtype.UUID {
	if s == "" {
		return pgtype.UUID{Valid: false}
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{Valid: false}
	}
	return pgtype.UUID{Bytes: parsed, Valid: true}
}

// PgUUIDToString converts a pgtype.UUID to its string representation.
// Returns empty string if the UUID is invalid.
func PgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}
