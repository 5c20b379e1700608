package core

import "fmt"

// SourceFormat names the parser that produced the rows of an import.
type SourceFormat string

const (
	FormatSpreadsheet SourceFormat = "spreadsheet"
	FormatText        SourceFormat = "text"
)

// ImportRequest is one uploaded file. Data is never modified by the pipeline.
type ImportRequest struct {
	Data     []byte
	FileName string
	Size     int64
}

// NewImportRequest builds a request whose declared size is the buffer length.
func NewImportRequest(fileName string, data []byte) ImportRequest {
	return ImportRequest{Data: data, FileName: fileName, Size: int64(len(data))}
}

// RawRow is one parsed row of string cells.
// Line is the 1-based row number in the source file (header is line 1 when
// it is the first row).
type RawRow struct {
	Line  int
	Cells []string
}

// Cell returns the cell at index i, or "" when the row is shorter.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// IsBlank reports whether every cell is empty or whitespace.
func (r RawRow) IsBlank() bool {
	for _, c := range r.Cells {
		if CleanCell(c) != "" {
			return false
		}
	}
	return true
}

// ValidatedRecord is a contact that passed every field rule.
type ValidatedRecord struct {
	PhoneNumber string  `json:"phone_number" yaml:"phone_number" msgpack:"phone_number"`
	FullName    string  `json:"full_name" yaml:"full_name" msgpack:"full_name"`
	Salutation  *string `json:"salutation,omitempty" yaml:"salutation,omitempty" msgpack:"salutation,omitempty"`
}

// RowError lists every rule a data row broke.
// Row is the 1-based position among data rows; Line is the source line.
type RowError struct {
	Row     int      `json:"row" yaml:"row" msgpack:"row"`
	Line    int      `json:"line" yaml:"line" msgpack:"line"`
	Reasons []string `json:"reasons" yaml:"reasons" msgpack:"reasons"`
}

func (e RowError) String() string {
	return fmt.Sprintf("row %d: %s", e.Row, joinReasons(e.Reasons))
}

// OutcomeKind tags an ImportOutcome.
type OutcomeKind string

const (
	OutcomeFailure        OutcomeKind = "failure"
	OutcomePartialSuccess OutcomeKind = "partial_success"
	OutcomeSuccess        OutcomeKind = "success"
)

// ImportOutcome is the single result of an import.
//
//   - Failure: Reasons is non-empty; Records, Errors and SourceFormat are empty.
//   - PartialSuccess: at least one record and at least one row error.
//   - Success: at least one record and no row errors.
//
// Warnings never affect the classification.
type ImportOutcome struct {
	Kind         OutcomeKind       `json:"kind" yaml:"kind" msgpack:"kind"`
	Reasons      []string          `json:"reasons,omitempty" yaml:"reasons,omitempty" msgpack:"reasons,omitempty"`
	Records      []ValidatedRecord `json:"records,omitempty" yaml:"records,omitempty" msgpack:"records,omitempty"`
	Errors       []RowError        `json:"errors,omitempty" yaml:"errors,omitempty" msgpack:"errors,omitempty"`
	Warnings     []string          `json:"warnings,omitempty" yaml:"warnings,omitempty" msgpack:"warnings,omitempty"`
	SourceFormat SourceFormat      `json:"source_format_used,omitempty" yaml:"source_format_used,omitempty" msgpack:"source_format_used,omitempty"`
}

// Failure builds a failed outcome.
func Failure(reasons ...string) ImportOutcome {
	return ImportOutcome{Kind: OutcomeFailure, Reasons: reasons}
}

// Classify builds the outcome for a completed validation pass:
// no records is a failure, records plus row errors a partial success,
// records alone a success.
func Classify(format SourceFormat, records []ValidatedRecord, rowErrors []RowError, warnings []string) ImportOutcome {
	if len(records) == 0 {
		reasons := []string{"no valid rows found"}
		for _, e := range rowErrors {
			reasons = append(reasons, e.String())
		}
		return Failure(reasons...)
	}

	kind := OutcomeSuccess
	if len(rowErrors) > 0 {
		kind = OutcomePartialSuccess
	}

	return ImportOutcome{
		Kind:         kind,
		Records:      records,
		Errors:       rowErrors,
		Warnings:     warnings,
		SourceFormat: format,
	}
}

// IsFailure reports whether the import produced no usable records.
func (o ImportOutcome) IsFailure() bool {
	return o.Kind == OutcomeFailure
}

// ErrorPreview returns the first n row errors formatted for display.
// A non-positive n returns all of them.
func (o ImportOutcome) ErrorPreview(n int) []string {
	errs := o.Errors
	if n > 0 && len(errs) > n {
		errs = errs[:n]
	}
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.String()
	}
	return out
}

// Summary returns a one-line description of the outcome.
func (o ImportOutcome) Summary() string {
	switch o.Kind {
	case OutcomeSuccess:
		return fmt.Sprintf("imported %d contacts from %s", len(o.Records), o.SourceFormat)
	case OutcomePartialSuccess:
		return fmt.Sprintf("imported %d contacts from %s, %d rows rejected", len(o.Records), o.SourceFormat, len(o.Errors))
	default:
		return fmt.Sprintf("import failed: %s", joinReasons(o.Reasons))
	}
}
