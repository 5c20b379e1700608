package core

// importer.go drives the two-tier import strategy:
//
//	spreadsheet parser --ok--> header resolution --> row validation --> outcome
//	       |
//	   ParseError
//	       v
//	text parser --ok--> header resolution --> row validation --> outcome
//	       |
//	   ParseError --> Failure{spreadsheet reason, text reason}
//
// Each parser is attempted at most once per call. A header that fails to
// resolve is terminal: the other parser is only tried when parsing itself
// failed. Every expected failure is returned as an ImportOutcome.

import (
	"errors"

	"github.com/JonMunkholm/contactimport/internal/schema"
)

// Parser turns raw bytes into rows, header first.
type Parser func(data []byte) ([]RawRow, error)

// Attempt records one parser run of an import.
type Attempt struct {
	Format SourceFormat
	Err    error // nil when the parser produced rows
}

// Report is an ImportOutcome plus the parser attempts that led to it.
type Report struct {
	Outcome  ImportOutcome
	Attempts []Attempt
	DataRows int
}

// Importer runs the import pipeline. The zero value is not usable; create
// one with NewImporter. An Importer holds no per-import state and is safe
// for concurrent use.
type Importer struct {
	schema      *schema.Schema
	spreadsheet Parser
	text        Parser
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithSchema overrides the customer schema.
func WithSchema(s *schema.Schema) ImporterOption {
	return func(im *Importer) { im.schema = s }
}

// WithParsers overrides the spreadsheet and text parsers.
func WithParsers(spreadsheet, text Parser) ImporterOption {
	return func(im *Importer) {
		im.spreadsheet = spreadsheet
		im.text = text
	}
}

// WithSpreadsheetParser overrides only the spreadsheet parser.
func WithSpreadsheetParser(p Parser) ImporterOption {
	return func(im *Importer) { im.spreadsheet = p }
}

// NewImporter creates an Importer for the customer schema.
func NewImporter(opts ...ImporterOption) *Importer {
	im := &Importer{
		schema:      schema.CustomerSchema(),
		spreadsheet: ParseSpreadsheet,
		text:        ParseDelimitedText,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportCustomers runs the pipeline on req with an Importer built from opts.
func ImportCustomers(req ImportRequest, opts ...ImporterOption) ImportOutcome {
	return NewImporter(opts...).Import(req)
}

// Import returns the outcome for req.
func (im *Importer) Import(req ImportRequest) ImportOutcome {
	return im.Run(req).Outcome
}

// Run executes the pipeline and reports which parsers were attempted.
func (im *Importer) Run(req ImportRequest) Report {
	var report Report

	format := FormatSpreadsheet
	rows, err := im.spreadsheet(req.Data)
	report.Attempts = append(report.Attempts, Attempt{Format: FormatSpreadsheet, Err: err})

	if err != nil {
		sheetErr := err
		format = FormatText
		rows, err = im.text(req.Data)
		report.Attempts = append(report.Attempts, Attempt{Format: FormatText, Err: err})
		if err != nil {
			report.Outcome = Failure(sheetErr.Error(), err.Error())
			return report
		}
	}

	if len(rows) == 0 {
		report.Outcome = Failure(newParseError(format, KindEmptyFile, "").Error())
		return report
	}
	header, data := rows[0], rows[1:]

	mapping, err := ResolveHeaders(header, im.schema)
	if err != nil {
		var he *HeaderError
		if errors.As(err, &he) {
			report.Outcome = Failure(he.Reasons()...)
		} else {
			report.Outcome = Failure(err.Error())
		}
		return report
	}

	validator := NewRowValidator(im.schema, mapping)

	var (
		records   []ValidatedRecord
		rowErrors []RowError
		ordinal   int
	)
	for _, row := range data {
		if row.IsBlank() {
			continue
		}
		ordinal++

		rec, rowErr := validator.ValidateRow(row, ordinal)
		if rowErr != nil {
			rowErrors = append(rowErrors, *rowErr)
			continue
		}
		records = append(records, rec)
	}
	report.DataRows = ordinal

	var warnings []string
	if format == FormatText {
		warnings = columnCountWarnings(header, data)
	}

	report.Outcome = Classify(format, records, rowErrors, warnings)
	return report
}
