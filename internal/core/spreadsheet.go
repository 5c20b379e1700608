package core

// spreadsheet.go implements the workbook parser used as the first import
// strategy. Only Office Open XML workbooks (.xlsx, .xlsm) are read; legacy
// binary .xls files are reported as an unsupported format so the text
// fallback gets its turn.

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	zipSignature = []byte("PK\x03\x04")
	oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// unzipRatio is how far a workbook may expand past the upload ceiling
// once its zip parts are inflated.
const unzipRatio = 10

// DefaultUnzipLimit caps the inflated size of a workbook read by ParseSpreadsheet.
const DefaultUnzipLimit = unzipRatio * DefaultMaxFileSize

// UnzipLimitFor returns the inflated-size cap for a given upload ceiling.
func UnzipLimitFor(maxFileSize int64) int64 {
	if maxFileSize <= 0 {
		return DefaultUnzipLimit
	}
	return unzipRatio * maxFileSize
}

// ParseSpreadsheet reads the first worksheet of an in-memory workbook.
// The header row is included as the first RawRow. Cells are returned as
// their displayed text, so numbers and dates arrive already formatted.
func ParseSpreadsheet(data []byte) ([]RawRow, error) {
	return parseSpreadsheet(data, DefaultUnzipLimit)
}

// NewSpreadsheetParser returns a spreadsheet Parser that rejects workbooks
// inflating past unzipLimit bytes. Every part is held in memory; nothing is
// unpacked to the temp directory.
func NewSpreadsheetParser(unzipLimit int64) Parser {
	if unzipLimit <= 0 {
		unzipLimit = DefaultUnzipLimit
	}
	return func(data []byte) ([]RawRow, error) {
		return parseSpreadsheet(data, unzipLimit)
	}
}

func parseSpreadsheet(data []byte, unzipLimit int64) (rows []RawRow, err error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, newParseError(FormatSpreadsheet, KindEmptyWorkbook, "file is empty")
	}
	if bytes.HasPrefix(data, oleSignature) {
		return nil, newParseError(FormatSpreadsheet, KindUnsupportedFormat, "legacy binary workbook (.xls)")
	}
	if !bytes.HasPrefix(data, zipSignature) {
		return nil, newParseError(FormatSpreadsheet, KindUnsupportedFormat, "not an xlsx workbook")
	}

	// excelize can panic on some malformed workbook parts.
	defer func() {
		if r := recover(); r != nil {
			rows = nil
			err = newParseError(FormatSpreadsheet, KindCorrupt, "%v", r)
		}
	}()

	// Equal limits keep excelize from spilling large parts to temp files.
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{
		UnzipSizeLimit:    unzipLimit,
		UnzipXMLSizeLimit: unzipLimit,
	})
	if err != nil {
		if strings.Contains(err.Error(), "unzip size exceeds") {
			return nil, newParseError(FormatSpreadsheet, KindCorrupt, "workbook expands past the %d byte limit", unzipLimit)
		}
		return nil, &ParseError{Format: FormatSpreadsheet, Kind: KindCorrupt, Err: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, newParseError(FormatSpreadsheet, KindEmptyWorkbook, "workbook has no worksheets")
	}
	sheet := sheets[0]

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, &ParseError{
			Format: FormatSpreadsheet,
			Kind:   KindNoWorksheet,
			Err:    fmt.Errorf("read worksheet %q: %w", sheet, err),
		}
	}

	for i, row := range cells {
		raw := RawRow{Line: i + 1, Cells: make([]string, len(row))}
		for j, c := range row {
			raw.Cells[j] = NormalizeNumericCell(c)
		}
		if raw.IsBlank() {
			continue
		}
		rows = append(rows, raw)
	}

	if len(rows) <= 1 {
		return nil, newParseError(FormatSpreadsheet, KindEmptyWorkbook, "worksheet %q has no data rows", sheet)
	}

	return rows, nil
}
