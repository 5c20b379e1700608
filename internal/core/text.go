package core

// text.go implements the delimited-text fallback parser.
//
// The parser is intentionally naive: every line is split on a single comma
// with no quote or escape handling. A value that itself contains a comma
// shifts the remaining columns of its row; the orchestrator reports such
// rows as warnings (see columnCountWarnings).

import (
	"bufio"
	"bytes"
	"strings"
)

// TextDelimiter separates cells in the delimited-text format.
const TextDelimiter = ","

// maxTextLineSize bounds a single line; larger lines fail the parse.
const maxTextLineSize = 1024 * 1024

// ParseDelimitedText parses UTF-8 comma-separated text into rows, header first.
// Blank lines are skipped but still counted for Line numbers.
func ParseDelimitedText(data []byte) ([]RawRow, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return nil, newParseError(FormatText, KindCorrupt, "binary content is not delimited text")
	}

	scanner := bufio.NewScanner(NewTextReader(bytes.NewReader(data)))
	scanner.Buffer(make([]byte, 0, 64*1024), maxTextLineSize)

	var rows []RawRow
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		rows = append(rows, RawRow{
			Line:  line,
			Cells: strings.Split(text, TextDelimiter),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, newParseError(FormatText, KindCorrupt, "read line %d: %v", line+1, err)
	}

	if len(rows) == 0 {
		return nil, newParseError(FormatText, KindEmptyFile, "")
	}
	if len(rows) == 1 {
		return nil, newParseError(FormatText, KindNoDataRows, "only a header line is present")
	}

	return rows, nil
}
