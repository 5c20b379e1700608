package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "request body too large", err: errors.New("http: request body too large"), wantCode: "FILE001"},
		{name: "no file provided", err: errors.New("no file provided"), wantCode: "FILE002"},
		{name: "limiter busy", err: ErrTooManyImports, wantCode: "UPL001"},
		{name: "wrapped cancellation", err: fmt.Errorf("import abc: %w", context.Canceled), wantCode: "UPL002"},
		{name: "wrapped deadline", err: fmt.Errorf("import abc: %w", context.DeadlineExceeded), wantCode: "UPL003"},
		{name: "import not found", err: errors.New("import not found"), wantCode: "UPL004"},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"), wantCode: "DB001"},
		{name: "duplicate key", err: errors.New("ERROR: duplicate key value violates unique constraint \"contact_imports_pkey\""), wantCode: "DB002"},
		{name: "header error", err: &HeaderError{Missing: []string{"phone_number"}}, wantCode: "IMP001"},
		{name: "case insensitive", err: errors.New("CONNECTION REFUSED"), wantCode: "DB001"},
		{name: "unknown error", err: errors.New("something odd happened"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestMapReason_ImportReasons(t *testing.T) {
	tests := []struct {
		reason   string
		wantCode string
	}{
		{"file too large: 20971520 bytes exceeds the 10485760 byte limit", "FILE001"},
		{"spreadsheet: unsupported format: not an xlsx workbook", "FILE003"},
		{"spreadsheet: corrupt: zip: not a valid zip file", "FILE003"},
		{"text: corrupt: binary content is not delimited text", "FILE003"},
		{"spreadsheet: empty workbook: file is empty", "FILE004"},
		{"text: empty file", "FILE004"},
		{"text: no data rows: only a header line is present", "FILE004"},
		{"missing header: phone_number", "IMP001"},
		{"no valid rows found", "IMP002"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			if got := MapReason(tt.reason); got.Code != tt.wantCode {
				t.Errorf("MapReason(%q) code = %q, want %q", tt.reason, got.Code, tt.wantCode)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(ErrTooManyImports)
	want := "The system is busy with other uploads (Code: UPL001). Please wait a moment and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	if IsUserFacing(nil) {
		t.Error("IsUserFacing(nil) = true, want false")
	}
	if !IsUserFacing(ErrTooManyImports) {
		t.Error("IsUserFacing(ErrTooManyImports) = false, want true")
	}
	if IsUserFacing(errors.New("segfault in module 7")) {
		t.Error("IsUserFacing(unknown) = true, want false")
	}
}

func TestErrorPatterns_HaveCodes(t *testing.T) {
	for _, ep := range errorPatterns {
		if ep.msg.Code == "" || ep.msg.Message == "" {
			t.Errorf("pattern %q has an incomplete message: %+v", ep.pattern, ep.msg)
		}
	}
}
