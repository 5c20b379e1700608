package core

// error_messages.go maps technical errors to user-facing messages with a
// support code. Import outcomes carry their own reasons verbatim; this
// catalogue covers the errors raised around an import (request handling,
// limiter, persistence).
//
// Codes:
//
//	FILE001 file too large        FILE002 no file provided
//	FILE003 unreadable workbook   FILE004 empty file
//	IMP001  missing header        IMP002  no valid rows
//	UPL001  too many uploads      UPL002  request cancelled
//	UPL003  request timeout       UPL004  import not found
//	DB001   storage unavailable   DB002   duplicate import
//	AUTH001 missing API key       RATE001 rate limited
//	ERR000  anything else
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// File errors
	{"file too large", UserMessage{"The file is larger than the upload limit", "Split the contact list into smaller files", "FILE001"}},
	{"request body too large", UserMessage{"The file is larger than the upload limit", "Split the contact list into smaller files", "FILE001"}},
	{"no file provided", UserMessage{"No file was selected", "Choose a spreadsheet or CSV file to upload", "FILE002"}},
	{"unsupported format", UserMessage{"The file is not a readable spreadsheet", "Save the file as .xlsx or as CSV UTF-8", "FILE003"}},
	{"corrupt", UserMessage{"The file appears to be damaged", "Re-export the file and upload it again", "FILE003"}},
	{"empty workbook", UserMessage{"The file contains no contacts", "Add at least one contact below the header row", "FILE004"}},
	{"empty file", UserMessage{"The file contains no contacts", "Add at least one contact below the header row", "FILE004"}},
	{"no data rows", UserMessage{"The file contains no contacts", "Add at least one contact below the header row", "FILE004"}},

	// Import errors
	{"missing header", UserMessage{"A required column is missing", "Use the column names from the template file", "IMP001"}},
	{"missing required columns", UserMessage{"A required column is missing", "Use the column names from the template file", "IMP001"}},
	{"no valid rows", UserMessage{"No row in the file is a valid contact", "Check names and phone numbers against the template", "IMP002"}},

	// Upload errors
	{"too many concurrent uploads", UserMessage{"The system is busy with other uploads", "Please wait a moment and try again", "UPL001"}},
	{"context canceled", UserMessage{"Request was cancelled", "Please try again", "UPL002"}},
	{"context deadline exceeded", UserMessage{"Request timed out", "Try a smaller file or check your connection", "UPL003"}},
	{"import not found", UserMessage{"Import not found", "The import may have been removed. Upload the file again", "UPL004"}},

	// Storage errors
	{"storage disabled", UserMessage{"Saved imports are not available on this server", "Contact your administrator", "DB001"}},
	{"connection refused", UserMessage{"Unable to reach the database", "Please try again in a few moments", "DB001"}},
	{"duplicate key", UserMessage{"This import was already saved", "Refresh the page to see it", "DB002"}},

	// Access errors
	{"missing api key", UserMessage{"Authentication required", "Provide an API key", "AUTH001"}},
	{"rate limit", UserMessage{"Too many requests", "Please wait a moment before trying again", "RATE001"}},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Returns the ERR000 fallback when no pattern matches.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	return MapReason(err.Error())
}

// MapReason maps a failure reason string the same way MapError maps errors.
func MapReason(reason string) UserMessage {
	lower := strings.ToLower(reason)
	for _, ep := range errorPatterns {
		if strings.Contains(lower, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError formats an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
