// Package core provides the business logic for contact-list imports.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the CLI and tests without
// modification.
//
// # Pipeline
//
// [ImportCustomers] turns one uploaded file into an [ImportOutcome]:
//
//  1. [ParseSpreadsheet] reads the first worksheet of an .xlsx workbook
//  2. If that fails, [ParseDelimitedText] reads the bytes as comma-separated text
//  3. [ResolveHeaders] maps header labels to the fields of the customer schema
//  4. [RowValidator] checks every data row and collects all of its problems
//  5. [Classify] decides between success, partial success and failure
//
// Each parser runs at most once per import. A header that cannot be resolved
// ends the import; it is not retried with the other parser.
//
// # Outcomes
//
// Bad input is never a Go error. Unreadable files, missing columns and
// invalid rows all come back as an ImportOutcome carrying human-readable
// reasons:
//
//	out := core.ImportCustomers(core.NewImportRequest("contacts.xlsx", data))
//	switch out.Kind {
//	case core.OutcomeSuccess, core.OutcomePartialSuccess:
//	    save(out.Records)
//	case core.OutcomeFailure:
//	    report(out.Reasons)
//	}
//
// # Service
//
// [Service] wraps the pipeline for servers: a file size ceiling, a bounded
// number of concurrent imports ([UploadLimiter]), a per-import timeout and
// structured logging. It returns an error only when the import could not run.
//
// # Error Handling
//
// Errors raised around an import are mapped to user-friendly messages using
// [MapError]. Each category has a code for support reference:
//
//   - FILE001-FILE004: File errors (size, missing, format, empty)
//   - IMP001-IMP002: Import errors (missing columns, no valid rows)
//   - UPL001-UPL004: Upload errors (busy, cancelled, timeout, not found)
//   - DB001-DB002: Storage errors
package core
