// Package store persists import results in PostgreSQL.
//
// An import is written as one contact_imports row plus its accepted records
// in contacts, inside a single transaction. Records are bulk-loaded with
// COPY. Failure outcomes are never stored: they contain no records and are
// reported directly to the caller.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/contactimport/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

var (
	// ErrNotFound is returned when no import has the requested ID.
	ErrNotFound = errors.New("import not found")

	// ErrFailureOutcome is returned when asked to save a failed import.
	ErrFailureOutcome = errors.New("failed imports are not stored")
)

// DBTX is the subset of *pgxpool.Pool the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store reads and writes imports.
type Store struct {
	db DBTX
}

// New creates a Store on db.
func New(db DBTX) *Store {
	return &Store{db: db}
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS contact_imports (
	id            UUID PRIMARY KEY,
	file_name     TEXT NOT NULL,
	size_bytes    BIGINT NOT NULL,
	kind          TEXT NOT NULL,
	source_format TEXT NOT NULL,
	data_rows     INTEGER NOT NULL,
	record_count  INTEGER NOT NULL,
	row_errors    JSONB NOT NULL DEFAULT '[]',
	warnings      TEXT[] NOT NULL DEFAULT '{}',
	imported_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS contacts (
	import_id    UUID NOT NULL REFERENCES contact_imports(id) ON DELETE CASCADE,
	position     INTEGER NOT NULL,
	phone_number TEXT NOT NULL,
	full_name    TEXT NOT NULL,
	salutation   TEXT,
	PRIMARY KEY (import_id, position)
);
`

// contactColumns is the COPY column order; contactRows must match it.
var contactColumns = []string{"import_id", "position", "phone_number", "full_name", "salutation"}

// EnsureSchema creates the import tables when they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveImport stores result and its records atomically.
func (s *Store) SaveImport(ctx context.Context, result *core.ImportResult) error {
	if result.Outcome.IsFailure() {
		return ErrFailureOutcome
	}

	id := core.ToPgUUID(result.ID)
	if !id.Valid {
		return fmt.Errorf("save import: invalid id %q", result.ID)
	}

	rowErrors, err := json.Marshal(nonNilErrors(result.Outcome.Errors))
	if err != nil {
		return fmt.Errorf("save import: encode row errors: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("save import: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	_, err = tx.Exec(ctx, `
		INSERT INTO contact_imports
			(id, file_name, size_bytes, kind, source_format, data_rows, record_count, row_errors, warnings, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id,
		result.FileName,
		result.Size,
		string(result.Outcome.Kind),
		string(result.Outcome.SourceFormat),
		result.DataRows,
		len(result.Outcome.Records),
		rowErrors,
		nonNilStrings(result.Outcome.Warnings),
		result.ImportedAt,
	)
	if err != nil {
		return fmt.Errorf("save import: insert import: %w", err)
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"contacts"},
		contactColumns,
		pgx.CopyFromRows(contactRows(id, result.Outcome.Records)),
	)
	if err != nil {
		return fmt.Errorf("save import: copy contacts: %w", err)
	}
	if int(copied) != len(result.Outcome.Records) {
		return fmt.Errorf("save import: copied %d of %d contacts", copied, len(result.Outcome.Records))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("save import: commit: %w", err)
	}
	return nil
}

// GetImport loads a stored import by ID.
func (s *Store) GetImport(ctx context.Context, id string) (*core.ImportResult, error) {
	pgID := core.ToPgUUID(id)
	if !pgID.Valid {
		return nil, ErrNotFound
	}

	var (
		result     core.ImportResult
		storedID   pgtype.UUID
		kind       string
		format     string
		rowErrors  []byte
		warnings   []string
		importedAt time.Time
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, file_name, size_bytes, kind, source_format, data_rows, row_errors, warnings, imported_at
		FROM contact_imports
		WHERE id = $1`, pgID,
	).Scan(&storedID, &result.FileName, &result.Size, &kind, &format, &result.DataRows, &rowErrors, &warnings, &importedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import %s: %w", id, err)
	}

	result.ID = core.PgUUIDToString(storedID)
	result.ImportedAt = importedAt.UTC()
	result.Outcome.Kind = core.OutcomeKind(kind)
	result.Outcome.SourceFormat = core.SourceFormat(format)
	if len(warnings) > 0 {
		result.Outcome.Warnings = warnings
	}
	if err := json.Unmarshal(rowErrors, &result.Outcome.Errors); err != nil {
		return nil, fmt.Errorf("get import %s: decode row errors: %w", id, err)
	}
	if len(result.Outcome.Errors) == 0 {
		result.Outcome.Errors = nil
	}

	records, err := s.listContacts(ctx, pgID)
	if err != nil {
		return nil, fmt.Errorf("get import %s: %w", id, err)
	}
	result.Outcome.Records = records

	return &result, nil
}

func (s *Store) listContacts(ctx context.Context, importID pgtype.UUID) ([]core.ValidatedRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT phone_number, full_name, salutation
		FROM contacts
		WHERE import_id = $1
		ORDER BY position`, importID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var records []core.ValidatedRecord
	for rows.Next() {
		var (
			rec        core.ValidatedRecord
			salutation pgtype.Text
		)
		if err := rows.Scan(&rec.PhoneNumber, &rec.FullName, &salutation); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		if salutation.Valid {
			v := salutation.String
			rec.Salutation = &v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return records, nil
}

// contactRows converts records to COPY rows in contactColumns order.
// Position is the record's index, preserving source order.
func contactRows(importID pgtype.UUID, records []core.ValidatedRecord) [][]any {
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{
			importID,
			int32(i),
			rec.PhoneNumber,
			rec.FullName,
			core.ToPgTextPtr(rec.Salutation),
		}
	}
	return rows
}

func nonNilErrors(errs []core.RowError) []core.RowError {
	if errs == nil {
		return []core.RowError{}
	}
	return errs
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
