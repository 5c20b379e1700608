package store

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/contactimport/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
)

// Listing bounds for ListImports.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 500
)

// ImportSummary is one stored import without its records.
type ImportSummary struct {
	ID           string            `json:"id" msgpack:"id"`
	FileName     string            `json:"file_name" msgpack:"file_name"`
	Size         int64             `json:"size" msgpack:"size"`
	Kind         core.OutcomeKind  `json:"kind" msgpack:"kind"`
	SourceFormat core.SourceFormat `json:"source_format_used" msgpack:"source_format_used"`
	DataRows     int               `json:"data_rows" msgpack:"data_rows"`
	RecordCount  int               `json:"record_count" msgpack:"record_count"`
	ImportedAt   time.Time         `json:"imported_at" msgpack:"imported_at"`
}

// DeleteResult reports what DeleteImport removed.
type DeleteResult struct {
	ImportID        string `json:"import_id" msgpack:"import_id"`
	ContactsDeleted int64  `json:"contacts_deleted" msgpack:"contacts_deleted"`
}

// ListImports returns stored imports, newest first.
func (s *Store) ListImports(ctx context.Context, limit, offset int) ([]ImportSummary, error) {
	limit = ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, file_name, size_bytes, kind, source_format, data_rows, record_count, imported_at
		FROM contact_imports
		ORDER BY imported_at DESC, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()

	entries := make([]ImportSummary, 0, limit)
	for rows.Next() {
		var (
			e      ImportSummary
			id     pgtype.UUID
			kind   string
			format string
		)
		if err := rows.Scan(&id, &e.FileName, &e.Size, &kind, &format, &e.DataRows, &e.RecordCount, &e.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		e.ID = core.PgUUIDToString(id)
		e.Kind = core.OutcomeKind(kind)
		e.SourceFormat = core.SourceFormat(format)
		e.ImportedAt = e.ImportedAt.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}

	return entries, nil
}

// DeleteImport removes a stored import and all of its contacts.
func (s *Store) DeleteImport(ctx context.Context, id string) (DeleteResult, error) {
	result := DeleteResult{ImportID: id}

	pgID := core.ToPgUUID(id)
	if !pgID.Valid {
		return result, ErrNotFound
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("delete import: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	tag, err := tx.Exec(ctx, `DELETE FROM contacts WHERE import_id = $1`, pgID)
	if err != nil {
		return result, fmt.Errorf("delete import: delete contacts: %w", err)
	}
	result.ContactsDeleted = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `DELETE FROM contact_imports WHERE id = $1`, pgID)
	if err != nil {
		return result, fmt.Errorf("delete import: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return DeleteResult{ImportID: id}, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("delete import: commit: %w", err)
	}
	return result, nil
}

// ClampLimit bounds a page size to (0, MaxHistoryLimit], using
// DefaultHistoryLimit when none is given.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		return MaxHistoryLimit
	default:
		return limit
	}
}
