package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/contactimport/internal/logging"
	"github.com/JonMunkholm/contactimport/internal/store"
	"github.com/go-chi/chi/v5"
)

// HistoryResponse is the body of GET /api/imports.
type HistoryResponse struct {
	Imports []store.ImportSummary `json:"imports" msgpack:"imports"`
	Limit   int                   `json:"limit" msgpack:"limit"`
	Offset  int                   `json:"offset" msgpack:"offset"`
}

// parseIntParam reads a non-negative integer query parameter.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// handleListImports returns stored imports, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, r, errStorageDisabled, http.StatusServiceUnavailable)
		return
	}

	limit := store.ClampLimit(parseIntParam(r, "limit", store.DefaultHistoryLimit))
	offset := parseIntParam(r, "offset", 0)

	entries, err := s.store.ListImports(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	respond(w, r, http.StatusOK, HistoryResponse{
		Imports: entries,
		Limit:   limit,
		Offset:  offset,
	})
}

// handleDeleteImport removes a stored import and its contacts.
func (s *Server) handleDeleteImport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, r, errStorageDisabled, http.StatusServiceUnavailable)
		return
	}

	importID := chi.URLParam(r, "importID")
	result, err := s.store.DeleteImport(r.Context(), importID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	logging.FromContext(r.Context()).Info("import deleted",
		"import_id", result.ImportID,
		"contacts_deleted", result.ContactsDeleted,
	)
	respond(w, r, http.StatusOK, result)
}
