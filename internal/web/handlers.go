package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/contactimport/internal/core"
	"github.com/JonMunkholm/contactimport/internal/logging"
	"github.com/JonMunkholm/contactimport/internal/store"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is the body allowance on top of the file size ceiling
// for multipart boundaries and headers.
const multipartOverhead = 1 << 20

// multipartMemory is how much of a multipart form is kept in memory.
const multipartMemory = 32 << 20

var (
	errNoFile          = errors.New("no file provided")
	errStorageDisabled = errors.New("storage disabled: DATABASE_URL is not set")
	errRequestTooLarge = errors.New("request body too large")
)

// ImportResponse is the body of POST /api/imports and GET /api/imports/{id}.
type ImportResponse struct {
	Import       *core.ImportResult `json:"import" msgpack:"import"`
	Summary      string             `json:"summary" msgpack:"summary"`
	ErrorPreview []string           `json:"error_preview,omitempty" msgpack:"error_preview,omitempty"`
	Stored       bool               `json:"stored" msgpack:"stored"`
}

// FieldResponse describes one schema field for GET /api/schema.
type FieldResponse struct {
	Key      string   `json:"key" msgpack:"key"`
	Label    string   `json:"label" msgpack:"label"`
	Required bool     `json:"required" msgpack:"required"`
	Synonyms []string `json:"synonyms" msgpack:"synonyms"`
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status  string                   `json:"status" msgpack:"status"`
	Storage bool                     `json:"storage" msgpack:"storage"`
	Imports core.UploadLimiterStatus `json:"imports" msgpack:"imports"`
}

// handleImport runs the import pipeline on the uploaded "file" part.
// Failed imports return 422 with every reason; accepted imports are stored
// when persistence is enabled.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.service.MaxFileSize()+multipartOverhead)

	req, err := readUpload(r)
	if err != nil {
		respondError(w, r, err, uploadErrorStatus(err))
		return
	}

	result, err := s.service.ImportCustomers(r.Context(), req)
	if err != nil {
		respondError(w, r, err, serviceErrorStatus(err))
		return
	}

	resp := s.importResponse(result)

	if result.Outcome.IsFailure() {
		respond(w, r, http.StatusUnprocessableEntity, resp)
		return
	}

	if s.store != nil {
		if err := s.store.SaveImport(r.Context(), result); err != nil {
			respondError(w, r, fmt.Errorf("save import %s: %w", result.ID, err), http.StatusInternalServerError)
			return
		}
		resp.Stored = true
	}

	respond(w, r, http.StatusOK, resp)
}

// handleGetImport returns a stored import.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, r, errStorageDisabled, http.StatusServiceUnavailable)
		return
	}

	importID := chi.URLParam(r, "importID")
	result, err := s.store.GetImport(r.Context(), importID)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, r, err, http.StatusNotFound)
		return
	}
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	resp := s.importResponse(result)
	resp.Stored = true
	respond(w, r, http.StatusOK, resp)
}

// handleSchema lists the columns an import file must or may contain.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	fields := s.schema.Fields()
	out := make([]FieldResponse, len(fields))
	for i, f := range fields {
		out[i] = FieldResponse{
			Key:      f.Key,
			Label:    f.Label,
			Required: f.Required,
			Synonyms: f.Synonyms,
		}
	}
	respond(w, r, http.StatusOK, out)
}

// handleHealth reports liveness and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, HealthResponse{
		Status:  "ok",
		Storage: s.store != nil,
		Imports: s.service.LimiterStatus(),
	})
}

func (s *Server) importResponse(result *core.ImportResult) ImportResponse {
	return ImportResponse{
		Import:       result,
		Summary:      result.Outcome.Summary(),
		ErrorPreview: result.Outcome.ErrorPreview(s.cfg.Import.ErrorPreview),
	}
}

// readUpload reads the "file" form part into an ImportRequest.
func readUpload(r *http.Request) (core.ImportRequest, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			return core.ImportRequest{}, errRequestTooLarge
		}
		return core.ImportRequest{}, fmt.Errorf("%w: %v", errNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return core.ImportRequest{}, errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			return core.ImportRequest{}, errRequestTooLarge
		}
		return core.ImportRequest{}, fmt.Errorf("read upload: %w", err)
	}

	logging.FromContext(r.Context()).Debug("upload received", "file_name", header.Filename, "size", header.Size)

	return core.ImportRequest{
		Data:     data,
		FileName: header.Filename,
		Size:     header.Size,
	}, nil
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func uploadErrorStatus(err error) int {
	switch {
	case errors.Is(err, errRequestTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func serviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
