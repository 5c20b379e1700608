package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/contactimport/internal/config"
	"github.com/JonMunkholm/contactimport/internal/core"
	"github.com/JonMunkholm/contactimport/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

// =============================================================================
// Helpers
// =============================================================================

const (
	contactsCSV = "TÊN KHÁCH HÀNG,SỐ ĐIỆN THOẠI,NGƯỜI LIÊN HỆ\n" +
		"Nguyễn Văn A,0901234567,Anh\n" +
		"Trần Thị B,0912345678,\n"

	partialCSV = "Full Name,Phone\n" +
		"Alice,0901234567\n" +
		"Bob,12ab\n"

	noPhoneCSV = "Full Name,Salutation\nAlice,Ms\n"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   map[string]*core.ImportResult
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string]*core.ImportResult)}
}

func (f *fakeStore) SaveImport(_ context.Context, result *core.ImportResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[result.ID] = result
	return nil
}

func (f *fakeStore) GetImport(_ context.Context, id string) (*core.ImportResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, ok := f.saved[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return result, nil
}

func (f *fakeStore) ListImports(_ context.Context, limit, offset int) ([]store.ImportSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := make([]store.ImportSummary, 0, len(f.saved))
	for _, r := range f.saved {
		entries = append(entries, store.ImportSummary{
			ID:           r.ID,
			FileName:     r.FileName,
			Size:         r.Size,
			Kind:         r.Outcome.Kind,
			SourceFormat: r.Outcome.SourceFormat,
			DataRows:     r.DataRows,
			RecordCount:  len(r.Outcome.Records),
			ImportedAt:   r.ImportedAt,
		})
	}
	if offset >= len(entries) {
		return []store.ImportSummary{}, nil
	}
	entries = entries[offset:]
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeStore) DeleteImport(_ context.Context, id string) (store.DeleteResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result, ok := f.saved[id]
	if !ok {
		return store.DeleteResult{ImportID: id}, store.ErrNotFound
	}
	delete(f.saved, id)
	return store.DeleteResult{ImportID: id, ContactsDeleted: int64(len(result.Outcome.Records))}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, ShutdownTimeout: time.Second},
		Import: config.ImportConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       10 * time.Second,
			ErrorPreview:  20,
		},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, st ImportStore) *Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewServer(ctx, cfg, core.NewService(cfg.Import), st)
}

func uploadRequest(t *testing.T, field, fileName, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeImport(t *testing.T, rec *httptest.ResponseRecorder) ImportResponse {
	t.Helper()
	var resp ImportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	require.NotNil(t, resp.Import)
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

// =============================================================================
// POST /api/imports
// =============================================================================

func TestHandleImport_Success(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, testConfig(), st)

	rec := serve(s, uploadRequest(t, "file", "contacts.csv", contactsCSV))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeImport(t, rec)
	assert.True(t, resp.Stored)
	assert.Equal(t, core.OutcomeSuccess, resp.Import.Outcome.Kind)
	assert.Equal(t, core.FormatText, resp.Import.Outcome.SourceFormat)
	assert.Equal(t, "contacts.csv", resp.Import.FileName)
	require.Len(t, resp.Import.Outcome.Records, 2)
	assert.Equal(t, "Nguyễn Văn A", resp.Import.Outcome.Records[0].FullName)
	assert.Equal(t, "imported 2 contacts from text", resp.Summary)

	assert.Contains(t, st.saved, resp.Import.ID)
}

func TestHandleImport_PartialSuccess(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, uploadRequest(t, "file", "contacts.csv", partialCSV))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeImport(t, rec)
	assert.False(t, resp.Stored, "no store configured")
	assert.Equal(t, core.OutcomePartialSuccess, resp.Import.Outcome.Kind)
	assert.Len(t, resp.Import.Outcome.Records, 1)
	assert.Equal(t, []string{"row 2: invalid phone_number"}, resp.ErrorPreview)
}

func TestHandleImport_ErrorPreviewLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Import.ErrorPreview = 1
	s := newTestServer(t, cfg, nil)

	csv := "Name,Phone\nAlice,0901234567\nBob,x\nCarol,y\n"
	rec := serve(s, uploadRequest(t, "file", "contacts.csv", csv))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeImport(t, rec)
	assert.Len(t, resp.Import.Outcome.Errors, 2)
	assert.Equal(t, []string{"row 2: invalid phone_number"}, resp.ErrorPreview)
}

func TestHandleImport_FailureIs422(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, testConfig(), st)

	rec := serve(s, uploadRequest(t, "file", "contacts.csv", noPhoneCSV))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeImport(t, rec)
	assert.Equal(t, core.OutcomeFailure, resp.Import.Outcome.Kind)
	assert.Equal(t, []string{"missing header: phone_number"}, resp.Import.Outcome.Reasons)
	assert.False(t, resp.Stored)
	assert.Empty(t, st.saved)
}

func TestHandleImport_OverSizeCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.Import.MaxFileSize = 32
	s := newTestServer(t, cfg, nil)

	rec := serve(s, uploadRequest(t, "file", "contacts.csv", contactsCSV))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decodeImport(t, rec)
	require.Len(t, resp.Import.Outcome.Reasons, 1)
	assert.True(t, strings.HasPrefix(resp.Import.Outcome.Reasons[0], "file too large"))
}

func TestHandleImport_NoFile(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, uploadRequest(t, "attachment", "contacts.csv", contactsCSV))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE002", decodeError(t, rec).Code)
}

func TestHandleImport_NotMultipart(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/imports", strings.NewReader(contactsCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := serve(s, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE002", decodeError(t, rec).Code)
}

func TestHandleImport_StoreError(t *testing.T) {
	st := newFakeStore()
	st.saveErr = errors.New("dial tcp: connection refused")
	s := newTestServer(t, testConfig(), st)

	rec := serve(s, uploadRequest(t, "file", "contacts.csv", contactsCSV))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "DB001", decodeError(t, rec).Code)
}

func TestHandleImport_Msgpack(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	req := uploadRequest(t, "file", "contacts.csv", contactsCSV)
	req.Header.Set("Accept", "application/msgpack")
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var resp ImportResponse
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Import)
	assert.Equal(t, core.OutcomeSuccess, resp.Import.Outcome.Kind)
	require.Len(t, resp.Import.Outcome.Records, 2)
	require.NotNil(t, resp.Import.Outcome.Records[0].Salutation)
	assert.Equal(t, "Anh", *resp.Import.Outcome.Records[0].Salutation)
	assert.Nil(t, resp.Import.Outcome.Records[1].Salutation)
}

// =============================================================================
// GET /api/imports/{importID}
// =============================================================================

func TestHandleGetImport(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, testConfig(), st)

	created := decodeImport(t, serve(s, uploadRequest(t, "file", "contacts.csv", contactsCSV)))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports/"+created.Import.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeImport(t, rec)
	assert.True(t, resp.Stored)
	assert.Equal(t, created.Import.ID, resp.Import.ID)
	assert.Len(t, resp.Import.Outcome.Records, 2)
}

func TestHandleGetImport_NotFound(t *testing.T) {
	s := newTestServer(t, testConfig(), newFakeStore())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports/6f1c2a3e-9b7d-4c1e-8a2f-0d3b4c5e6f70", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UPL004", decodeError(t, rec).Code)
}

func TestHandleGetImport_StorageDisabled(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports/anything", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DB001", decodeError(t, rec).Code)
}

// =============================================================================
// GET /api/imports, DELETE /api/imports/{importID}
// =============================================================================

func TestHandleListImports(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, testConfig(), st)

	created := decodeImport(t, serve(s, uploadRequest(t, "file", "contacts.csv", contactsCSV)))

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports", nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, store.DefaultHistoryLimit, history.Limit)
	assert.Zero(t, history.Offset)
	require.Len(t, history.Imports, 1)
	assert.Equal(t, created.Import.ID, history.Imports[0].ID)
	assert.Equal(t, 2, history.Imports[0].RecordCount)
}

func TestHandleListImports_Paging(t *testing.T) {
	s := newTestServer(t, testConfig(), newFakeStore())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports?limit=5&offset=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, 5, history.Limit)
	assert.Equal(t, 10, history.Offset)
	assert.Empty(t, history.Imports)
}

func TestHandleListImports_LimitIsCapped(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{query: "limit=10000", want: store.MaxHistoryLimit},
		{query: "limit=0", want: store.DefaultHistoryLimit},
		{query: "limit=abc", want: store.DefaultHistoryLimit},
	}

	s := newTestServer(t, testConfig(), newFakeStore())
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports?"+tt.query, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			var history HistoryResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
			assert.Equal(t, tt.want, history.Limit)
		})
	}
}

func TestHandleListImports_StorageDisabled(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/imports", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DB001", decodeError(t, rec).Code)
}

func TestHandleDeleteImport(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, testConfig(), st)

	created := decodeImport(t, serve(s, uploadRequest(t, "file", "contacts.csv", contactsCSV)))
	path := "/api/imports/" + created.Import.ID

	rec := serve(s, httptest.NewRequest(http.MethodDelete, path, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result store.DeleteResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, int64(2), result.ContactsDeleted)
	assert.Empty(t, st.saved)

	rec = serve(s, httptest.NewRequest(http.MethodDelete, path, nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "UPL004", decodeError(t, rec).Code)
}

func TestParseIntParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=7&offset=-2&page=abc", nil)

	assert.Equal(t, 7, parseIntParam(req, "limit", 50))
	assert.Equal(t, 0, parseIntParam(req, "offset", 0))
	assert.Equal(t, 1, parseIntParam(req, "page", 1))
	assert.Equal(t, 9, parseIntParam(req, "missing", 9))
}

// =============================================================================
// Schema, health, auth
// =============================================================================

func TestHandleSchema(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/schema", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var fields []FieldResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fields))
	require.Len(t, fields, 3)
	assert.Equal(t, "full_name", fields[0].Key)
	assert.True(t, fields[0].Required)
	assert.Contains(t, fields[1].Synonyms, "SỐ ĐIỆN THOẠI")
	assert.False(t, fields[2].Required)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), newFakeStore())

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.True(t, health.Storage)
	assert.Equal(t, 2, health.Imports.MaxConcurrent)
	assert.Zero(t, health.Imports.Active)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := newTestServer(t, cfg, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/schema", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, serve(s, req).Code)

	assert.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code,
		"health check is not behind auth")
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
