package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-import/internal/domain/common"
	"github.com/FACorreiaa/smart-import/internal/domain/import/mapping"
	"github.com/FACorreiaa/smart-import/internal/domain/import/repository"
	"github.com/FACorreiaa/smart-import/internal/domain/import/service"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Analyze(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, data []byte) (*service.AnalyzeResult, error) {
	args := m.Called(ctx, userID, entity, data)
	res, _ := args.Get(0).(*service.AnalyzeResult)
	return res, args.Error(1)
}

func (m *mockService) Preview(ctx context.Context, entity mapping.EntityType, data []byte, cm mapping.ColumnMapping) (*service.PreviewResult, error) {
	args := m.Called(ctx, entity, data, cm)
	res, _ := args.Get(0).(*service.PreviewResult)
	return res, args.Error(1)
}

func (m *mockService) CheckDuplicates(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, c service.DuplicateCandidates, threshold int) (*service.DuplicateReport, error) {
	args := m.Called(ctx, userID, entity, c, threshold)
	res, _ := args.Get(0).(*service.DuplicateReport)
	return res, args.Error(1)
}

func (m *mockService) Commit(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, data []byte, cm mapping.ColumnMapping, opts service.CommitOptions) (*service.ImportResult, error) {
	args := m.Called(ctx, userID, entity, data, cm, opts)
	res, _ := args.Get(0).(*service.ImportResult)
	return res, args.Error(1)
}

func (m *mockService) SaveMapping(ctx context.Context, userID uuid.UUID, entity mapping.EntityType, fingerprint string, cm mapping.ColumnMapping) (*repository.SavedMapping, error) {
	args := m.Called(ctx, userID, entity, fingerprint, cm)
	res, _ := args.Get(0).(*repository.SavedMapping)
	return res, args.Error(1)
}

func setup(svc ImportService, maxBytes int64) *http.ServeMux {
	mux := http.NewServeMux()
	NewImportHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)), maxBytes).RegisterRoutes(mux, nil)
	return mux
}

func do(mux http.Handler, userID uuid.UUID, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if userID != uuid.Nil {
		req = req.WithContext(common.WithUserID(req.Context(), userID))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAnalyze(t *testing.T) {
	svc := new(mockService)
	userID := uuid.New()
	body := "Date,Amount\n2024-01-01,5"
	svc.On("Analyze", mock.Anything, userID, mapping.EntityTransaction, []byte(body)).
		Return(&service.AnalyzeResult{Entity: mapping.EntityTransaction, RowCount: 1}, nil)

	rec := do(setup(svc, 1024), userID, http.MethodPost, "/v1/imports/transactions/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(1), got["rowCount"])
	svc.AssertExpectations(t)
}

func TestAnalyze_RequiresUser(t *testing.T) {
	rec := do(setup(new(mockService), 1024), uuid.Nil, http.MethodPost, "/v1/imports/leads/analyze", "Name\nAcme")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAnalyze_UnknownEntity(t *testing.T) {
	rec := do(setup(new(mockService), 1024), uuid.New(), http.MethodPost, "/v1/imports/invoices/analyze", "x")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unsupported import entity")
}

func TestAnalyze_TooLarge(t *testing.T) {
	rec := do(setup(new(mockService), 8), uuid.New(), http.MethodPost, "/v1/imports/task/analyze", "Title\nCall someone back")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPreview(t *testing.T) {
	svc := new(mockService)
	svc.On("Preview", mock.Anything, mapping.EntityTask, []byte("Title\nCall"), mapping.ColumnMapping{"title": "Title"}).
		Return(&service.PreviewResult{Errors: []string{}}, nil)

	rec := do(setup(svc, 1024), uuid.New(), http.MethodPost, "/v1/imports/task/preview",
		`{"csv":"Title\nCall","mapping":{"title":"Title"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestPreview_BadJSON(t *testing.T) {
	rec := do(setup(new(mockService), 1024), uuid.New(), http.MethodPost, "/v1/imports/task/preview", `{"csv":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckDuplicates(t *testing.T) {
	svc := new(mockService)
	userID := uuid.New()
	svc.On("CheckDuplicates", mock.Anything, userID, mapping.EntityLead, mock.MatchedBy(func(c service.DuplicateCandidates) bool {
		return len(c.Leads) == 1 && c.Leads[0].Name == "Acme"
	}), 85).Return(&service.DuplicateReport{Entity: mapping.EntityLead, Checked: 1}, nil)

	rec := do(setup(svc, 1024), userID, http.MethodPost, "/v1/imports/lead/duplicates",
		`{"leads":[{"name":"Acme","website":"acme.com"}],"threshold":85}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestCommit(t *testing.T) {
	svc := new(mockService)
	userID, jobID := uuid.New(), uuid.New()
	svc.On("Commit", mock.Anything, userID, mapping.EntityContact, []byte("First\nJane"), mapping.ColumnMapping{"first_name": "First"},
		service.CommitOptions{SkipDuplicates: true}).
		Return(&service.ImportResult{JobID: jobID, RowsImported: 1, Errors: []string{}}, nil).Once()
	svc.On("Commit", mock.Anything, userID, mapping.EntityContact, mock.Anything, mock.Anything,
		service.CommitOptions{SkipDuplicates: false, Threshold: 70}).
		Return(nil, errors.New("db down")).Once()

	mux := setup(svc, 1024)
	rec := do(mux, userID, http.MethodPost, "/v1/imports/contacts/commit",
		`{"csv":"First\nJane","mapping":{"first_name":"First"}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), jobID.String())

	rec = do(mux, userID, http.MethodPost, "/v1/imports/contacts/commit",
		`{"csv":"First\nJane","mapping":{"first_name":"First"},"skipDuplicates":false,"threshold":70}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")

	svc.AssertExpectations(t)
}

func TestSaveMapping(t *testing.T) {
	svc := new(mockService)
	userID := uuid.New()
	svc.On("SaveMapping", mock.Anything, userID, mapping.EntityOpportunity, "abc123", mapping.ColumnMapping{"name": "Deal"}).
		Return(&repository.SavedMapping{ID: uuid.New(), Entity: mapping.EntityOpportunity, Fingerprint: "abc123"}, nil)

	rec := do(setup(svc, 1024), userID, http.MethodPut, "/v1/imports/opportunities/mappings/abc123", `{"mapping":{"name":"Deal"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fingerprint":"abc123"`)
	svc.AssertExpectations(t)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{common.ErrUnauthenticated, http.StatusUnauthorized},
		{common.ErrNotFound, http.StatusNotFound},
		{common.ErrUploadTooLarge, http.StatusRequestEntityTooLarge},
		{common.ErrInvalidMapping, http.StatusUnprocessableEntity},
		{common.ErrEmptyUpload, http.StatusBadRequest},
		{errors.Join(common.ErrBadRequest, errors.New("x")), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
