package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"readyparser/internal/batch"
	apierrors "readyparser/internal/errors"
	"readyparser/internal/lifecycle"
	"readyparser/internal/middleware"
	"readyparser/internal/services"
	"readyparser/internal/shared/testutil"
	"readyparser/internal/validation"
	"readyparser/pkg/contracts/domain"
)

type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Options() services.ReportOptions {
	args := m.Called()
	return args.Get(0).(services.ReportOptions)
}

func (m *MockReportService) GenerateFile(ctx context.Context, upload services.Upload, name string, p lifecycle.Params) (*services.FileReport, error) {
	args := m.Called(ctx, upload, name, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.FileReport), args.Error(1)
}

func (m *MockReportService) GenerateFolder(ctx context.Context, uploads []services.Upload, p lifecycle.Params) (*services.FolderReport, error) {
	args := m.Called(ctx, uploads, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.FolderReport), args.Error(1)
}

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, uploads ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, u := range uploads {
		fw, err := mw.CreateFormFile(u.field, u.name)
		require.NoError(t, err)
		_, err = fw.Write(u.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func validFields() map[string]string {
	return map[string]string{
		"start_date":             "2021-01-01",
		"end_date":               "2021-12-31",
		"include_minor_items":    "yes",
		"base_date_selection_on": "End of Product Sale Date",
		"file_type":              "single customer",
	}
}

func newReportHandler(t *testing.T, svc ReportServiceInterface, cfg ReportHandlerConfig) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	h := NewReportHandler(svc,
		middleware.NewReportValidator(validation.DefaultLimits(), logger),
		cfg, logger, apierrors.NewErrorHandler(logger, false))
	return h.Routes()
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	return problem
}

func TestReportHandler_GetOptions(t *testing.T) {
	svc := new(MockReportService)
	svc.On("Options").Return(services.ReportOptions{
		DateTargets: []string{"Last Date of Support"},
		MaxFiles:    25,
	})
	handler := newReportHandler(t, svc, ReportHandlerConfig{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/options", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var got services.ReportOptions
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, []string{"Last Date of Support"}, got.DateTargets)
	assert.Equal(t, 25, got.MaxFiles)
	svc.AssertExpectations(t)
}

func TestReportHandler_GenerateFile(t *testing.T) {
	content := []byte("generated workbook")
	reportPath := writeTempFile(t, "customer_parsed.xlsx", content)

	svc := new(MockReportService)
	svc.On("GenerateFile", mock.Anything,
		mock.MatchedBy(func(u services.Upload) bool { return u.Filename == "customer.xlsx" }),
		"",
		mock.MatchedBy(func(p lifecycle.Params) bool {
			return p.Target == domain.EndOfProductSale &&
				p.Mode == domain.SingleCustomer &&
				p.IncludeMinorItems &&
				p.Start.Equal(testutil.Day(2021, time.January, 1)) &&
				p.End.Equal(testutil.Day(2021, time.December, 31)) &&
				p.DateFormat == lifecycle.MonthDayYear &&
				p.Grouping == lifecycle.GroupByProduct
		}),
	).Return(&services.FileReport{
		Path:         reportPath,
		DownloadName: "customer_parsed.xlsx",
		Result:       &lifecycle.Result{RecordsKept: 7},
	}, nil).Once()

	handler := newReportHandler(t, svc, ReportHandlerConfig{MaxUploadBytes: 1 << 20})

	fields := validFields()
	fields["output_date_format"] = "MM/DD/YYYY"
	fields["group_by"] = "product"
	req := multipartRequest(t, "/file", fields, upload{field: "file", name: "customer.xlsx", data: []byte("xlsx")})
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, contentTypeXLSX, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "customer_parsed.xlsx")
	assert.Equal(t, "7", rr.Header().Get("X-Report-Records-Kept"))
	assert.Equal(t, content, rr.Body.Bytes())
	svc.AssertExpectations(t)
}

func TestReportHandler_GenerateFile_Errors(t *testing.T) {
	tests := []struct {
		name       string
		fields     func() map[string]string
		uploads    []upload
		serviceErr error
		cfg        ReportHandlerConfig
		wantStatus int
		wantCode   string
	}{
		{
			name:       "missing start date",
			fields:     func() map[string]string { f := validFields(); delete(f, "start_date"); return f },
			uploads:    []upload{{field: "file", name: "a.xlsx", data: []byte("x")}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "end before start",
			fields:     func() map[string]string { f := validFields(); f["end_date"] = "2020-01-01"; return f },
			uploads:    []upload{{field: "file", name: "a.xlsx", data: []byte("x")}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "unknown date target",
			fields:     func() map[string]string { f := validFields(); f["base_date_selection_on"] = "Birthday"; return f },
			uploads:    []upload{{field: "file", name: "a.xlsx", data: []byte("x")}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "no file",
			fields:     validFields,
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_FILE",
		},
		{
			name:       "csv upload",
			fields:     validFields,
			uploads:    []upload{{field: "file", name: "a.csv", data: []byte("x")}},
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "UNSUPPORTED_FILE",
		},
		{
			name:       "body over limit",
			fields:     validFields,
			uploads:    []upload{{field: "file", name: "a.xlsx", data: bytes.Repeat([]byte("x"), 4096)}},
			cfg:        ReportHandlerConfig{MaxUploadBytes: 1024},
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "workbook rejected by engine",
			fields:     validFields,
			uploads:    []upload{{field: "file", name: "a.xlsx", data: []byte("x")}},
			serviceErr: &lifecycle.LoadError{Path: "a.xlsx", Reason: "missing required columns", Missing: []string{"Qty"}},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockReportService)
			if tt.serviceErr != nil {
				svc.On("GenerateFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(nil, tt.serviceErr).Once()
			}
			handler := newReportHandler(t, svc, tt.cfg)

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, multipartRequest(t, "/file", tt.fields(), tt.uploads...))

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			problem := decodeProblem(t, rr)
			assert.Equal(t, float64(tt.wantStatus), problem["status"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, problem["error_code"])
			}
			if tt.serviceErr == nil {
				svc.AssertNotCalled(t, "GenerateFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestReportHandler_RejectsNonMultipart(t *testing.T) {
	svc := new(MockReportService)
	handler := newReportHandler(t, svc, ReportHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "/file", bytes.NewReader([]byte(`{"start_date":"2021-01-01"}`)))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	svc.AssertNotCalled(t, "GenerateFile", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReportHandler_GenerateFolder(t *testing.T) {
	archive := []byte("PK zip bytes")
	archivePath := writeTempFile(t, "download.zip", archive)

	svc := new(MockReportService)
	svc.On("GenerateFolder", mock.Anything,
		mock.MatchedBy(func(uploads []services.Upload) bool {
			return len(uploads) == 2 && uploads[0].Filename == "a.xlsx" && uploads[1].Filename == "b.xlsx"
		}),
		mock.MatchedBy(func(p lifecycle.Params) bool {
			return p.Mode == domain.SingleCustomer && p.DateFormat == "" && p.Grouping == lifecycle.GroupByProductAndDate
		}),
	).Return(&services.FolderReport{
		ArchivePath:  archivePath,
		DownloadName: "download.zip",
		Summary:      &batch.Summary{Succeeded: 2},
	}, nil).Once()

	handler := newReportHandler(t, svc, ReportHandlerConfig{MaxFiles: 5})

	fields := validFields()
	delete(fields, "file_type")
	req := multipartRequest(t, "/folder", fields,
		upload{field: "files", name: "a.xlsx", data: []byte("a")},
		upload{field: "files", name: "b.xlsx", data: []byte("b")},
	)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, contentTypeZip, rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "download.zip")
	assert.Equal(t, "2", rr.Header().Get("X-Batch-Succeeded"))
	assert.Equal(t, "0", rr.Header().Get("X-Batch-Failed"))
	assert.Equal(t, archive, rr.Body.Bytes())
	svc.AssertExpectations(t)
}

func TestReportHandler_GenerateFolder_Errors(t *testing.T) {
	tests := []struct {
		name       string
		uploads    []upload
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no files",
			wantStatus: http.StatusBadRequest,
			wantCode:   "MISSING_FILE",
		},
		{
			name: "too many files",
			uploads: []upload{
				{field: "files", name: "a.xlsx", data: []byte("a")},
				{field: "files", name: "b.xlsx", data: []byte("b")},
				{field: "files", name: "c.xlsx", data: []byte("c")},
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "TOO_MANY_FILES",
		},
		{
			name:       "no workbooks",
			uploads:    []upload{{field: "files", name: "notes.txt", data: []byte("a")}},
			serviceErr: services.ErrNoWorkbooks,
			wantStatus: http.StatusUnsupportedMediaType,
			wantCode:   "UNSUPPORTED_FILE",
		},
		{
			name:       "every report failed",
			uploads:    []upload{{field: "files", name: "a.xlsx", data: []byte("a")}},
			serviceErr: batch.ErrAllFailed,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockReportService)
			if tt.serviceErr != nil {
				svc.On("GenerateFolder", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, tt.serviceErr).Once()
			}
			handler := newReportHandler(t, svc, ReportHandlerConfig{MaxFiles: 2})

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, multipartRequest(t, "/folder", validFields(), tt.uploads...))

			require.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeProblem(t, rr)["error_code"])
			}
			svc.AssertExpectations(t)
		})
	}
}
