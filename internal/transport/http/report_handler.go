package http

import (
	"errors"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "readyparser/internal/errors"
	"readyparser/internal/files"
	"readyparser/internal/lifecycle"
	"readyparser/internal/middleware"
	"readyparser/internal/services"
	"readyparser/internal/validation"
	"readyparser/pkg/contracts/domain"
)

const (
	// multipartMemory is the part of a multipart body kept in memory; the
	// rest spills to temporary files.
	multipartMemory = 32 << 20

	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeZip  = "application/zip"
)

// ReportHandlerConfig carries the upload limits.
type ReportHandlerConfig struct {
	MaxUploadBytes int64
	MaxFiles       int
}

// ReportHandler serves the report generation endpoints
type ReportHandler struct {
	service      ReportServiceInterface
	validator    *middleware.ReportValidator
	cfg          ReportHandlerConfig
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewReportHandler creates a new report handler
func NewReportHandler(service ReportServiceInterface, validator *middleware.ReportValidator, cfg ReportHandlerConfig, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ReportHandler {
	return &ReportHandler{
		service:      service,
		validator:    validator,
		cfg:          cfg,
		logger:       logger.With(slog.String("handler", "report")),
		errorHandler: errorHandler,
	}
}

// Routes returns the report routes
func (h *ReportHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/options", h.GetOptions)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator("multipart/form-data"))
		r.Use(middleware.MaxBodySize(h.cfg.MaxUploadBytes))
		r.Post("/file", h.GenerateFile)
		r.Post("/folder", h.GenerateFolder)
	})

	return r
}

// GetOptions handles GET /api/reports/options
func (h *ReportHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Options())
}

// GenerateFile handles POST /api/reports/file
func (h *ReportHandler) GenerateFile(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(r); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := readForm(r)
	params, err := h.params(form)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		return
	}
	header := headers[0]
	if !isWorkbook(header) {
		h.errorHandler.HandleError(w, r, apierrors.UnsupportedFileError(header.Filename))
		return
	}

	content, err := header.Open()
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	defer content.Close()

	report, err := h.service.GenerateFile(r.Context(),
		services.Upload{Filename: header.Filename, Content: content}, form.Name, params)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.translate(err, header.Filename))
		return
	}
	defer report.Close()

	if report.Result != nil {
		w.Header().Set("X-Report-Records-Kept", strconv.Itoa(report.Result.RecordsKept))
		w.Header().Set("X-Report-Warnings", strconv.Itoa(len(report.Result.Warnings)))
	}
	if err := h.sendFile(w, r, report.Path, report.DownloadName, contentTypeXLSX); err != nil {
		h.errorHandler.HandleError(w, r, err)
	}
}

// GenerateFolder handles POST /api/reports/folder
func (h *ReportHandler) GenerateFolder(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(r); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := readForm(r)
	if form.FileType == "" {
		form.FileType = string(domain.SingleCustomer)
	}
	params, err := h.params(form)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		h.errorHandler.HandleError(w, r, apierrors.ErrMissingFile)
		return
	}
	if h.cfg.MaxFiles > 0 && len(headers) > h.cfg.MaxFiles {
		h.errorHandler.HandleError(w, r, apierrors.TooManyFilesError(len(headers), h.cfg.MaxFiles))
		return
	}

	uploads := make([]services.Upload, 0, len(headers))
	for _, header := range headers {
		content, err := header.Open()
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
			return
		}
		defer content.Close()
		uploads = append(uploads, services.Upload{Filename: header.Filename, Content: content})
	}

	report, err := h.service.GenerateFolder(r.Context(), uploads, params)
	if err != nil {
		h.errorHandler.HandleError(w, r, h.translate(err, ""))
		return
	}
	defer report.Close()

	if report.Summary != nil {
		w.Header().Set("X-Batch-Succeeded", strconv.Itoa(report.Summary.Succeeded))
		w.Header().Set("X-Batch-Failed", strconv.Itoa(report.Summary.Failed))
	}
	w.Header().Set("X-Batch-Skipped", strconv.Itoa(len(report.Skipped)))
	if err := h.sendFile(w, r, report.ArchivePath, report.DownloadName, contentTypeZip); err != nil {
		h.errorHandler.HandleError(w, r, err)
	}
}

func (h *ReportHandler) parseMultipart(r *http.Request) error {
	if h.cfg.MaxUploadBytes > 0 && r.ContentLength > h.cfg.MaxUploadBytes {
		return &http.MaxBytesError{Limit: h.cfg.MaxUploadBytes}
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return apierrors.InvalidRequestWithError(err)
	}
	return nil
}

// params validates the form and converts it to engine parameters.
func (h *ReportHandler) params(form middleware.ReportForm) (lifecycle.Params, error) {
	if err := h.validator.Validate(form); err != nil {
		return lifecycle.Params{}, err
	}
	window, err := h.validator.Window(form)
	if err != nil {
		return lifecycle.Params{}, apierrors.ErrValidation("end_date", err.Error())
	}

	p := lifecycle.Params{
		Start:             window.Start,
		End:               window.End,
		IncludeMinorItems: strings.EqualFold(form.IncludeMinorItems, "yes"),
	}
	// The validator has accepted every value below.
	p.Target, _ = domain.ParseDateTarget(form.BaseDateSelectionOn)
	p.Mode, _ = domain.ParseCustomerMode(form.FileType)
	if form.OutputDateFormat != "" {
		p.DateFormat, _ = lifecycle.ParseDateFormat(form.OutputDateFormat)
	}
	p.Grouping, _ = lifecycle.ParseGrouping(form.GroupBy)
	return p, nil
}

// translate maps staging and service errors to API errors. Engine errors
// pass through for the error handler.
func (h *ReportHandler) translate(err error, filename string) error {
	switch {
	case errors.Is(err, files.ErrUnsupportedFile):
		return apierrors.UnsupportedFileError(filename)
	case errors.Is(err, services.ErrNoUploads):
		return apierrors.ErrMissingFile
	case errors.Is(err, services.ErrNoWorkbooks):
		return apierrors.NewWithDetails(http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE",
			"None of the uploaded files is an .xlsx or .xlsm workbook", nil)
	}
	return err
}

func (h *ReportHandler) sendFile(w http.ResponseWriter, r *http.Request, path, downloadName, contentType string) error {
	f, err := os.Open(path)
	if err != nil {
		return apierrors.FileSystemError("open report", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return apierrors.FileSystemError("stat report", err)
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}))
	http.ServeContent(w, r, downloadName, info.ModTime(), f)

	h.logger.InfoContext(r.Context(), "Report sent",
		slog.String("download", downloadName),
		slog.Int64("bytes", info.Size()))
	return nil
}

func readForm(r *http.Request) middleware.ReportForm {
	get := func(key string) string { return strings.TrimSpace(r.FormValue(key)) }
	return middleware.ReportForm{
		Name:                get("name"),
		StartDate:           get("start_date"),
		EndDate:             get("end_date"),
		IncludeMinorItems:   strings.ToLower(get("include_minor_items")),
		BaseDateSelectionOn: get("base_date_selection_on"),
		FileType:            get("file_type"),
		OutputDateFormat:    get("output_date_format"),
		GroupBy:             get("group_by"),
	}
}

func isWorkbook(header *multipart.FileHeader) bool {
	return validation.IsWorkbookName(header.Filename)
}
