package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"readyparser/internal/batch"
	"readyparser/internal/files"
	"readyparser/internal/infrastructure"
	"readyparser/internal/lifecycle"
	"readyparser/internal/validation"
	"readyparser/pkg/contracts/domain"
)

// Upload is one submitted workbook.
type Upload struct {
	Filename string
	Content  io.Reader
}

// ReportOptions lists the accepted values of every report parameter.
//
// Groupings is an extension of the report form: product_date is the
// default and keeps one row per product and selected date, product merges
// a product's rows across dates and keeps the first-seen date.
type ReportOptions struct {
	DateTargets       []string `json:"date_targets"`
	FileTypes         []string `json:"file_types"`
	MinorItemOptions  []string `json:"include_minor_items"`
	DateFormats       []string `json:"output_date_formats"`
	Groupings         []string `json:"group_by"`
	DefaultDateFormat string   `json:"default_output_date_format"`
	DefaultGrouping   string   `json:"default_group_by"`
	MinDate           string   `json:"min_date"`
	MaxDate           string   `json:"max_date"`
	MaxFiles          int      `json:"max_files"`
}

// FileReport is a generated single-file report. Close removes its staging
// directories once the response has been sent.
type FileReport struct {
	Path         string
	DownloadName string
	Result       *lifecycle.Result

	workspace *files.Workspace
	keep      bool
}

// Close releases the staged input and output.
func (r *FileReport) Close() error {
	if r != nil && r.workspace != nil && !r.keep {
		r.workspace.Cleanup()
	}
	return nil
}

// FolderReport is a zipped batch of reports.
type FolderReport struct {
	ArchivePath  string
	DownloadName string
	Summary      *batch.Summary
	Skipped      []string

	workspace *files.Workspace
	keep      bool
}

// Close releases the staged inputs, outputs and archive.
func (r *FolderReport) Close() error {
	if r != nil && r.workspace != nil && !r.keep {
		r.workspace.Cleanup()
	}
	return nil
}

// ReportServiceConfig carries the report limits from configuration.
type ReportServiceConfig struct {
	Limits            validation.Limits
	DefaultDateFormat lifecycle.DateFormat
	MaxFiles          int
	KeepStaging       bool
}

// ReportService stages uploads, runs the engine and packages the output.
type ReportService struct {
	engine batch.ReportRunner
	runner *batch.Runner
	stager *files.Stager
	cfg    ReportServiceConfig
	tracer trace.Tracer
	logger *slog.Logger
}

// NewReportService creates a report service.
func NewReportService(engine batch.ReportRunner, runner *batch.Runner, stager *files.Stager, cfg ReportServiceConfig, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultDateFormat == "" {
		cfg.DefaultDateFormat = lifecycle.DayMonthYear
	}
	return &ReportService{
		engine: engine,
		runner: runner,
		stager: stager,
		cfg:    cfg,
		tracer: otel.Tracer("readyparser/services"),
		logger: logger.With(slog.String("service", "report")),
	}
}

// Options returns the choice lists for the report form.
func (s *ReportService) Options() ReportOptions {
	return ReportOptions{
		DateTargets:       names(domain.DateTargets),
		FileTypes:         names(domain.CustomerModes),
		MinorItemOptions:  []string{"yes", "no"},
		DateFormats:       names(lifecycle.DateFormats),
		Groupings:         names(lifecycle.Groupings),
		DefaultDateFormat: string(s.cfg.DefaultDateFormat),
		DefaultGrouping:   string(lifecycle.GroupByProductAndDate),
		MinDate:           s.cfg.Limits.Min.Format(validation.DateLayout),
		MaxDate:           s.cfg.Limits.Max.Format(validation.DateLayout),
		MaxFiles:          s.cfg.MaxFiles,
	}
}

// DefaultDateFormat is applied when a request leaves the format empty.
func (s *ReportService) DefaultDateFormat() lifecycle.DateFormat {
	return s.cfg.DefaultDateFormat
}

// GenerateFile stages one upload and builds its report. name overrides the
// report name derived from the upload. The caller must Close the result.
func (s *ReportService) GenerateFile(ctx context.Context, upload Upload, name string, p lifecycle.Params) (*FileReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.generate_file", trace.WithAttributes(
		attribute.String("report.upload", upload.Filename),
	))
	defer span.End()

	if name == "" {
		name = files.FormatFileName(upload.Filename)
	}
	if p.DateFormat == "" {
		p.DateFormat = s.cfg.DefaultDateFormat
	}

	ws, err := s.stager.NewWorkspace()
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("failed to stage upload: %w", err))
	}
	report := &FileReport{
		DownloadName: files.ReportFileName(name),
		workspace:    ws,
		keep:         s.cfg.KeepStaging,
	}

	input, err := ws.Save(upload.Filename, upload.Content)
	if err != nil {
		report.Close()
		return nil, s.fail(ctx, err)
	}

	report.Path = ws.OutputPath(name)
	report.Result, err = s.engine.Run(ctx, input, report.Path, p)
	if err != nil {
		report.Close()
		return nil, s.fail(ctx, err)
	}

	s.logger.InfoContext(ctx, "File report generated",
		slog.String("upload", upload.Filename),
		slog.String("download", report.DownloadName),
		slog.Int("records_kept", report.Result.RecordsKept),
		slog.Duration("duration", report.Result.Duration))
	return report, nil
}

// GenerateFolder stages every upload, runs the batch and zips the reports
// that succeeded. Uploads that are not workbooks are skipped. The caller
// must Close the result.
func (s *ReportService) GenerateFolder(ctx context.Context, uploads []Upload, p lifecycle.Params) (*FolderReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.generate_folder", trace.WithAttributes(
		attribute.Int("report.uploads", len(uploads)),
	))
	defer span.End()

	if len(uploads) == 0 {
		return nil, s.fail(ctx, ErrNoUploads)
	}
	if p.DateFormat == "" {
		p.DateFormat = s.cfg.DefaultDateFormat
	}

	start := time.Now()
	ws, err := s.stager.NewWorkspace()
	if err != nil {
		return nil, s.fail(ctx, fmt.Errorf("failed to stage uploads: %w", err))
	}
	report := &FolderReport{
		DownloadName: files.ArchiveName,
		workspace:    ws,
		keep:         s.cfg.KeepStaging,
	}

	var inputs []string
	for _, up := range uploads {
		path, err := ws.Save(up.Filename, up.Content)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping upload",
				slog.String("upload", up.Filename),
				slog.String("error", err.Error()))
			report.Skipped = append(report.Skipped, up.Filename)
			continue
		}
		inputs = append(inputs, path)
	}
	if len(inputs) == 0 {
		report.Close()
		return nil, s.fail(ctx, ErrNoWorkbooks)
	}

	report.Summary, err = s.runner.Run(ctx, batch.PlanJobs(inputs, ws.ParsedDir), p)
	if err != nil {
		report.Close()
		return nil, s.fail(ctx, err)
	}

	report.ArchivePath = ws.ZipPath()
	if _, err := files.ZipFiles(report.ArchivePath, report.Summary.Outputs()); err != nil {
		report.Close()
		return nil, s.fail(ctx, fmt.Errorf("failed to package reports: %w", err))
	}

	span.SetAttributes(
		attribute.Int("report.succeeded", report.Summary.Succeeded),
		attribute.Int("report.failed", report.Summary.Failed),
	)
	s.logger.InfoContext(ctx, "Folder report generated",
		slog.Int("uploads", len(uploads)),
		slog.Int("skipped", len(report.Skipped)),
		slog.Int("succeeded", report.Summary.Succeeded),
		slog.Int("failed", report.Summary.Failed),
		slog.Duration("duration", time.Since(start)))
	return report, nil
}

func (s *ReportService) fail(ctx context.Context, err error) error {
	infrastructure.RecordError(ctx, err)
	return err
}

func names[T ~string](values []T) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
