package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"readyparser/internal/infrastructure"
	"readyparser/pkg/contracts/domain"
)

const tracerName = "readyparser/lifecycle"

// Params fully determine the report produced from one input file.
type Params struct {
	Target            domain.DateTarget
	Start             time.Time
	End               time.Time
	IncludeMinorItems bool
	Mode              domain.CustomerMode
	DateFormat        DateFormat
	Grouping          Grouping
}

// WithDefaults fills the optional output settings.
func (p Params) WithDefaults() Params {
	if p.DateFormat == "" {
		p.DateFormat = DayMonthYear
	}
	if p.Grouping == "" {
		p.Grouping = GroupByProductAndDate
	}
	return p
}

// Validate checks the enumerated parameters. The date window itself is checked by
// callers; the engine compares against whatever bounds it is given.
func (p Params) Validate() error {
	var errs []error
	if !p.Target.Valid() {
		errs = append(errs, fmt.Errorf("unknown date target %q", p.Target))
	}
	if !p.Mode.Valid() {
		errs = append(errs, fmt.Errorf("unknown file type %q", p.Mode))
	}
	if p.DateFormat != "" && !p.DateFormat.Valid() {
		errs = append(errs, fmt.Errorf("unknown date format %q", p.DateFormat))
	}
	switch p.Grouping {
	case "", GroupByProductAndDate, GroupByProduct:
	default:
		errs = append(errs, fmt.Errorf("unknown grouping %q", p.Grouping))
	}
	if p.Start.IsZero() || p.End.IsZero() {
		errs = append(errs, errors.New("start and end dates are required"))
	}
	return errors.Join(errs...)
}

// BucketSummary counts the aggregated rows of one portfolio.
type BucketSummary struct {
	Portfolio Portfolio `json:"portfolio"`
	Rows      int       `json:"rows"`
}

// Result describes one completed engine run.
type Result struct {
	InputPath         string               `json:"input_path"`
	OutputPath        string               `json:"output_path"`
	RecordsLoaded     int                  `json:"records_loaded"`
	RecordsKept       int                  `json:"records_kept"`
	DateParseFailures int                  `json:"date_parse_failures"`
	Buckets           []BucketSummary      `json:"buckets"`
	Warnings          []EmptyResultWarning `json:"warnings,omitempty"`
	Duration          time.Duration        `json:"duration"`
}

// Recorder receives per-run measurements.
type Recorder interface {
	RecordReport(ctx context.Context, mode, target string, loaded, kept, dateFailures, emptyBuckets int, duration time.Duration, err error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithTracer overrides the tracer used for run spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// Engine runs load, filter, classify/aggregate and write for one file at a time.
// An Engine holds no per-run state and may be shared by concurrent runs as long
// as their output paths differ.
type Engine struct {
	loader   *Loader
	writer   *Writer
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder Recorder
}

// NewEngine creates an engine; a nil logger falls back to slog.Default.
func NewEngine(logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		loader: NewLoader(logger),
		writer: NewWriter(logger),
		logger: infrastructure.WithComponent(logger, "lifecycle_engine"),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run builds the report for input and writes it to output. The context only
// carries the trace; a started run is not interrupted.
func (e *Engine) Run(ctx context.Context, input, output string, p Params) (res *Result, err error) {
	p = p.WithDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "lifecycle.run", trace.WithAttributes(
		attribute.String("lifecycle.input", input),
		attribute.String("lifecycle.target", string(p.Target)),
		attribute.String("lifecycle.mode", string(p.Mode)),
		attribute.Bool("lifecycle.include_minor", p.IncludeMinorItems),
	))
	res = &Result{InputPath: input, OutputPath: output}
	defer func() {
		res.Duration = time.Since(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			infrastructure.WithError(e.logger, err).ErrorContext(ctx, "report run failed",
				slog.String("input", input),
				slog.String("output", output),
				slog.Duration("duration", res.Duration))
		}
		span.End()
		e.record(ctx, p, res, err)
	}()

	e.logger.InfoContext(ctx, "report run started",
		slog.String("input", input),
		slog.String("output", output),
		slog.String("target", string(p.Target)),
		slog.String("mode", string(p.Mode)),
		slog.String("start", p.Start.Format(time.DateOnly)),
		slog.String("end", p.End.Format(time.DateOnly)),
		slog.Bool("include_minor", p.IncludeMinorItems))

	_, loadSpan := e.tracer.Start(ctx, "lifecycle.load")
	loaded, err := e.loader.Load(input)
	if err != nil {
		loadSpan.RecordError(err)
		loadSpan.SetStatus(codes.Error, err.Error())
		loadSpan.End()
		return res, err
	}
	loadSpan.SetAttributes(attribute.Int("lifecycle.records", len(loaded.Records)))
	loadSpan.End()
	res.RecordsLoaded = len(loaded.Records)
	res.DateParseFailures = len(loaded.DateErrors)

	_, filterSpan := e.tracer.Start(ctx, "lifecycle.filter")
	kept := Filter(loaded.Records, FilterOptions{
		Target:            p.Target,
		Start:             p.Start,
		End:               p.End,
		IncludeMinorItems: p.IncludeMinorItems,
	})
	filterSpan.SetAttributes(attribute.Int("lifecycle.kept", len(kept)))
	filterSpan.End()
	res.RecordsKept = len(kept)

	_, aggSpan := e.tracer.Start(ctx, "lifecycle.aggregate")
	buckets := BuildPortfolio(kept, PortfolioOptions{Target: p.Target, Mode: p.Mode, Grouping: p.Grouping})
	for _, b := range buckets {
		res.Buckets = append(res.Buckets, BucketSummary{Portfolio: b.Portfolio, Rows: len(b.Rows)})
	}
	aggSpan.End()

	_, writeSpan := e.tracer.Start(ctx, "lifecycle.write")
	warnings, err := e.writer.Write(output, buckets, WriteOptions{Mode: p.Mode, DateFormat: p.DateFormat})
	if err != nil {
		writeSpan.RecordError(err)
		writeSpan.SetStatus(codes.Error, err.Error())
		writeSpan.End()
		return res, err
	}
	writeSpan.SetAttributes(attribute.Int("lifecycle.warnings", len(warnings)))
	writeSpan.End()
	res.Warnings = warnings

	e.logger.InfoContext(ctx, "report run completed",
		slog.String("output", output),
		slog.Int("records_loaded", res.RecordsLoaded),
		slog.Int("records_kept", res.RecordsKept),
		slog.Int("warnings", len(warnings)),
		slog.Duration("duration", time.Since(start)))
	return res, nil
}

func (e *Engine) record(ctx context.Context, p Params, res *Result, err error) {
	if e.recorder == nil {
		return
	}
	empty := 0
	for _, w := range res.Warnings {
		if w.Bucket != "" {
			empty++
		}
	}
	e.recorder.RecordReport(ctx, string(p.Mode), string(p.Target),
		res.RecordsLoaded, res.RecordsKept, res.DateParseFailures, empty, res.Duration, err)
}
