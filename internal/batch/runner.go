package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"readyparser/internal/files"
	"readyparser/internal/infrastructure"
	"readyparser/internal/lifecycle"
)

var (
	// ErrNoJobs is returned when a batch is started without inputs.
	ErrNoJobs = errors.New("no input files")

	// ErrAllFailed is returned when no job in the batch produced a report.
	ErrAllFailed = errors.New("every file in the batch failed")

	// ErrDuplicateOutput is returned when two jobs would write the same file.
	ErrDuplicateOutput = errors.New("duplicate output path")
)

// Status of a finished job
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Job is one input workbook and the report it produces.
type Job struct {
	Input  string
	Output string
}

// JobResult is the outcome of one job.
type JobResult struct {
	Input    string            `json:"input"`
	Output   string            `json:"output"`
	Status   Status            `json:"status"`
	Err      error             `json:"-"`
	Error    string            `json:"error,omitempty"`
	Report   *lifecycle.Result `json:"report,omitempty"`
	Duration time.Duration     `json:"duration"`
}

// Summary collects the results of a batch in job order.
type Summary struct {
	Results   []JobResult   `json:"results"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Outputs returns the report paths of the successful jobs.
func (s *Summary) Outputs() []string {
	var out []string
	for _, r := range s.Results {
		if r.Status == StatusSuccess {
			out = append(out, r.Output)
		}
	}
	return out
}

// ReportRunner produces one report. *lifecycle.Engine satisfies it.
type ReportRunner interface {
	Run(ctx context.Context, input, output string, p lifecycle.Params) (*lifecycle.Result, error)
}

// Recorder receives batch measurements.
type Recorder interface {
	RecordBatchFile(ctx context.Context, status string)
	RecordBatch(ctx context.Context, files, failed int, duration time.Duration)
}

// Option configures a Runner.
type Option func(*Runner)

// WithWorkers bounds the number of concurrent jobs. Values below one mean one.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// Runner fans report jobs out over a bounded worker set.
type Runner struct {
	engine   ReportRunner
	workers  int
	logger   *slog.Logger
	recorder Recorder
}

// NewRunner creates a runner around engine.
func NewRunner(engine ReportRunner, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		engine:  engine,
		workers: 4,
		logger:  infrastructure.WithComponent(logger, "batch_runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PlanJobs maps inputs to reports under outDir named <name>_parsed.xlsx.
// Inputs sharing a base name get a numeric suffix so outputs never collide.
func PlanJobs(inputs []string, outDir string) []Job {
	seen := make(map[string]int, len(inputs))
	jobs := make([]Job, 0, len(inputs))
	for _, in := range inputs {
		name := files.FormatFileName(in)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
		}
		jobs = append(jobs, Job{
			Input:  in,
			Output: filepath.Join(outDir, files.ReportFileName(name)),
		})
	}
	return jobs
}

// Run executes every job with the same parameters and waits for all of them.
// A failed job does not stop the others. The returned error is non-nil only
// when the batch could not start or every job failed; the summary is
// returned in both cases once jobs have run.
func (r *Runner) Run(ctx context.Context, jobs []Job, p lifecycle.Params) (*Summary, error) {
	if len(jobs) == 0 {
		return nil, ErrNoJobs
	}
	outputs := make(map[string]struct{}, len(jobs))
	for _, j := range jobs {
		key := filepath.Clean(j.Output)
		if _, dup := outputs[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOutput, j.Output)
		}
		outputs[key] = struct{}{}
	}

	start := time.Now()
	r.logger.InfoContext(ctx, "Batch started",
		slog.Int("files", len(jobs)),
		slog.Int("workers", r.workers))

	summary := &Summary{Results: make([]JobResult, len(jobs))}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, job := range jobs {
		g.Go(func() error {
			res := r.runJob(ctx, job, p)

			mu.Lock()
			summary.Results[i] = res
			if res.Status == StatusSuccess {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)
	if r.recorder != nil {
		r.recorder.RecordBatch(ctx, len(jobs), summary.Failed, summary.Duration)
	}

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"batch.files":     len(jobs),
		"batch.succeeded": summary.Succeeded,
		"batch.failed":    summary.Failed,
	})
	r.logger.InfoContext(ctx, "Batch completed",
		slog.Int("files", len(jobs)),
		slog.Int("succeeded", summary.Succeeded),
		slog.Int("failed", summary.Failed),
		slog.Duration("duration", summary.Duration))

	if summary.Succeeded == 0 {
		return summary, fmt.Errorf("%w: %w", ErrAllFailed, summary.firstError())
	}
	return summary, nil
}

func (r *Runner) runJob(ctx context.Context, job Job, p lifecycle.Params) JobResult {
	res := JobResult{Input: job.Input, Output: job.Output}
	start := time.Now()

	var err error
	if err = ctx.Err(); err == nil {
		res.Report, err = r.engine.Run(ctx, job.Input, job.Output, p)
	}
	res.Duration = time.Since(start)

	res.Status = StatusSuccess
	if err != nil {
		res.Status = StatusFailure
		res.Err = err
		res.Error = err.Error()
		infrastructure.WithError(r.logger, err).WarnContext(ctx, "Batch file failed",
			slog.String("input", job.Input))
	}
	infrastructure.AddSpanEvent(ctx, "batch.job_completed", map[string]interface{}{
		"batch.input":       filepath.Base(job.Input),
		"batch.status":      string(res.Status),
		"batch.duration_ms": res.Duration.Milliseconds(),
	})
	if r.recorder != nil {
		r.recorder.RecordBatchFile(ctx, string(res.Status))
	}
	return res
}

func (s *Summary) firstError() error {
	for _, r := range s.Results {
		if r.Err != nil {
			return r.Err
		}
	}
	return errors.New("no result")
}
