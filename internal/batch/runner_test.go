package batch

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/goleak"

	"readyparser/internal/lifecycle"
	"readyparser/internal/shared/testutil"
	"readyparser/pkg/contracts/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeEngine struct {
	fail    map[string]error
	delay   time.Duration
	active  atomic.Int32
	peak    atomic.Int32
	mu      sync.Mutex
	outputs []string
}

func (f *fakeEngine) Run(_ context.Context, input, output string, _ lifecycle.Params) (*lifecycle.Result, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.outputs = append(f.outputs, output)
	f.mu.Unlock()

	if err := f.fail[input]; err != nil {
		return nil, err
	}
	return &lifecycle.Result{InputPath: input, OutputPath: output}, nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	statuses []string
	files    int
	failed   int
	batches  int
}

func (f *fakeRecorder) RecordBatchFile(_ context.Context, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
}

func (f *fakeRecorder) RecordBatch(_ context.Context, files, failed int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	f.files = files
	f.failed = failed
}

func testParams() lifecycle.Params {
	return lifecycle.Params{
		Target:            domain.LastDateOfSupport,
		Start:             testutil.Day(2020, time.January, 1),
		End:               testutil.Day(2030, time.January, 1),
		IncludeMinorItems: true,
		Mode:              domain.SingleCustomer,
	}
}

func TestPlanJobs(t *testing.T) {
	jobs := PlanJobs([]string{
		"/in/a.xlsx",
		"/in/b.xlsm",
		"/other/a.xlsm",
		"/third/a.xlsx",
	}, "/out")

	assert.Equal(t, []Job{
		{Input: "/in/a.xlsx", Output: filepath.Join("/out", "a_parsed.xlsx")},
		{Input: "/in/b.xlsm", Output: filepath.Join("/out", "b_parsed.xlsx")},
		{Input: "/other/a.xlsm", Output: filepath.Join("/out", "a_2_parsed.xlsx")},
		{Input: "/third/a.xlsx", Output: filepath.Join("/out", "a_3_parsed.xlsx")},
	}, jobs)
}

func TestRunner_AllSucceed(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	engine := &fakeEngine{}
	rec := &fakeRecorder{}
	runner := NewRunner(engine, logger, WithWorkers(2), WithRecorder(rec))

	jobs := PlanJobs([]string{"a.xlsx", "b.xlsx", "c.xlsx"}, "/out")
	summary, err := runner.Run(context.Background(), jobs, testParams())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, summary.Results, 3)
	for i, res := range summary.Results {
		assert.Equal(t, jobs[i].Input, res.Input, "results keep job order")
		assert.Equal(t, StatusSuccess, res.Status)
		assert.NotNil(t, res.Report)
	}
	assert.ElementsMatch(t, []string{
		filepath.Join("/out", "a_parsed.xlsx"),
		filepath.Join("/out", "b_parsed.xlsx"),
		filepath.Join("/out", "c_parsed.xlsx"),
	}, summary.Outputs())

	assert.Equal(t, 1, rec.batches)
	assert.Equal(t, 3, rec.files)
	assert.Equal(t, 0, rec.failed)
	assert.Len(t, rec.statuses, 3)

	testutil.AssertLogContains(t, handler, slog.LevelInfo, "Batch completed")
}

func TestRunner_PartialFailure(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	boom := errors.New("boom")
	engine := &fakeEngine{fail: map[string]error{"b.xlsx": boom}}
	rec := &fakeRecorder{}
	runner := NewRunner(engine, logger, WithRecorder(rec))

	summary, err := runner.Run(context.Background(), PlanJobs([]string{"a.xlsx", "b.xlsx", "c.xlsx"}, "/out"), testParams())
	require.NoError(t, err, "one good file keeps the batch alive")

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, StatusFailure, summary.Results[1].Status)
	assert.ErrorIs(t, summary.Results[1].Err, boom)
	assert.Equal(t, "boom", summary.Results[1].Error)
	assert.Len(t, summary.Outputs(), 2)
	assert.Len(t, engine.outputs, 3, "the failure does not cancel the other jobs")

	assert.ElementsMatch(t, []string{"success", "failure", "success"}, rec.statuses)
	assert.Equal(t, 1, rec.failed)
}

func TestRunner_SpanEventsAndLogs(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	logger, logs := testutil.NewTestLogger(t)
	engine := &fakeEngine{fail: map[string]error{"/in/b.xlsx": errors.New("missing required columns")}}
	runner := NewRunner(engine, logger, WithWorkers(1))

	ctx, span := tp.Tracer("test").Start(context.Background(), "reports.folder")
	_, err := runner.Run(ctx, PlanJobs([]string{"/in/a.xlsx", "/in/b.xlsx"}, "/out"), testParams())
	span.End()
	require.NoError(t, err)

	ended := sr.Ended()
	require.Len(t, ended, 1)

	statuses := map[string]string{}
	for _, ev := range ended[0].Events() {
		require.Equal(t, "batch.job_completed", ev.Name)
		var input, status string
		for _, kv := range ev.Attributes {
			switch kv.Key {
			case "batch.input":
				input = kv.Value.AsString()
			case "batch.status":
				status = kv.Value.AsString()
			}
		}
		statuses[input] = status
	}
	assert.Equal(t, map[string]string{"a.xlsx": "success", "b.xlsx": "failure"}, statuses)

	attrs := map[attribute.Key]int64{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value.AsInt64()
	}
	assert.Equal(t, map[attribute.Key]int64{"batch.files": 2, "batch.succeeded": 1, "batch.failed": 1}, attrs)

	testutil.AssertLogAttr(t, logs, "component", "batch_runner")
	failed := logs.Find(slog.LevelWarn, "Batch file failed")
	require.Len(t, failed, 1)
	assert.Equal(t, "/in/b.xlsx", failed[0].Attrs["input"])
	assert.Equal(t, "missing required columns", failed[0].Attrs["error"])
}

func TestRunner_AllFail(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	boom := errors.New("boom")
	engine := &fakeEngine{fail: map[string]error{"a.xlsx": boom, "b.xlsx": boom}}
	runner := NewRunner(engine, logger)

	summary, err := runner.Run(context.Background(), PlanJobs([]string{"a.xlsx", "b.xlsx"}, "/out"), testParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllFailed)
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, summary)
	assert.Equal(t, 2, summary.Failed)
	assert.Empty(t, summary.Outputs())
}

func TestRunner_RejectsBadBatches(t *testing.T) {
	runner := NewRunner(&fakeEngine{}, nil)

	_, err := runner.Run(context.Background(), nil, testParams())
	assert.ErrorIs(t, err, ErrNoJobs)

	_, err = runner.Run(context.Background(), []Job{
		{Input: "a.xlsx", Output: "/out/a_parsed.xlsx"},
		{Input: "b.xlsx", Output: "/out/./a_parsed.xlsx"},
	}, testParams())
	assert.ErrorIs(t, err, ErrDuplicateOutput)
}

func TestRunner_WorkerLimit(t *testing.T) {
	engine := &fakeEngine{delay: 20 * time.Millisecond}
	runner := NewRunner(engine, nil, WithWorkers(2))

	inputs := []string{"a.xlsx", "b.xlsx", "c.xlsx", "d.xlsx", "e.xlsx", "f.xlsx"}
	_, err := runner.Run(context.Background(), PlanJobs(inputs, "/out"), testParams())
	require.NoError(t, err)

	assert.LessOrEqual(t, engine.peak.Load(), int32(2))
	assert.Len(t, engine.outputs, len(inputs))
}

func TestRunner_CancelledContext(t *testing.T) {
	engine := &fakeEngine{}
	runner := NewRunner(engine, nil, WithWorkers(0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := runner.Run(ctx, PlanJobs([]string{"a.xlsx"}, "/out"), testParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Failed)
	assert.Empty(t, engine.outputs, "cancelled jobs never reach the engine")
}

func TestRunner_WithEngine(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	in := t.TempDir()
	out := t.TempDir()

	good := testutil.WriteInventory(t, in, "good.xlsx", []testutil.InventoryRow{
		{Qty: 2, ProductID: "WS-C1", LDoS: testutil.Day(2025, time.March, 1), BusinessEntity: "Security", MajorMinor: "Major"},
	})
	bad := filepath.Join(in, "missing.xlsx")

	runner := NewRunner(lifecycle.NewEngine(logger), logger, WithWorkers(2))
	summary, err := runner.Run(context.Background(), PlanJobs([]string{good, bad}, out), testParams())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.FileExists(t, filepath.Join(out, "good_parsed.xlsx"))
	assert.ErrorIs(t, summary.Results[1].Err, lifecycle.ErrLoad)
}
