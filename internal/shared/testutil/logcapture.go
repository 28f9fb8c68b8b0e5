package testutil

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log entry. Attrs holds the record's own attributes
// merged with those bound through Logger.With; grouped keys are dotted.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type logStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogCapture is a slog.Handler that keeps every record for assertions and
// echoes it to the test log. Loggers derived with With or WithGroup share the
// same capture.
type LogCapture struct {
	t      testing.TB
	store  *logStore
	bound  map[string]any
	prefix string
}

// NewTestLogger returns a logger writing into a fresh capture.
func NewTestLogger(t testing.TB) (*slog.Logger, *LogCapture) {
	c := &LogCapture{t: t, store: &logStore{}, bound: map[string]any{}}
	return slog.New(c), c
}

// Enabled captures every level.
func (c *LogCapture) Enabled(context.Context, slog.Level) bool { return true }

// Handle implements slog.Handler.
func (c *LogCapture) Handle(_ context.Context, r slog.Record) error {
	attrs := maps.Clone(c.bound)
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, c.prefix, a)
		return true
	})

	c.store.mu.Lock()
	c.store.records = append(c.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	c.store.mu.Unlock()

	if c.t != nil {
		c.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (c *LogCapture) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *c
	next.bound = maps.Clone(c.bound)
	for _, a := range attrs {
		flatten(next.bound, c.prefix, a)
	}
	return &next
}

// WithGroup implements slog.Handler.
func (c *LogCapture) WithGroup(name string) slog.Handler {
	if name == "" {
		return c
	}
	next := *c
	next.prefix = c.prefix + name + "."
	return &next
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range v.Group() {
			flatten(dst, p, ga)
		}
		return
	}
	dst[prefix+a.Key] = v.Any()
}

// Records returns the captured records in order.
func (c *LogCapture) Records() []LogRecord {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return slices.Clone(c.store.records)
}

// Find returns the records at level whose message contains msg.
func (c *LogCapture) Find(level slog.Level, msg string) []LogRecord {
	var out []LogRecord
	for _, r := range c.Records() {
		if r.Level == level && strings.Contains(r.Message, msg) {
			out = append(out, r)
		}
	}
	return out
}

// EmptyBlocks returns the "empty report block" warnings as "sheet/bucket"
// pairs, with "sheet/" for a sheet that has no data rows at all.
func (c *LogCapture) EmptyBlocks() []string {
	var out []string
	for _, r := range c.Find(slog.LevelWarn, "empty report block") {
		sheet, _ := r.Attrs["sheet"].(string)
		bucket, _ := r.Attrs["bucket"].(string)
		out = append(out, sheet+"/"+bucket)
	}
	return out
}

// AssertLogContains fails the test unless a record at level contains message.
func AssertLogContains(t testing.TB, c *LogCapture, level slog.Level, message string) {
	t.Helper()
	if len(c.Find(level, message)) > 0 {
		return
	}
	t.Errorf("expected %s log containing %q", level, message)
	for _, r := range c.Records() {
		t.Logf("  [%s] %s", r.Level, r.Message)
	}
}

// AssertLogAttr fails the test unless some record carries key=value.
func AssertLogAttr(t testing.TB, c *LogCapture, key string, value any) {
	t.Helper()
	for _, r := range c.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return
		}
	}
	t.Errorf("expected log attribute %s=%v", key, value)
	for _, r := range c.Records() {
		t.Logf("  %s: %v", r.Message, r.Attrs)
	}
}

// AssertNoErrors fails the test if anything was logged at error level.
func AssertNoErrors(t testing.TB, c *LogCapture) {
	t.Helper()
	for _, r := range c.Records() {
		if r.Level >= slog.LevelError {
			t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
		}
	}
}
