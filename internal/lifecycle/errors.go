package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"readyparser/pkg/contracts/domain"
)

// Sentinels matched by errors.Is against LoadError and WriteError.
var (
	ErrLoad  = errors.New("lifecycle: load failed")
	ErrWrite = errors.New("lifecycle: write failed")
)

// LoadError reports an input workbook that could not be read or lacks required columns.
type LoadError struct {
	Path    string
	Reason  string
	Missing []string
	Err     error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s: %s", e.Path, e.Reason)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, " (missing columns: %s)", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }

// WriteError reports an output workbook that could not be opened, built or saved.
type WriteError struct {
	Path  string
	Sheet string
	Err   error
}

func (e *WriteError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("write %s [%s]: %v", e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// DateParseError describes a lifecycle-date cell whose day offset could not be read.
// The loader recovers from it by storing a null date; it is never returned to callers
// as a failure.
type DateParseError struct {
	Column domain.DateTarget
	Row    int
	Value  string
	Err    error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("row %d %q: cannot read day offset %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// EmptyResultWarning marks a bucket, or a whole sheet when Bucket is empty, that
// produced no data rows. The block is still written with its label.
type EmptyResultWarning struct {
	Sheet  string    `json:"sheet"`
	Bucket Portfolio `json:"bucket,omitempty"`
}

func (w EmptyResultWarning) String() string {
	if w.Bucket == "" {
		return fmt.Sprintf("sheet %s has no data rows", w.Sheet)
	}
	return fmt.Sprintf("sheet %s: bucket %q is empty", w.Sheet, w.Bucket)
}
