package validation

import (
	"errors"
	"fmt"
	"time"
)

// DateLayout is the only accepted form for window bounds.
const DateLayout = time.DateOnly

var (
	// ErrInvalidDate marks a bound that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")
	// ErrOutOfRange marks a start before the lower limit or an end after the upper limit.
	ErrOutOfRange = errors.New("date outside accepted range")
	// ErrInvertedWindow marks a start date later than the end date.
	ErrInvertedWindow = errors.New("start date is after end date")
)

// DateWindow is a validated pair of report bounds, both at UTC midnight.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// DateWindowError reports why a submitted window was rejected.
type DateWindowError struct {
	Start string
	End   string
	Err   error
}

func (e *DateWindowError) Error() string {
	return fmt.Sprintf("the interval %q - %q is not valid: %v", e.Start, e.End, e.Err)
}

func (e *DateWindowError) Unwrap() error { return e.Err }

// Limits bounds every accepted window.
type Limits struct {
	Min time.Time
	Max time.Time
}

// DefaultLimits accepts windows between 1984-01-01 and 2200-01-01.
func DefaultLimits() Limits {
	return Limits{
		Min: time.Date(1984, time.January, 1, 0, 0, 0, 0, time.UTC),
		Max: time.Date(2200, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// NewLimits parses YYYY-MM-DD limits; empty strings keep the defaults.
func NewLimits(min, max string) (Limits, error) {
	limits := DefaultLimits()
	if min != "" {
		t, err := time.Parse(DateLayout, min)
		if err != nil {
			return Limits{}, fmt.Errorf("%w: min %q", ErrInvalidDate, min)
		}
		limits.Min = t
	}
	if max != "" {
		t, err := time.Parse(DateLayout, max)
		if err != nil {
			return Limits{}, fmt.Errorf("%w: max %q", ErrInvalidDate, max)
		}
		limits.Max = t
	}
	if limits.Min.After(limits.Max) {
		return Limits{}, fmt.Errorf("limits %s after %s", min, max)
	}
	return limits, nil
}

// ParseWindow validates start and end. The start may not precede Min, the end
// may not follow Max, and start may equal end.
func (l Limits) ParseWindow(start, end string) (DateWindow, error) {
	fail := func(err error) (DateWindow, error) {
		return DateWindow{}, &DateWindowError{Start: start, End: end, Err: err}
	}

	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return fail(fmt.Errorf("%w: start %q", ErrInvalidDate, start))
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return fail(fmt.Errorf("%w: end %q", ErrInvalidDate, end))
	}
	if s.Before(l.Min) || e.After(l.Max) {
		return fail(fmt.Errorf("%w: %s to %s", ErrOutOfRange,
			l.Min.Format(DateLayout), l.Max.Format(DateLayout)))
	}
	if s.After(e) {
		return fail(ErrInvertedWindow)
	}
	return DateWindow{Start: s, End: e}, nil
}

// ParseDateWindow validates against DefaultLimits.
func ParseDateWindow(start, end string) (DateWindow, error) {
	return DefaultLimits().ParseWindow(start, end)
}

// IsISODate reports whether s is a calendar date in YYYY-MM-DD form.
func IsISODate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
