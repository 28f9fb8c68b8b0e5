package lifecycle

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"readyparser/pkg/contracts/domain"
)

// Spreadsheet serial dates count days from 1899-12-30.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// Serial bounds map to 0001-01-01 and 9999-12-31.
const (
	minSerial = -693593
	maxSerial = 2958465
)

var (
	errNotNumeric   = errors.New("not a number")
	errSerialBounds = errors.New("day offset out of range")
)

// SerialToDate converts a day offset from the spreadsheet epoch to a calendar date.
// Fractional days are truncated to the day.
func SerialToDate(serial float64) (domain.NullDate, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) {
		return domain.NullDate{}, errNotNumeric
	}
	days := math.Floor(serial)
	if days < minSerial || days > maxSerial {
		return domain.NullDate{}, errSerialBounds
	}
	return domain.NullDate{Time: serialEpoch.AddDate(0, 0, int(days)), Valid: true}, nil
}

// ParseSerialDate reads a raw cell value as a day offset. Blank cells are null
// without error; anything else that is not a usable number is null with an error.
func ParseSerialDate(raw string) (domain.NullDate, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.NullDate{}, nil
	}
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return domain.NullDate{}, errNotNumeric
	}
	return SerialToDate(serial)
}

// DateToSerial is the inverse of SerialToDate for whole days.
func DateToSerial(d time.Time) float64 {
	d = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return float64((d.Unix() - serialEpoch.Unix()) / 86400)
}

// DateFormat is the textual layout used for dates in the written report.
type DateFormat string

const (
	DayMonthYear DateFormat = "DD/MM/YYYY"
	MonthDayYear DateFormat = "MM/DD/YYYY"
	YearMonthDay DateFormat = "YYYY/MM/DD"
)

// DateFormats lists the accepted report date formats; the first is the default.
var DateFormats = []DateFormat{DayMonthYear, MonthDayYear, YearMonthDay}

// Layout returns the Go time layout for f.
func (f DateFormat) Layout() string {
	switch f {
	case MonthDayYear:
		return "01/02/2006"
	case YearMonthDay:
		return "2006/01/02"
	default:
		return "02/01/2006"
	}
}

// Valid reports whether f is one of DateFormats.
func (f DateFormat) Valid() bool {
	for _, known := range DateFormats {
		if f == known {
			return true
		}
	}
	return false
}

// ParseDateFormat resolves a date format name; an empty string selects DD/MM/YYYY.
func ParseDateFormat(s string) (DateFormat, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return DayMonthYear, nil
	}
	f := DateFormat(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown date format %q", s)
	}
	return f, nil
}

// midnight drops the clock part of t so window bounds compare on whole days.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
