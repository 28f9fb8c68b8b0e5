package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateWindow(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		wantErr error
	}{
		{name: "ordinary window", start: "2021-01-01", end: "2021-12-31"},
		{name: "single day", start: "2021-06-01", end: "2021-06-01"},
		{name: "at the limits", start: "1984-01-01", end: "2200-01-01"},
		{name: "start before lower limit", start: "1983-12-31", end: "2021-01-01", wantErr: ErrOutOfRange},
		{name: "end after upper limit", start: "2021-01-01", end: "2200-01-02", wantErr: ErrOutOfRange},
		{name: "inverted", start: "2022-01-01", end: "2021-01-01", wantErr: ErrInvertedWindow},
		{name: "wrong layout", start: "01/01/2021", end: "2021-12-31", wantErr: ErrInvalidDate},
		{name: "not a date", start: "2021-02-30", end: "2021-12-31", wantErr: ErrInvalidDate},
		{name: "empty end", start: "2021-01-01", end: "", wantErr: ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := ParseDateWindow(tt.start, tt.end)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

				var windowErr *DateWindowError
				require.True(t, errors.As(err, &windowErr))
				assert.Equal(t, tt.start, windowErr.Start)
				assert.Contains(t, err.Error(), "is not valid")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.start, w.Start.Format(DateLayout))
			assert.Equal(t, tt.end, w.End.Format(DateLayout))
			assert.Equal(t, time.UTC, w.Start.Location())
		})
	}
}

func TestNewLimits(t *testing.T) {
	limits, err := NewLimits("", "")
	require.NoError(t, err)
	assert.Equal(t, DefaultLimits(), limits)

	limits, err = NewLimits("2000-01-01", "2030-01-01")
	require.NoError(t, err)
	_, err = limits.ParseWindow("1999-01-01", "2001-01-01")
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = limits.ParseWindow("2000-01-01", "2030-01-01")
	assert.NoError(t, err)

	_, err = NewLimits("2000/01/01", "")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = NewLimits("", "never")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = NewLimits("2030-01-01", "2000-01-01")
	assert.Error(t, err)
}

func TestIsISODate(t *testing.T) {
	assert.True(t, IsISODate("2021-05-01"))
	assert.False(t, IsISODate("2021-5-1"))
	assert.False(t, IsISODate("01/05/2021"))
	assert.False(t, IsISODate(""))
}
