package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, "TEST", "bad input")
	assert.Equal(t, "bad input", err.Error())

	var target *APIError
	assert.True(t, errors.As(error(err), &target))
}

func TestErrMissingFile(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ErrMissingFile.StatusCode)
	assert.Equal(t, "MISSING_FILE", ErrMissingFile.ErrorCode)
	assert.NotEmpty(t, ErrMissingFile.Message)
}

func TestErrorConstructors(t *testing.T) {
	t.Run("invalid request carries cause", func(t *testing.T) {
		err := InvalidRequestWithError(errors.New("multipart: NextPart: EOF"))
		assert.Equal(t, http.StatusBadRequest, err.StatusCode)
		assert.Equal(t, "multipart: NextPart: EOF", err.Details)
	})

	t.Run("field validation", func(t *testing.T) {
		err := ErrValidation("start_date", "start_date must be YYYY-MM-DD")
		require.IsType(t, ValidationError{}, err.Details)
		assert.Equal(t, "start_date", err.Details.(ValidationError).Field)
	})

	t.Run("unsupported file", func(t *testing.T) {
		err := UnsupportedFileError("inventory.csv")
		assert.Equal(t, http.StatusUnsupportedMediaType, err.StatusCode)
		assert.Equal(t, map[string]string{"filename": "inventory.csv"}, err.Details)
	})

	t.Run("too many files", func(t *testing.T) {
		err := TooManyFilesError(60, 50)
		assert.Equal(t, "TOO_MANY_FILES", err.ErrorCode)
		assert.Contains(t, err.Message, "50")
		assert.Equal(t, map[string]int{"files": 60, "max_files": 50}, err.Details)
	})

	t.Run("filesystem", func(t *testing.T) {
		err := FileSystemError("staging", errors.New("disk full"))
		assert.Equal(t, "File system error during staging", err.Message)
		assert.Equal(t, "disk full", err.Details)
	})

	t.Run("validation list", func(t *testing.T) {
		err := NewValidationErrors([]ValidationError{{Field: "a", Message: "x"}, {Field: "b", Message: "y"}})
		require.IsType(t, ValidationErrors{}, err.Details)
		assert.Len(t, err.Details.(ValidationErrors).Errors, 2)
	})
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusUnprocessableEntity, TypeReportLoadFailed, "Input Workbook Rejected",
		"missing required columns", "/api/reports/file").
		WithExtension("missing_columns", []string{"LDoS"}).
		WithExtension("type", "ignored")

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, TypeReportLoadFailed, body["type"], "standard members win over extensions")
	assert.Equal(t, float64(422), body["status"])
	assert.Equal(t, "/api/reports/file", body["instance"])
	assert.Equal(t, []interface{}{"LDoS"}, body["missing_columns"])

	empty := &ProblemDetails{Type: TypeInternal, Title: "x", Status: 500}
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "detail")
	empty.WithExtension("k", "v")
	assert.Equal(t, "v", empty.Extensions["k"])
}
